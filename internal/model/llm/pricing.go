package llm

// Pricing 单价，美元 / 百万 token
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost 按用量计算费用
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerMillion/1e6 + float64(outputTokens)*p.OutputPerMillion/1e6
}

// Estimate 调用前的费用预估：输入按字符数估算，输出按 maxTokens 上限计
func (p Pricing) Estimate(promptChars, maxTokens int) float64 {
	return p.Cost(estimateTokens(promptChars), maxTokens)
}

// defaultPricing 配置未给出价格时的参考价
var defaultPricing = map[string]Pricing{
	"gpt-4o":                   {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":              {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"claude-3-5-haiku-latest":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-5-sonnet-latest": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
}

// LookupPricing 返回模型参考价；未知模型返回零值（不计费）
func LookupPricing(model string) Pricing {
	return defaultPricing[model]
}

// estimateTokens 粗略估算 token 数（4 字符 ≈ 1 token）
func estimateTokens(chars int) int {
	n := chars / 4
	if n < 1 {
		n = 1
	}
	return n
}
