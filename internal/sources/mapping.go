package sources

import "osint-platform/internal/federation"

// Mapping 描述如何向某个 HTTP 数据源发请求、以及如何用 gjson 路径从响应中取字段
type Mapping struct {
	DefaultBaseURL string
	Method         string // GET（默认）
	Endpoint       string
	QueryParam     string
	LimitParam     string
	KindParam      string            // 非空时把 Person/Company 透传给数据源
	KindValues     map[string]string // Query.Kind -> 数据源取值
	ExtraParams    map[string]string

	AuthParam  string // api key 作为查询参数
	AuthHeader string // api key 作为请求头
	AuthPrefix string // 请求头前缀，如 "ApiKey "
	AuthBasic  bool   // api key 作为 basic auth 用户名

	ResultsPath       string // 结果数组路径
	IDPath            string
	NamePath          string
	SchemaPath        string
	DefaultSchema     string
	SchemaValues      map[string]string // 数据源 schema -> 统一 schema
	ScorePath         string
	DefaultConfidence float64
	PropertiesObject  string            // 整体复制的属性对象路径（值可为数组或标量）
	PropertyPaths     map[string]string // 属性名 -> 路径

	Tags []string
}

// Builtin 内置数据源映射
var Builtin = map[string]Mapping{
	"opensanctions": {
		DefaultBaseURL:    "https://api.opensanctions.org",
		Endpoint:          "/search/default",
		QueryParam:        "q",
		LimitParam:        "limit",
		KindParam:         "schema",
		KindValues:        map[string]string{"Person": "Person", "Company": "Company"},
		AuthHeader:        "Authorization",
		AuthPrefix:        "ApiKey ",
		ResultsPath:       "results",
		IDPath:            "id",
		NamePath:          "caption",
		SchemaPath:        "schema",
		ScorePath:         "score",
		DefaultConfidence: 0.8,
		PropertiesObject:  "properties",
		PropertyPaths:     map[string]string{"datasets": "datasets"},
		Tags:              []string{federation.TagSanctions},
	},
	"opencorporates": {
		DefaultBaseURL:    "https://api.opencorporates.com",
		Endpoint:          "/v0.4/companies/search",
		QueryParam:        "q",
		LimitParam:        "per_page",
		AuthParam:         "api_token",
		ResultsPath:       "results.companies.#.company",
		IDPath:            "opencorporates_url",
		NamePath:          "name",
		DefaultSchema:     "Company",
		DefaultConfidence: 0.85,
		PropertyPaths: map[string]string{
			"companyNumber":     "company_number",
			"jurisdiction":      "jurisdiction_code",
			"incorporationDate": "incorporation_date",
			"dissolutionDate":   "dissolution_date",
			"status":            "current_status",
			"address":           "registered_address_in_full",
		},
		Tags: []string{federation.TagRegistry},
	},
	"gleif": {
		DefaultBaseURL:    "https://api.gleif.org",
		Endpoint:          "/api/v1/lei-records",
		QueryParam:        "filter[fulltext]",
		LimitParam:        "page[size]",
		ResultsPath:       "data",
		IDPath:            "id",
		NamePath:          "attributes.entity.legalName.name",
		DefaultSchema:     "Company",
		DefaultConfidence: 0.9,
		PropertyPaths: map[string]string{
			"leiCode":            "attributes.lei",
			"jurisdiction":       "attributes.entity.jurisdiction",
			"registrationNumber": "attributes.entity.registeredAs",
			"status":             "attributes.entity.status",
			"country":            "attributes.entity.legalAddress.country",
			"parent":             "relationships.direct-parent.links.related",
		},
		Tags: []string{federation.TagRegistry},
	},
	"icij": {
		DefaultBaseURL:    "https://offshoreleaks.icij.org",
		Endpoint:          "/api/v1/search",
		QueryParam:        "q",
		LimitParam:        "limit",
		ResultsPath:       "result",
		IDPath:            "id",
		NamePath:          "name",
		SchemaPath:        "types.0.id",
		SchemaValues:      map[string]string{"Entity": "Company", "Officer": "Person", "Intermediary": "Organization", "Address": "Address"},
		DefaultSchema:     "Company",
		ScorePath:         "score",
		DefaultConfidence: 0.6,
		PropertyPaths: map[string]string{
			"icijId":     "id",
			"sourceLeak": "description",
		},
		Tags: []string{federation.TagLeaks},
	},
	"companies_house": {
		DefaultBaseURL:    "https://api.company-information.service.gov.uk",
		Endpoint:          "/search/companies",
		QueryParam:        "q",
		LimitParam:        "items_per_page",
		AuthBasic:         true,
		ResultsPath:       "items",
		IDPath:            "company_number",
		NamePath:          "title",
		DefaultSchema:     "Company",
		DefaultConfidence: 0.9,
		PropertyPaths: map[string]string{
			"companyNumber":     "company_number",
			"status":            "company_status",
			"incorporationDate": "date_of_creation",
			"address":           "address_snippet",
		},
		ExtraParams: map[string]string{},
		Tags:        []string{federation.TagRegistry},
	},
	"edgar": {
		DefaultBaseURL:    "https://efts.sec.gov",
		Endpoint:          "/LATEST/search-index",
		QueryParam:        "q",
		LimitParam:        "size",
		AuthHeader:        "User-Agent",
		ResultsPath:       "hits.hits",
		IDPath:            "_id",
		NamePath:          "_source.display_names.0",
		DefaultSchema:     "Company",
		DefaultConfidence: 0.75,
		PropertyPaths: map[string]string{
			"cik":       "_source.ciks",
			"filedDate": "_source.file_date",
			"formType":  "_source.form",
		},
		Tags: []string{federation.TagFilings},
	},
	"gdelt": {
		DefaultBaseURL:    "https://api.gdeltproject.org",
		Endpoint:          "/api/v2/doc/doc",
		QueryParam:        "query",
		LimitParam:        "maxrecords",
		ExtraParams:       map[string]string{"mode": "artlist", "format": "json"},
		ResultsPath:       "articles",
		IDPath:            "url",
		NamePath:          "title",
		DefaultSchema:     "Article",
		DefaultConfidence: 0.5,
		PropertyPaths: map[string]string{
			"url":         "url",
			"publishedAt": "seendate",
			"domain":      "domain",
			"language":    "language",
			"country":     "sourcecountry",
		},
		Tags: []string{federation.TagNews},
	},
}
