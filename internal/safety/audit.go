package safety

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"osint-platform/pkg/proof"
)

// 检查类型
const (
	CheckPre     = "pre"
	CheckPost    = "post"
	CheckPublish = "publish"
	CheckBreaker = "breaker"
)

// 审计结论
const (
	VerdictAllow    = "allow"
	VerdictBlock    = "block"
	VerdictObserved = "observed"
	VerdictScrubbed = "scrubbed"
	VerdictClean    = "clean"
)

// Entry 安全审计条目，只追加
type Entry struct {
	ID        string    `json:"id"`
	CheckType string    `json:"check_type"`
	Tool      string    `json:"tool"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason,omitempty"`
	Mode      Mode      `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	PrevHash  string    `json:"prev_hash,omitempty"`
	Hash      string    `json:"hash,omitempty"`
}

func (e Entry) link() proof.Link {
	return proof.Link{
		ID:        e.ID,
		Type:      e.CheckType,
		Payload:   strings.Join([]string{e.Tool, e.Verdict, e.Reason, string(e.Mode)}, "|"),
		CreatedAt: e.Timestamp,
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
	}
}

// VerifyTrail 校验审计条目的哈希链，发现删改时返回错误
func VerifyTrail(entries []Entry) error {
	links := make([]proof.Link, len(entries))
	for i, e := range entries {
		links[i] = e.link()
	}
	if err := proof.ValidateChain(links); err != nil {
		return fmt.Errorf("safety audit trail: %w", err)
	}
	return nil
}

// Summary 审计汇总
type Summary struct {
	Checks        int          `json:"checks"`
	Blocks        int          `json:"blocks"`
	Observed      int          `json:"observed"`
	Publications  int          `json:"publications"`
	Scrubbed      int          `json:"scrubbed"`
	RedactedItems int          `json:"redacted_items"`
	Breaker       BreakerState `json:"breaker"`
}

func newEntryID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
