// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package proof 只追加记录的哈希链：每条记录的哈希覆盖其内容与前一条的哈希
package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Link 哈希链中的一条记录
type Link struct {
	ID        string
	Type      string
	Payload   string
	CreatedAt time.Time
	PrevHash  string
	Hash      string
}

// ComputeHash 计算单条记录的哈希
// Hash = SHA256(ID|Type|Payload|CreatedAt|PrevHash)
func ComputeHash(l Link) string {
	h := sha256.New()
	h.Write([]byte(l.ID))
	h.Write([]byte("|"))
	h.Write([]byte(l.Type))
	h.Write([]byte("|"))
	h.Write([]byte(l.Payload))
	h.Write([]byte("|"))
	h.Write([]byte(l.CreatedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte("|"))
	h.Write([]byte(l.PrevHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Seal 以 prev 为前驱补齐 PrevHash 与 Hash
func Seal(l Link, prev string) Link {
	l.PrevHash = prev
	l.Hash = ComputeHash(l)
	return l
}

// ValidateChain 验证完整哈希链
func ValidateChain(links []Link) error {
	if len(links) == 0 {
		return nil
	}

	// 第一条记录的 PrevHash 应该为空
	if links[0].PrevHash != "" {
		return fmt.Errorf("first link prev_hash should be empty, got: %s", links[0].PrevHash)
	}

	for i := range links {
		if i > 0 && links[i].PrevHash != links[i-1].Hash {
			return fmt.Errorf("hash chain broken at link %d: prev_hash=%s, expected=%s",
				i, links[i].PrevHash, links[i-1].Hash)
		}
		if expected := ComputeHash(links[i]); expected != links[i].Hash {
			return fmt.Errorf("link %d hash mismatch: expected %s, got %s", i, expected, links[i].Hash)
		}
	}
	return nil
}

// Head 链尾哈希；空链为 ""
func Head(links []Link) string {
	if len(links) == 0 {
		return ""
	}
	return links[len(links)-1].Hash
}
