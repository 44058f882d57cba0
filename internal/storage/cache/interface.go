package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss 键不存在或已过期
var ErrMiss = errors.New("cache miss")

// Key 一次数据源调用的缓存键
type Key struct {
	Source   string
	Endpoint string
	Digest   string // sha256("source:endpoint:params") 前 32 位
}

// NewKey 由数据源、端点与查询参数生成键；params 经 JSON 序列化（map 键有序）
func NewKey(source, endpoint string, params interface{}) Key {
	b, _ := json.Marshal(params)
	sum := sha256.Sum256([]byte(source + ":" + endpoint + ":" + string(b)))
	return Key{Source: source, Endpoint: endpoint, Digest: hex.EncodeToString(sum[:])[:32]}
}

// String 存储层使用的键，数据源在前以便按数据源失效
func (k Key) String() string { return k.Source + ":" + k.Digest }

// Store 数据源响应缓存；值以 JSON 序列化保存
type Store interface {
	// Put 写入响应，ttl <= 0 时使用后端默认时长
	Put(ctx context.Context, key Key, value interface{}, ttl time.Duration) error
	// Get 读取到 dest；未命中返回 ErrMiss
	Get(ctx context.Context, key Key, dest interface{}) error
	// Invalidate 删除某个数据源的全部缓存，返回删除条数
	Invalidate(ctx context.Context, source string) (int, error)
	Close() error
}
