package session

import (
	"encoding/json"
	"fmt"
	"time"

	"osint-platform/internal/evidence"
)

// ExportVersion 导出格式版本
const ExportVersion = 1

type exported struct {
	Version int `json:"version"`
	*Session
}

// Export 序列化完整会话：恢复所需的全部字段
func (s *Session) Export() ([]byte, error) {
	data, err := json.MarshalIndent(exported{Version: ExportVersion, Session: s}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("导出会话失败: %w", err)
	}
	return data, nil
}

// Import 反序列化会话并校验
func Import(data []byte) (*Session, error) {
	e := exported{Session: &Session{}}
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("解析会话失败: %w", err)
	}
	if e.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported session version %d", e.Version)
	}
	s := e.Session
	if s.ID == "" || s.Goal == "" {
		return nil, fmt.Errorf("session export missing id or goal")
	}
	switch s.Status {
	case StatusRunning, StatusConcluded, StatusFailed:
	default:
		return nil, fmt.Errorf("invalid session status %q", s.Status)
	}
	if s.Entities == nil {
		s.Entities = make(map[string]evidence.Record)
	}
	for _, l := range s.Leads {
		if l.Seq > s.leadSeq {
			s.leadSeq = l.Seq
		}
	}
	s.now = time.Now
	return s, nil
}

// Clone 通过导出再导入得到独立副本
func (s *Session) Clone() (*Session, error) {
	data, err := s.Export()
	if err != nil {
		return nil, err
	}
	c, err := Import(data)
	if err != nil {
		return nil, err
	}
	c.now = s.now
	return c, nil
}
