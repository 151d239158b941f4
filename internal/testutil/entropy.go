//go:build !production

package testutil

import (
	"errors"
	"sync"
)

// ErrExhausted 脚本随机源耗尽
var ErrExhausted = errors.New("scripted entropy exhausted")

// ScriptedEntropy 依次返回预设值，耗尽后从 Next 开始递增；Fail 为 true 时返回错误
type ScriptedEntropy struct {
	mu     sync.Mutex
	Values []uint32
	Next   uint32
	Fail   bool
}

// Counter 从 start 开始递增的随机源
func Counter(start uint32) *ScriptedEntropy {
	return &ScriptedEntropy{Next: start}
}

func (s *ScriptedEntropy) Uint32() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return 0, ErrExhausted
	}
	if len(s.Values) > 0 {
		v := s.Values[0]
		s.Values = s.Values[1:]
		return v, nil
	}
	v := s.Next
	s.Next++
	return v, nil
}
