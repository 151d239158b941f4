// Package entropy 提供生成不可预测标识用的随机 32 位整数
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Source 随机数来源
type Source interface {
	Uint32() (uint32, error)
}

// Reader 从字节流读取随机数，默认使用系统随机源
type Reader struct {
	mu  sync.Mutex
	r   io.Reader
	buf [4]byte
}

// New 创建系统随机源
func New() *Reader {
	return &Reader{r: rand.Reader}
}

// FromReader 从任意字节流创建随机源
func FromReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Uint32 读取 4 字节随机数
func (s *Reader) Uint32() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return binary.BigEndian.Uint32(s.buf[:]), nil
}

// NonZero 循环读取直到得到非零且未被 taken 占用的值
func NonZero(src Source, taken func(uint32) bool) (uint32, error) {
	for {
		v, err := src.Uint32()
		if err != nil {
			return 0, err
		}
		if v != 0 && (taken == nil || !taken(v)) {
			return v, nil
		}
	}
}
