package latch

import "sync"

// Latch 页面和索引树上的读写闩
type Latch struct {
	mu sync.RWMutex
}

// NewLatch 创建一个新的闩
func NewLatch() *Latch {
	return &Latch{}
}

// Lock 获取排他闩
func (l *Latch) Lock() {
	l.mu.Lock()
}

// Unlock 释放排他闩
func (l *Latch) Unlock() {
	l.mu.Unlock()
}

// RLock 获取共享闩
func (l *Latch) RLock() {
	l.mu.RLock()
}

// RUnlock 释放共享闩
func (l *Latch) RUnlock() {
	l.mu.RUnlock()
}

// TryRLock 尝试获取共享闩，后台刷脏用它跳过正在被写的页面
func (l *Latch) TryRLock() bool {
	return l.mu.TryRLock()
}
