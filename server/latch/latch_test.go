package latch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatchExclusive(t *testing.T) {
	l := NewLatch()
	l.Lock()
	assert.False(t, l.TryRLock())
	l.Unlock()

	assert.True(t, l.TryRLock())
	l.RUnlock()
}

func TestLatchShared(t *testing.T) {
	l := NewLatch()
	l.RLock()
	assert.True(t, l.TryRLock())
	l.RUnlock()
	l.RUnlock()

	l.Lock()
	assert.False(t, l.TryRLock())
	l.Unlock()
}

func TestLatchSerializesWriters(t *testing.T) {
	l := NewLatch()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16000, counter)
}
