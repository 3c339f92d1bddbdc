package buffer_pool

// ReadSession 持有页面共享闩，期间帧不会被淘汰
type ReadSession struct {
	pool   *BufferPool
	page   *BufferPage
	closed bool
}

func (s *ReadSession) PageNo() uint32 {
	return s.page.pageNo
}

// Buf 页面内容，只读
func (s *ReadSession) Buf() []byte {
	return s.page.content
}

func (s *ReadSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.page.latch.RUnlock()
	s.pool.release(s.page)
}

// WriteSession 持有页面排他闩，在私有副本上修改。
// 只有调用 Flush 之后修改才会进入缓冲帧，未Flush就Close等于放弃修改。
type WriteSession struct {
	pool    *BufferPool
	page    *BufferPage
	buf     []byte
	flushed bool
	closed  bool
}

func (s *WriteSession) PageNo() uint32 {
	return s.page.pageNo
}

// Buf 可修改的私有副本
func (s *WriteSession) Buf() []byte {
	return s.buf
}

// Flush 发布修改到缓冲帧并标记脏页，可以多次调用
func (s *WriteSession) Flush() error {
	if s.closed {
		return NewError("Flush", ErrSessionClosed)
	}
	copy(s.page.content, s.buf)
	s.page.MarkDirty()
	s.pool.addToFlushList(s.page)
	s.flushed = true
	return nil
}

func (s *WriteSession) Flushed() bool {
	return s.flushed
}

func (s *WriteSession) IsClosed() bool {
	return s.closed
}

func (s *WriteSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.page.latch.Unlock()
	s.pool.release(s.page)
}
