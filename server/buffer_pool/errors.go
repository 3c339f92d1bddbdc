package buffer_pool

import "errors"

var (
	// 页面错误
	ErrPageCorrupted  = errors.New("page content is corrupted")
	ErrPageOutOfRange = errors.New("page number out of file range")

	// 缓冲池错误
	ErrBufferPoolFull = errors.New("buffer pool is full")
	ErrInvalidConfig  = errors.New("invalid buffer pool configuration")
	ErrPoolStopped    = errors.New("buffer pool is not running")
	ErrFileClosed     = errors.New("file is closed")
	ErrFileFull       = errors.New("file reached max pages")

	// 会话错误
	ErrSessionClosed = errors.New("page session is closed")
)

// BufferPoolError 缓冲池错误结构
type BufferPoolError struct {
	Op  string // 操作名称
	Err error  // 原始错误
}

func (e *BufferPoolError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *BufferPoolError) Unwrap() error {
	return e.Err
}

// NewError 创建新的缓冲池错误
func NewError(op string, err error) error {
	return &BufferPoolError{
		Op:  op,
		Err: err,
	}
}

// IsCorrupted 检查是否为页面损坏错误
func IsCorrupted(err error) bool {
	return errors.Is(err, ErrPageCorrupted)
}

// IsBufferPoolFull 检查是否为缓冲池已满错误
func IsBufferPoolFull(err error) bool {
	return errors.Is(err, ErrBufferPoolFull)
}

// IsFileFull 文件无法再分配新页
func IsFileFull(err error) bool {
	return errors.Is(err, ErrFileFull)
}
