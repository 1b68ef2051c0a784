package storage

import "errors"

var (
	// ErrPageFull is returned when appending to a page with no free slot
	ErrPageFull = errors.New("page is full")
	// ErrSlotOutOfRange is returned when reading past the last written slot
	ErrSlotOutOfRange = errors.New("slot out of range")
	// ErrCorruptPage is returned when a page file fails to deserialize
	ErrCorruptPage = errors.New("corrupt page")
	// ErrPageNotFound is returned when a page file does not exist on disk
	ErrPageNotFound = errors.New("page not found")
	// ErrBufferPoolExhausted is returned when every frame is pinned
	ErrBufferPoolExhausted = errors.New("buffer pool exhausted: all frames pinned")
)
