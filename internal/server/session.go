package server

import "time"

// Session 关卡看到的客户端连接
type Session interface {
	ID() string
	Send(data []byte) error
	// SendWait 队列满时等待发送循环腾出空间，最多等待 timeout
	SendWait(data []byte, timeout time.Duration) error
	Close()
	CloseWithoutNotify()
	SetSlot(slot int32)
}
