package server

import "arena/pkg/core"

type EventKind int

const (
	EventUnknown EventKind = iota
	EventConnect
	EventUserCmd
	EventPong
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventUserCmd:
		return "usercmd"
	case EventPong:
		return "pong"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

type ConnectEvent struct {
	Protocol int32
	Name     string
	Token    string // 非空表示断线重连
}

type UserCmdEvent struct {
	Slot      int32
	LastFrame int32 // 客户端最后收到的帧，<= 0 请求完整帧
	Cmds      []core.UserCmd
}

type PongEvent struct {
	ServerTime int64
}

type ServerEvent struct {
	Kind    EventKind
	Connect *ConnectEvent
	UserCmd *UserCmdEvent
	Pong    *PongEvent
}
