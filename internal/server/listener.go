package server

import (
	"fmt"
	"net"

	kcp "github.com/xtaci/kcp-go/v5"
)

// kcp 会话参数：快速模式，窗口足以容纳数帧的突发
const (
	kcpNoDelay      = 1
	kcpInterval     = 10
	kcpResend       = 2
	kcpNoCongestion = 1
	kcpWindow       = 256
	kcpMTU          = 1350
)

type ServerListener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

func newListener(proto, addr string) (ServerListener, error) {
	switch proto {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		return &tcpListener{listener: listener}, nil
	case "kcp":
		listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		return &kcpListener{listener: listener}, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", proto)
	}
}

type tcpListener struct {
	listener net.Listener
}

func (l *tcpListener) Accept() (net.Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	// 开启 TCP_NODELAY，禁用 Nagle 算法以减少延迟
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	return conn, nil
}

func (l *tcpListener) Close() error {
	return l.listener.Close()
}

func (l *tcpListener) Addr() net.Addr {
	return l.listener.Addr()
}

type kcpListener struct {
	listener *kcp.Listener
}

func (l *kcpListener) Accept() (net.Conn, error) {
	session, err := l.listener.AcceptKCP()
	if err != nil {
		return nil, err
	}
	tuneSession(session)
	return session, nil
}

func (l *kcpListener) Close() error {
	return l.listener.Close()
}

func (l *kcpListener) Addr() net.Addr {
	return l.listener.Addr()
}

// tuneSession 设置低延迟参数，消息边界由长度前缀处理
func tuneSession(session *kcp.UDPSession) {
	session.SetStreamMode(true)
	session.SetNoDelay(kcpNoDelay, kcpInterval, kcpResend, kcpNoCongestion)
	session.SetWindowSize(kcpWindow, kcpWindow)
	session.SetMtu(kcpMTU)
	session.SetACKNoDelay(true)
}
