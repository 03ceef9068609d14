package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// GameServer 游戏服务器，每个进程一个关卡
type GameServer struct {
	cfg   Config
	level *Level

	// 网络
	listener ServerListener

	// 控制
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// NewGameServer 创建新的游戏服务器
func NewGameServer(cfg Config) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &GameServer{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		shutdown: make(chan struct{}),
	}
}

// Start 加载关卡并开始接受连接，直到 Shutdown 被调用
func (s *GameServer) Start() error {
	log.Printf("启动游戏服务器: %s (%s)", s.cfg.Addr, s.cfg.Proto)

	listener, err := newListener(s.cfg.Proto, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.listener = listener

	log.Printf("服务器监听中: %s", listener.Addr())

	level := NewLevel(s.ctx, s.cfg)
	if err := level.Load(); err != nil {
		listener.Close()
		return fmt.Errorf("加载关卡失败: %w", err)
	}
	s.level = level

	// 启动关卡循环
	s.wg.Add(1)
	go s.level.Run(&s.wg)

	// 启动连接接受循环
	s.wg.Add(1)
	go s.acceptLoop()

	// 等待关闭信号
	<-s.shutdown

	log.Println("服务器正在关闭...")
	return nil
}

// Shutdown 优雅关闭服务器，reconnect 为 true 时通知客户端稍后重连
func (s *GameServer) Shutdown(reconnect bool) error {
	var result *multierror.Error

	s.once.Do(func() {
		log.Println("正在关闭服务器...")

		// 先让关卡通知客户端并关闭连接
		if s.level != nil {
			s.level.Stop(reconnect)
		}

		s.cancel()

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("关闭监听器: %w", err))
			}
		}
		close(s.shutdown)

		// 等待所有 goroutine 结束
		s.wg.Wait()

		if s.level != nil {
			if err := s.level.Err(); err != nil {
				result = multierror.Append(result, fmt.Errorf("关卡异常结束: %w", err))
			}
		}

		log.Println("服务器已关闭")
	})

	return result.ErrorOrNil()
}

// acceptLoop 接受客户端连接
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("停止接受新连接")
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.Printf("接受连接失败: %v", err)
				continue
			}
		}

		log.Printf("新连接来自: %s", conn.RemoteAddr())

		// 创建连接对象
		connection := NewConnection(conn, s)

		// 启动连接处理
		s.wg.Add(1)
		go connection.Handle(s.ctx, &s.wg)
	}
}

// handleConnect 处理连接请求
func (s *GameServer) handleConnect(conn *Connection, req *ConnectEvent) error {
	if s.level == nil {
		return fmt.Errorf("关卡未加载")
	}
	return s.level.Join(conn, req)
}

// handleUserCmd 处理客户端移动指令
func (s *GameServer) handleUserCmd(cmd *UserCmdEvent) {
	if s.level == nil {
		return
	}
	s.level.EnqueueCmd(cmd)
}

// removeClient 释放客户端槽位
func (s *GameServer) removeClient(slot int32, session Session) {
	if s.level == nil {
		return
	}
	s.level.Leave(slot, session)
}
