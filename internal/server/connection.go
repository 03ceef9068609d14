package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"arena/pkg/protocol"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	MaxPacketSize = protocol.MaxMessageSize + 64 // 最大消息大小（含信封）
	readTimeout   = 5 * time.Second              // 读取超时
	writeTimeout  = 1 * time.Second              // 写入超时
	sendQueueSize = 256
	sendRetry     = 5 * time.Millisecond // 队列满时的重试间隔
)

var (
	ErrSendQueueFull    = errors.New("发送队列满")
	ErrConnectionClosed = errors.New("连接已关闭")
)

// Connection 表示一个客户端连接
type Connection struct {
	id     string
	conn   net.Conn
	server *GameServer
	slot   int32

	limiter *rate.Limiter

	// 发送队列
	sendChan chan []byte
	closeCh  chan struct{}
	closed   bool
	closeMu  sync.Mutex

	lastRecvTime atomic.Value
	lastPingTime atomic.Value
	rtt          atomic.Int64
}

// NewConnection 创建新连接，连接到服务器上
func NewConnection(conn net.Conn, server *GameServer) *Connection {
	c := &Connection{
		id:       uuid.New().String(),
		conn:     conn,
		server:   server,
		slot:     -1, // -1 表示未分配
		limiter:  rate.NewLimiter(rate.Limit(server.cfg.PacketRate), server.cfg.PacketBurst),
		sendChan: make(chan []byte, sendQueueSize),
		closeCh:  make(chan struct{}),
	}
	c.lastRecvTime.Store(time.Now())
	c.lastPingTime.Store(time.Time{})
	return c
}

// Handle 处理连接
func (c *Connection) Handle(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Printf("连接 %s: 处理开始 (%s)", c.id, c.conn.RemoteAddr())

	wg.Add(1)
	go c.startHeartbeat(ctx, wg)

	// 启动发送循环
	wg.Add(1)
	go c.sendLoop(wg)

	// 启动接收循环
	wg.Add(1)
	go c.receiveLoop(ctx, wg)

	// 等待上下文取消或连接关闭
	select {
	case <-ctx.Done():
	case <-c.closeCh:
	}

	c.Close()
}

// Close 关闭连接并通知关卡释放槽位
func (c *Connection) Close() {
	c.closeWithNotify(true)
}

// CloseWithoutNotify 关闭连接但不通知关卡
func (c *Connection) CloseWithoutNotify() {
	c.closeWithNotify(false)
}

func (c *Connection) closeWithNotify(notify bool) {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}

	c.closed = true
	close(c.closeCh)

	// 关闭发送通道，发送循环写完剩余数据后关闭网络连接
	close(c.sendChan)
	c.closeMu.Unlock()

	if notify {
		if slot := c.Slot(); slot >= 0 {
			c.server.removeClient(slot, c)
		}
	}

	log.Printf("连接 %s: 已关闭", c.id)
}

// Send 发送数据（异步）
func (c *Connection) Send(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// SendWait 发送数据，队列满时重试直到超时或连接关闭
func (c *Connection) SendWait(data []byte, timeout time.Duration) error {
	err := c.Send(data)
	if !errors.Is(err, ErrSendQueueFull) {
		return err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(sendRetry)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return ErrConnectionClosed
		case <-deadline.C:
			return ErrSendQueueFull
		case <-ticker.C:
		}
		if err := c.Send(data); !errors.Is(err, ErrSendQueueFull) {
			return err
		}
	}
}

// SendPacket 序列化并发送消息包
func (c *Connection) SendPacket(pkt *protocol.Packet) error {
	data, err := protocol.MarshalPacket(pkt)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// sendLoop 发送循环，发送通道关闭后退出
func (c *Connection) sendLoop(wg *sync.WaitGroup) {
	defer wg.Done()
	defer c.conn.Close()

	var header [4]byte
	for data := range c.sendChan {
		// 发送数据长度前缀（4 字节）
		binary.BigEndian.PutUint32(header[:], uint32(len(data)))
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(header[:]); err != nil {
			log.Printf("连接 %s: 发送长度失败: %v", c.id, err)
			c.Close()
			return
		}

		// 发送数据体
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(data); err != nil {
			log.Printf("连接 %s: 发送数据失败: %v", c.id, err)
			c.Close()
			return
		}
	}
}

// receiveLoop 接收循环
func (c *Connection) receiveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		default:
		}

		data, err := c.readPacket()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Printf("连接 %s: 读取超时", c.id)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			default:
				log.Printf("连接 %s: 读取失败: %v", c.id, err)
			}
			c.Close()
			return
		}
		if data == nil {
			continue
		}

		c.onMessageReceived()
		if !c.limiter.Allow() {
			log.Printf("连接 %s: 消息过于频繁，丢弃", c.id)
			continue
		}

		if err := c.handleMessage(data); err != nil {
			log.Printf("连接 %s: 处理消息失败: %v", c.id, err)
			c.Close()
			return
		}
	}
}

// readPacket 读取一条长度前缀消息，空消息返回 nil
func (c *Connection) readPacket() ([]byte, error) {
	var header [4]byte
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPacketSize {
		return nil, fmt.Errorf("消息过大 (%d bytes)", length)
	}
	if length == 0 {
		return nil, nil
	}

	data := make([]byte, length)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, err
	}
	return data, nil
}

// handleMessage 处理接收到的消息
func (c *Connection) handleMessage(data []byte) error {
	event, err := DecodePacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	switch event.Kind {
	case EventConnect:
		if c.Slot() >= 0 {
			return fmt.Errorf("客户端 %d 重复连接请求", c.Slot())
		}
		if err := c.server.handleConnect(c, event.Connect); err != nil {
			c.sendDisconnect(err.Error())
			return fmt.Errorf("处理连接请求失败: %w", err)
		}
		log.Printf("连接 %s: 进入槽位 %d", c.id, c.Slot())

	case EventUserCmd:
		slot := c.Slot()
		if slot < 0 {
			return fmt.Errorf("未连接的客户端发送移动指令")
		}
		event.UserCmd.Slot = slot
		c.server.handleUserCmd(event.UserCmd)

	case EventPong:
		c.handlePong(event.Pong)

	case EventDisconnect:
		log.Printf("连接 %s: 客户端主动断开", c.id)
		c.Close()

	default:
		return fmt.Errorf("未知消息类型")
	}

	return nil
}

func (c *Connection) sendDisconnect(reason string) {
	pkt, err := protocol.NewDisconnectPacket(reason)
	if err != nil {
		return
	}
	_ = c.SendPacket(pkt)
}

// String 返回连接的字符串表示
func (c *Connection) String() string {
	if slot := c.Slot(); slot >= 0 {
		return fmt.Sprintf("Connection{%s, slot %d, %s}", c.id, slot, c.conn.RemoteAddr())
	}
	return fmt.Sprintf("Connection{%s, %s}", c.id, c.conn.RemoteAddr())
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Slot() int32 {
	return atomic.LoadInt32(&c.slot)
}

func (c *Connection) SetSlot(slot int32) {
	atomic.StoreInt32(&c.slot, slot)
}

// RTT 最近一次心跳往返时间（毫秒）
func (c *Connection) RTT() int64 {
	return c.rtt.Load()
}

const (
	heartbeatInterval = 2 * time.Second
	heartbeatTimeout  = 15 * time.Second
)

func (c *Connection) startHeartbeat(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			lastRecv, _ := c.lastRecvTime.Load().(time.Time)
			if !lastRecv.IsZero() && time.Since(lastRecv) > heartbeatTimeout {
				log.Printf("连接 %s: 心跳超时", c.id)
				c.Close()
				return
			}
			c.sendPing()
		}
	}
}

func (c *Connection) sendPing() {
	packet, err := protocol.NewPingPacket(time.Now().UnixMilli())
	if err != nil {
		return
	}
	c.lastPingTime.Store(time.Now())
	_ = c.SendPacket(packet)
}

func (c *Connection) handlePong(pong *PongEvent) {
	if pong == nil || pong.ServerTime <= 0 {
		return
	}
	c.rtt.Store(time.Now().UnixMilli() - pong.ServerTime)
}

func (c *Connection) onMessageReceived() {
	c.lastRecvTime.Store(time.Now())
}
