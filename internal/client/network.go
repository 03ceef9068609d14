package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"arena/pkg/core"
	"arena/pkg/protocol"

	kcp "github.com/xtaci/kcp-go/v5"
)

// MaxPacketSize 单个数据包上限（含信封）
const MaxPacketSize = protocol.MaxMessageSize + 64

var ErrSendQueueFull = errors.New("client: 发送队列满")

// NetworkClient 网络客户端，接收循环与发送循环各一个 goroutine
// 收到的数据包交给主循环（视图更新）处理
type NetworkClient struct {
	conn       net.Conn
	serverAddr string
	proto      string
	name       string

	// 网络
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// 消息队列
	packetChan chan *protocol.Packet
	sendChan   chan []byte

	// 错误
	errChan chan error
}

// NewNetworkClient 创建网络客户端
func NewNetworkClient(serverAddr, proto, name string) *NetworkClient {
	ctx, cancel := context.WithCancel(context.Background())

	return &NetworkClient{
		serverAddr: serverAddr,
		proto:      proto,
		name:       name,
		ctx:        ctx,
		cancel:     cancel,
		packetChan: make(chan *protocol.Packet, 256),
		sendChan:   make(chan []byte, 256),
		errChan:    make(chan error, 1),
	}
}

// Connect 连接到服务器并发送连接请求，token 非空时尝试取回原槽位
func (nc *NetworkClient) Connect(token string) error {
	log.Printf("连接到服务器: %s (%s)", nc.serverAddr, nc.proto)

	conn, err := nc.dial()
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	nc.conn = conn
	nc.connected = true

	log.Printf("已连接到服务器: %s", conn.RemoteAddr())

	nc.wg.Add(2)
	go nc.receiveLoop()
	go nc.sendLoop()

	if err := nc.sendPacket(protocol.NewConnectPacket(nc.name, token)); err != nil {
		nc.Close()
		return fmt.Errorf("发送连接请求失败: %w", err)
	}
	return nil
}

func (nc *NetworkClient) dial() (net.Conn, error) {
	switch nc.proto {
	case "", "tcp":
		return net.DialTimeout("tcp", nc.serverAddr, 5*time.Second)
	case "kcp":
		conn, err := kcp.DialWithOptions(nc.serverAddr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		conn.SetNoDelay(1, 10, 2, 1)
		conn.SetWindowSize(256, 256)
		conn.SetACKNoDelay(true)
		return conn, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.proto)
	}
}

// Close 关闭连接
func (nc *NetworkClient) Close() {
	nc.closeOnce.Do(func() {
		nc.connected = false
		nc.cancel()

		if nc.conn != nil {
			nc.conn.Close()
		}

		nc.wg.Wait()
		log.Printf("网络客户端已关闭")
	})
}

// Disconnect 通知服务器后关闭
func (nc *NetworkClient) Disconnect() {
	if nc.connected && nc.conn != nil {
		if data, err := protocol.MarshalPacket(protocol.NewClientDisconnectPacket()); err == nil {
			nc.writeFrame(data)
		}
	}
	nc.Close()
}

// IsConnected 检查是否已连接
func (nc *NetworkClient) IsConnected() bool {
	return nc.connected
}

// ========== 消息接收 ==========

// receiveLoop 接收循环
func (nc *NetworkClient) receiveLoop() {
	defer nc.wg.Done()

	for {
		select {
		case <-nc.ctx.Done():
			return
		default:
		}

		// 读取消息长度（4 字节）
		var length uint32
		if err := binary.Read(nc.conn, binary.BigEndian, &length); err != nil {
			if nc.ctx.Err() == nil {
				nc.fail(fmt.Errorf("读取长度失败: %w", err))
			}
			return
		}

		if length > MaxPacketSize {
			nc.fail(fmt.Errorf("消息过大 (%d bytes)", length))
			return
		}
		if length == 0 {
			continue
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(nc.conn, data); err != nil {
			nc.fail(fmt.Errorf("读取数据失败: %w", err))
			return
		}

		if err := nc.handleMessage(data); err != nil {
			nc.fail(err)
			return
		}
	}
}

// handleMessage 心跳直接回复，其余交给主循环
func (nc *NetworkClient) handleMessage(data []byte) error {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	if pkt.Type == protocol.MsgPing {
		serverTime, err := protocol.ParsePing(pkt)
		if err != nil {
			return err
		}
		if err := nc.sendPacket(protocol.NewPongPacket(serverTime)); err != nil {
			log.Printf("回复心跳失败: %v", err)
		}
		return nil
	}

	select {
	case nc.packetChan <- pkt:
		return nil
	case <-nc.ctx.Done():
		return nil
	}
}

func (nc *NetworkClient) fail(err error) {
	select {
	case nc.errChan <- err:
	default:
	}
}

// ========== 消息发送 ==========

// sendLoop 发送循环
func (nc *NetworkClient) sendLoop() {
	defer nc.wg.Done()

	for {
		select {
		case <-nc.ctx.Done():
			return
		case data := <-nc.sendChan:
			if err := nc.writeFrame(data); err != nil {
				log.Printf("发送数据失败: %v", err)
				nc.fail(err)
				return
			}
		}
	}
}

// writeFrame 写入长度前缀与数据
func (nc *NetworkClient) writeFrame(data []byte) error {
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err := nc.conn.Write(buf)
	return err
}

func (nc *NetworkClient) sendPacket(pkt *protocol.Packet, err error) error {
	if err != nil {
		return err
	}
	data, err := protocol.MarshalPacket(pkt)
	if err != nil {
		return err
	}

	select {
	case nc.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// SendUserCmd 发送移动指令并确认最近收到的帧
func (nc *NetworkClient) SendUserCmd(lastFrame int32, cmds []core.UserCmd) error {
	if !nc.connected {
		return nil
	}
	return nc.sendPacket(protocol.NewUserCmdPacket(lastFrame, cmds))
}

// ========== 消息接收（主循环） ==========

// ReceivePacket 非阻塞地取出一个数据包
func (nc *NetworkClient) ReceivePacket() *protocol.Packet {
	select {
	case pkt := <-nc.packetChan:
		return pkt
	default:
		return nil
	}
}

// Err 非阻塞地返回网络错误
func (nc *NetworkClient) Err() error {
	select {
	case err := <-nc.errChan:
		return err
	default:
		return nil
	}
}
