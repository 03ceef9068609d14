package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"arena/pkg/core"
	"arena/pkg/physics"
	"arena/pkg/protocol"
	"arena/pkg/snapshot"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrServerFull       = errors.New("服务器已满")
	ErrProtocolMismatch = errors.New("协议版本不匹配")
	ErrLevelClosed      = errors.New("关卡已关闭")
)

// entityReuseDelay 实体释放后编号保留的时间（毫秒）
const entityReuseDelay = 500

// Level 一个运行中的关卡，所有状态只由 Run 所在的 goroutine 访问
type Level struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config

	name       string
	spawnCount int32
	frameNum   int32
	time       uint32
	loading    bool

	space   *physics.Space
	stepper *physics.Stepper

	entities    [core.MaxEntities]physics.Entity
	lastUsed    [core.MaxEntities]uint32
	numEntities int

	baselines     snapshot.Baselines
	configStrings [core.MaxConfigStrings]string
	spawnPoints   []spawnPoint

	clients []*client

	joinCh  chan joinRequest
	cmdCh   chan *UserCmdEvent
	leaveCh chan leaveRequest
	stopCh  chan bool
	done    chan struct{}
	err     error
}

type joinRequest struct {
	session Session
	connect *ConnectEvent
	respCh  chan error
}

type leaveRequest struct {
	slot    int32
	session Session
}

// NewLevel 创建关卡
func NewLevel(parent context.Context, cfg Config) *Level {
	ctx, cancel := context.WithCancel(parent)

	l := &Level{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		name:       cfg.MapName,
		spawnCount: rand.Int31(),
		space:      physics.NewSpace(),
		clients:    make([]*client, cfg.MaxClients),
		joinCh:     make(chan joinRequest),
		cmdCh:      make(chan *UserCmdEvent, 256),
		leaveCh:    make(chan leaveRequest, 256),
		stopCh:     make(chan bool),
		done:       make(chan struct{}),
	}
	l.stepper = physics.NewStepper(l.space, cfg.FrameMillis(), cfg.Gravity)
	l.stepper.Sounds = l
	if cfg.Debug {
		l.stepper.Debugf = func(format string, args ...any) {
			log.Printf("[physics] "+format, args...)
		}
	}
	return l
}

// Load 生成地图实体，让世界稳定两帧后捕获基线
func (l *Level) Load() error {
	l.loading = true
	defer func() { l.loading = false }()

	l.SetConfigString(core.CsName, l.name)
	l.SetConfigString(core.CsGravity, fmt.Sprintf("%g", l.cfg.Gravity))

	l.numEntities = l.cfg.MaxClients + 1
	for i := 0; i < l.numEntities; i++ {
		l.entities[i].State.Number = uint16(i)
	}

	if err := l.spawnMap(); err != nil {
		return err
	}

	for i := 0; i < 2; i++ {
		if err := l.runFrame(); err != nil {
			return err
		}
	}
	l.clearEvents()
	l.createBaselines()

	log.Printf("关卡 %s 加载完成: %d 个实体, spawn count %d", l.name, l.numEntities, l.spawnCount)
	return nil
}

// Run 关卡主循环
func (l *Level) Run(wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.FrameDuration())
	defer ticker.Stop()

	log.Printf("关卡循环启动: %s, %d Hz", l.name, l.cfg.FrameRate)

	for {
		select {
		case <-l.ctx.Done():
			l.shutdownClients(false)
			log.Println("关卡循环停止")
			return

		case reconnect := <-l.stopCh:
			l.shutdownClients(reconnect)
			l.cancel()
			log.Println("关卡循环停止")
			return

		case req := <-l.joinCh:
			req.respCh <- l.handleJoin(req)

		case ev := <-l.cmdCh:
			l.handleCmd(ev)

		case req := <-l.leaveCh:
			l.handleLeave(req)

		case <-ticker.C:
			if err := l.tick(); err != nil {
				l.err = err
				log.Printf("关卡第 %d 帧失败: %v", l.frameNum, err)
				l.shutdownClients(false)
				l.cancel()
				return
			}
		}
	}
}

// Stop 通知客户端并停止关卡循环
func (l *Level) Stop(reconnect bool) {
	select {
	case l.stopCh <- reconnect:
	case <-l.done:
	}
	<-l.done
}

// Err 返回导致关卡停止的错误
func (l *Level) Err() error {
	return l.err
}

// Join 客户端进入关卡，阻塞直到关卡处理完毕
func (l *Level) Join(session Session, req *ConnectEvent) error {
	respCh := make(chan error, 1)

	select {
	case <-l.ctx.Done():
		return ErrLevelClosed
	case l.joinCh <- joinRequest{session: session, connect: req, respCh: respCh}:
	}

	select {
	case <-l.ctx.Done():
		return ErrLevelClosed
	case err := <-respCh:
		return err
	}
}

// EnqueueCmd 将移动指令放入关卡队列
func (l *Level) EnqueueCmd(ev *UserCmdEvent) {
	select {
	case <-l.ctx.Done():
	case l.cmdCh <- ev:
	}
}

// Leave 客户端离开关卡
func (l *Level) Leave(slot int32, session Session) {
	select {
	case <-l.ctx.Done():
	case l.leaveCh <- leaveRequest{slot: slot, session: session}:
	}
}

func (l *Level) tick() error {
	if err := l.runFrame(); err != nil {
		return err
	}
	l.emitFrames()
	l.clearEvents()
	return nil
}

// runFrame 推进一帧：先处理客户端指令，再按编号运行所有实体
func (l *Level) runFrame() error {
	l.frameNum++
	l.time += l.stepper.FrameMillis
	l.stepper.Time = l.time

	for _, c := range l.clients {
		if c == nil {
			continue
		}
		if err := l.clientThink(c); err != nil {
			return err
		}
	}

	for i := 1; i < l.numEntities; i++ {
		ent := &l.entities[i]
		if !ent.InUse {
			continue
		}
		l.lastUsed[i] = l.time
		if err := l.stepper.RunEntity(ent); err != nil {
			return err
		}
	}
	return nil
}

// clearEvents 事件只在发送它的那一帧有效
func (l *Level) clearEvents() {
	for i := 1; i < l.numEntities; i++ {
		l.entities[i].State.Event = core.EventNone
	}
}

// Spawn 分配一个空闲实体，刚释放的编号在短时间内不复用
func (l *Level) Spawn(classname string) *physics.Entity {
	for i := l.cfg.MaxClients + 1; i < core.MaxEntities; i++ {
		ent := &l.entities[i]
		if ent.InUse {
			continue
		}
		if ent.State.Number != 0 && l.time-l.lastUsed[i] < entityReuseDelay {
			continue
		}

		*ent = physics.Entity{Classname: classname, InUse: true}
		ent.State.Number = uint16(i)
		l.lastUsed[i] = l.time
		if i >= l.numEntities {
			l.numEntities = i + 1
		}
		return ent
	}

	log.Printf("[WARN] 实体数量已满，无法生成 %s", classname)
	return nil
}

// Entity 返回编号对应的实体
func (l *Level) Entity(number int) *physics.Entity {
	if number < 0 || number >= core.MaxEntities {
		return nil
	}
	return &l.entities[number]
}

// PositionedSound 向所有客户端广播定位音效
func (l *Level) PositionedSound(origin mgl32.Vec3, ent *physics.Entity, name string, atten uint8) {
	msg := &protocol.Sound{
		Index:       uint8(l.SoundIndex(name)),
		Origin:      origin,
		Attenuation: atten,
	}
	if ent != nil {
		msg.Entity = ent.State.Number
	}
	l.broadcast(encodePacket(protocol.NewSoundPacket(msg)))
}

// broadcast 向所有客户端发送同一条消息
func (l *Level) broadcast(data []byte, err error) {
	if err != nil {
		log.Printf("序列化广播消息失败: %v", err)
		return
	}
	for _, c := range l.clients {
		if c == nil {
			continue
		}
		if err := c.session.Send(data); err != nil {
			log.Printf("发送消息到客户端 %d 失败: %v", c.slot, err)
		}
	}
}

func (l *Level) broadcastPrint(level uint8, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	log.Println(text)
	l.broadcast(encodePacket(protocol.NewPrintPacket(level, text)))
}

// shutdownClients 通知客户端服务器关闭或重启，然后关闭所有连接
func (l *Level) shutdownClients(reconnect bool) {
	if reconnect {
		l.broadcastPrint(core.PrintHigh, "服务器重启中...")
		l.broadcast(encodePacket(protocol.NewReconnectPacket(), nil))
	} else {
		l.broadcastPrint(core.PrintHigh, "服务器已关闭")
		l.broadcast(encodePacket(protocol.NewDisconnectPacket("服务器已关闭")))
	}

	for _, c := range l.clients {
		if c == nil {
			continue
		}
		c.session.CloseWithoutNotify()
		l.dropClient(c)
	}
}
