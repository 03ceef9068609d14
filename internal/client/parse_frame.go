package client

import (
	"errors"
	"fmt"
	"log"

	"arena/pkg/core"
	"arena/pkg/protocol"
	"arena/pkg/snapshot"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrNotConnected = errors.New("client: 尚未收到服务器数据")
	ErrServerQuit   = errors.New("client: 服务器断开连接")
	ErrReconnect    = errors.New("client: 服务器要求重新连接")
)

// Parser 解析服务器消息，维护帧历史、实体环形缓冲与插值实体
// 只在一个 goroutine 中使用
type Parser struct {
	Events EventHandler

	serverData    *protocol.ServerData
	configStrings [core.MaxConfigStrings]string

	frames    snapshot.History
	ring      snapshot.Ring
	baselines snapshot.Baselines
	entities  [core.MaxEntities]Entity

	frame  snapshot.Frame // 最近解析的帧
	active bool

	predictedOrigin mgl32.Vec3
	predictedAngles mgl32.Vec3
}

// NewParser 创建解析器，handler 为 nil 时使用日志处理器
func NewParser(handler EventHandler) *Parser {
	if handler == nil {
		handler = LogEventHandler{}
	}
	return &Parser{Events: handler}
}

// HandlePacket 按消息类型分发，返回的错误对连接是致命的
func (p *Parser) HandlePacket(pkt *protocol.Packet) error {
	switch pkt.Type {
	case protocol.MsgServerData:
		sd, err := protocol.ParseServerData(pkt)
		if err != nil {
			return err
		}
		return p.ParseServerData(sd)

	case protocol.MsgConfigString:
		cs, err := protocol.ParseConfigString(pkt)
		if err != nil {
			return err
		}
		p.ParseConfigString(cs)

	case protocol.MsgBaseline:
		s, err := protocol.ParseBaseline(pkt)
		if err != nil {
			return err
		}
		p.ParseBaseline(&s)

	case protocol.MsgFrame:
		if p.serverData == nil {
			return ErrNotConnected
		}
		return p.ParseFrame(protocol.NewReader(pkt.Payload))

	case protocol.MsgSound:
		msg, err := protocol.ParseSound(pkt)
		if err != nil {
			return err
		}
		p.Events.Sound(p.SoundName(msg.Index), msg)

	case protocol.MsgPrint:
		msg, err := protocol.ParsePrint(pkt)
		if err != nil {
			return err
		}
		p.Events.Print(msg.Level, msg.Text)

	case protocol.MsgDisconnect:
		reason, err := protocol.ParseDisconnect(pkt)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrServerQuit, reason)

	case protocol.MsgReconnect:
		return ErrReconnect

	default:
		log.Printf("忽略消息: %s", pkt.Type)
	}
	return nil
}

// ParseServerData 新关卡开始，清空所有状态
func (p *Parser) ParseServerData(sd *protocol.ServerData) error {
	if sd.Protocol != core.ProtocolVersion {
		return fmt.Errorf("服务器协议版本 %d，客户端 %d", sd.Protocol, core.ProtocolVersion)
	}

	p.serverData = sd
	p.frames.Reset()
	p.ring.Reset()
	p.baselines.Reset()
	p.entities = [core.MaxEntities]Entity{}
	p.configStrings = [core.MaxConfigStrings]string{}
	p.frame = snapshot.Frame{}
	p.active = false

	log.Printf("进入关卡 %s，实体编号 %d", sd.MapName, sd.EntityNumber)
	return nil
}

// ParseConfigString 保存配置字符串
func (p *Parser) ParseConfigString(cs *protocol.ConfigString) {
	p.configStrings[cs.Index] = cs.Value
}

// ParseBaseline 保存基线并缓存到对应实体
func (p *Parser) ParseBaseline(s *core.EntityState) {
	p.baselines.Set(s)
	if core.ValidNumber(int(s.Number)) {
		p.entities[s.Number].Baseline = *p.baselines.Get(s.Number)
	}
}

// ParseFrame 解析一帧：帧头、玩家状态增量、实体合并
func (p *Parser) ParseFrame(r *protocol.Reader) error {
	h, err := protocol.ReadFrameHeader(r)
	if err != nil {
		return fmt.Errorf("帧头: %w", err)
	}

	old, err := snapshot.ResolveDelta(&p.frames, &p.ring, h.DeltaFrame)
	if err != nil {
		return err
	}

	var fromPS core.PlayerState
	var oldStates []core.EntityState
	if old != nil {
		fromPS = old.PS
		oldStates = p.ring.Entities(old)
	}

	ps, err := protocol.DecodePlayerDelta(r, &fromPS)
	if err != nil {
		return fmt.Errorf("玩家状态: %w", err)
	}

	frame := snapshot.Frame{
		ServerFrame:   h.ServerFrame,
		DeltaFrame:    h.DeltaFrame,
		SuppressCount: h.SuppressCount,
		AreaBits:      h.AreaBits,
		Valid:         true,
		PS:            ps,
		EntityState:   p.ring.Head(),
	}

	err = snapshot.Merge(oldStates, snapshot.WireSource{R: r}, &p.baselines, func(to *core.EntityState) error {
		p.ring.Append(to)
		p.entities[to.Number].update(to, frame.ServerFrame)
		frame.NumEntities++
		return nil
	})
	if err != nil {
		return fmt.Errorf("实体: %w", err)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: 帧尾多余 %d 字节", protocol.ErrBadPacket, r.Remaining())
	}

	p.frames.Store(&frame)
	p.frame = frame

	if !p.active {
		p.active = true
		p.predictedOrigin = ps.PM.Origin
		p.predictedAngles = ps.Angles
	}

	p.dispatchEvents()
	return nil
}

// dispatchEvents 派发本帧实体事件，派发后清零
func (p *Parser) dispatchEvents() {
	for i := 0; i < p.frame.NumEntities; i++ {
		s := p.ring.At(p.frame.EntityState + i)
		if s.Event == core.EventNone {
			continue
		}
		ent := &p.entities[s.Number]
		p.Events.EntityEvent(ent)
		ent.Current.Event = core.EventNone
		s.Event = core.EventNone
	}
}

// Frame 返回最近解析的帧
func (p *Parser) Frame() *snapshot.Frame {
	return &p.frame
}

// Active 是否已收到至少一个有效帧
func (p *Parser) Active() bool {
	return p.active
}

// LastFrame 需要向服务器确认的帧号，-1 请求完整帧
func (p *Parser) LastFrame() int32 {
	if !p.frame.Valid {
		return -1
	}
	return p.frame.ServerFrame
}

// ServerData 返回当前关卡信息，未连接时为 nil
func (p *Parser) ServerData() *protocol.ServerData {
	return p.serverData
}

// Entities 返回当前帧中的实体
func (p *Parser) Entities() []*Entity {
	out := make([]*Entity, 0, p.frame.NumEntities)
	for i := 0; i < p.frame.NumEntities; i++ {
		s := p.ring.At(p.frame.EntityState + i)
		out = append(out, &p.entities[s.Number])
	}
	return out
}

// Entity 按编号返回实体
func (p *Parser) Entity(number uint16) *Entity {
	return &p.entities[int(number)%core.MaxEntities]
}

// PredictedOrigin 首个有效帧时以服务器位置为初始预测位置
func (p *Parser) PredictedOrigin() (mgl32.Vec3, mgl32.Vec3) {
	return p.predictedOrigin, p.predictedAngles
}

// SetPredicted 更新预测位置
func (p *Parser) SetPredicted(origin, angles mgl32.Vec3) {
	p.predictedOrigin = origin
	p.predictedAngles = angles
}

// ConfigString 返回索引处的配置字符串
func (p *Parser) ConfigString(index int) string {
	if index < 0 || index >= core.MaxConfigStrings {
		return ""
	}
	return p.configStrings[index]
}

// ModelName 返回模型索引对应的名称
func (p *Parser) ModelName(index uint8) string {
	return p.ConfigString(core.CsModels + int(index))
}

// SoundName 返回音效索引对应的名称
func (p *Parser) SoundName(index uint8) string {
	return p.ConfigString(core.CsSounds + int(index))
}
