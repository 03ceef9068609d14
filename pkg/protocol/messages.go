package protocol

import (
	"fmt"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxUserCmds 单个 UserCmd 消息携带的最大指令数
const MaxUserCmds = 8

// ServerData 连接建立后服务器发送的第一条消息
type ServerData struct {
	Protocol     int32
	SpawnCount   int32
	FrameRate    uint8
	EntityNumber uint16 // 客户端对应的实体编号
	MapName      string
	SessionToken string
}

func (m *ServerData) encode(w *Writer) {
	w.WriteInt32(m.Protocol)
	w.WriteInt32(m.SpawnCount)
	w.WriteUint8(m.FrameRate)
	w.WriteUint16(m.EntityNumber)
	w.WriteString(m.MapName)
	w.WriteString(m.SessionToken)
}

func (m *ServerData) decode(r *Reader) {
	m.Protocol = r.ReadInt32()
	m.SpawnCount = r.ReadInt32()
	m.FrameRate = r.ReadUint8()
	m.EntityNumber = r.ReadUint16()
	m.MapName = r.ReadString()
	m.SessionToken = r.ReadString()
}

// ConfigString 配置字符串（模型、音效、图片名等）
type ConfigString struct {
	Index uint16
	Value string
}

func (m *ConfigString) encode(w *Writer) {
	w.WriteUint16(m.Index)
	w.WriteString(m.Value)
}

func (m *ConfigString) decode(r *Reader) error {
	m.Index = r.ReadUint16()
	m.Value = r.ReadString()
	if r.Err() == nil && m.Index >= core.MaxConfigStrings {
		return fmt.Errorf("%w: 配置字符串索引 %d 越界", ErrBadPacket, m.Index)
	}
	return nil
}

// Sound 定位音效
type Sound struct {
	Index       uint8
	Entity      uint16
	Origin      mgl32.Vec3
	Attenuation uint8
}

func (m *Sound) encode(w *Writer) {
	w.WriteUint8(m.Index)
	w.WriteUint16(m.Entity)
	w.WritePosition(m.Origin)
	w.WriteUint8(m.Attenuation)
}

func (m *Sound) decode(r *Reader) {
	m.Index = r.ReadUint8()
	m.Entity = r.ReadUint16()
	m.Origin = r.ReadPosition()
	m.Attenuation = r.ReadUint8()
}

// Print 文本消息
type Print struct {
	Level uint8
	Text  string
}

func (m *Print) encode(w *Writer) {
	w.WriteUint8(m.Level)
	w.WriteString(m.Text)
}

func (m *Print) decode(r *Reader) {
	m.Level = r.ReadUint8()
	m.Text = r.ReadString()
}

// Connect 客户端连接请求，Token 非空表示断线重连
type Connect struct {
	Protocol int32
	Name     string
	Token    string
}

func (m *Connect) encode(w *Writer) {
	w.WriteInt32(m.Protocol)
	w.WriteString(m.Name)
	w.WriteString(m.Token)
}

func (m *Connect) decode(r *Reader) {
	m.Protocol = r.ReadInt32()
	m.Name = r.ReadString()
	m.Token = r.ReadString()
}

// UserCmdMessage 客户端确认的帧号与若干移动指令，指令之间链式增量编码
type UserCmdMessage struct {
	LastFrame int32
	Cmds      []core.UserCmd
}

func (m *UserCmdMessage) encode(w *Writer) error {
	if len(m.Cmds) > MaxUserCmds {
		return fmt.Errorf("%w: 指令数 %d 超过上限", ErrBadPacket, len(m.Cmds))
	}
	w.WriteInt32(m.LastFrame)
	w.WriteUint8(uint8(len(m.Cmds)))
	var from core.UserCmd
	for i := range m.Cmds {
		if err := EncodeUserCmdDelta(w, &from, &m.Cmds[i]); err != nil {
			return err
		}
		from = m.Cmds[i]
	}
	return w.Err()
}

func (m *UserCmdMessage) decode(r *Reader) error {
	m.LastFrame = r.ReadInt32()
	count := int(r.ReadUint8())
	if count > MaxUserCmds {
		return fmt.Errorf("%w: 指令数 %d 超过上限", ErrBadPacket, count)
	}
	m.Cmds = make([]core.UserCmd, 0, count)
	var from core.UserCmd
	for i := 0; i < count; i++ {
		cmd, err := DecodeUserCmdDelta(r, &from)
		if err != nil {
			return err
		}
		m.Cmds = append(m.Cmds, cmd)
		from = cmd
	}
	return r.Err()
}

// FrameHeader 帧消息头，DeltaFrame <= 0 表示完整帧
type FrameHeader struct {
	ServerFrame   int32
	DeltaFrame    int32
	SuppressCount uint8
	AreaBits      []byte
}

// WriteFrameHeader 写入帧头
func WriteFrameHeader(w *Writer, h *FrameHeader) error {
	if len(h.AreaBits) > 255 {
		return fmt.Errorf("%w: area bits 过长", ErrBadPacket)
	}
	w.WriteInt32(h.ServerFrame)
	w.WriteInt32(h.DeltaFrame)
	w.WriteUint8(h.SuppressCount)
	w.WriteUint8(uint8(len(h.AreaBits)))
	w.WriteData(h.AreaBits)
	return w.Err()
}

// ReadFrameHeader 读取帧头
func ReadFrameHeader(r *Reader) (FrameHeader, error) {
	var h FrameHeader
	h.ServerFrame = r.ReadInt32()
	h.DeltaFrame = r.ReadInt32()
	h.SuppressCount = r.ReadUint8()
	n := int(r.ReadUint8())
	h.AreaBits = r.ReadData(n)
	return h, r.Err()
}
