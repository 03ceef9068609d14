package protocol

import (
	"fmt"

	"arena/pkg/core"
)

// ========== 辅助构造方法 ==========

func newPacket(typ MessageType, capacity int, encode func(w *Writer) error) (*Packet, error) {
	w := NewWriter(capacity)
	if err := encode(w); err != nil {
		return nil, err
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("构造 %s 消息失败: %w", typ, err)
	}
	return &Packet{Type: typ, Payload: w.Bytes()}, nil
}

func checkType(pkt *Packet, typ MessageType) error {
	if pkt.Type != typ {
		return fmt.Errorf("%w: 期望 %s, 实际 %s", ErrBadPacket, typ, pkt.Type)
	}
	return nil
}

// NewConnectPacket 构造连接请求消息包
func NewConnectPacket(name, token string) (*Packet, error) {
	m := &Connect{Protocol: core.ProtocolVersion, Name: name, Token: token}
	return newPacket(MsgConnect, 2*core.MaxStringChars+8, func(w *Writer) error {
		m.encode(w)
		return nil
	})
}

// NewUserCmdPacket 构造移动指令消息包
func NewUserCmdPacket(lastFrame int32, cmds []core.UserCmd) (*Packet, error) {
	m := &UserCmdMessage{LastFrame: lastFrame, Cmds: cmds}
	return newPacket(MsgUserCmd, 256, m.encode)
}

// NewPingPacket 构造心跳消息包
func NewPingPacket(serverTime int64) (*Packet, error) {
	return newPacket(MsgPing, 8, func(w *Writer) error {
		w.WriteInt64(serverTime)
		return nil
	})
}

// NewPongPacket 构造心跳响应消息包，回传服务器时间
func NewPongPacket(serverTime int64) (*Packet, error) {
	return newPacket(MsgPong, 8, func(w *Writer) error {
		w.WriteInt64(serverTime)
		return nil
	})
}

// NewClientDisconnectPacket 构造客户端主动断开消息包
func NewClientDisconnectPacket() *Packet {
	return &Packet{Type: MsgClientDisconnect}
}

// ========== 服务器消息构造 ==========

// NewServerDataPacket 构造服务器信息消息包
func NewServerDataPacket(m *ServerData) (*Packet, error) {
	return newPacket(MsgServerData, 2*core.MaxStringChars+16, func(w *Writer) error {
		m.encode(w)
		return nil
	})
}

// NewConfigStringPacket 构造配置字符串消息包
func NewConfigStringPacket(index uint16, value string) (*Packet, error) {
	m := &ConfigString{Index: index, Value: value}
	return newPacket(MsgConfigString, core.MaxStringChars+2, func(w *Writer) error {
		m.encode(w)
		return nil
	})
}

// NewBaselinePacket 构造基线消息包，基线相对零状态强制编码
func NewBaselinePacket(state *core.EntityState) (*Packet, error) {
	return newPacket(MsgBaseline, 128, func(w *Writer) error {
		var null core.EntityState
		_, err := EncodeEntityDelta(w, &null, state, true)
		return err
	})
}

// NewFramePacket 包装已编码的帧数据
func NewFramePacket(w *Writer) (*Packet, error) {
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("构造 frame 消息失败: %w", err)
	}
	return &Packet{Type: MsgFrame, Payload: w.Bytes()}, nil
}

// NewSoundPacket 构造音效消息包
func NewSoundPacket(m *Sound) (*Packet, error) {
	return newPacket(MsgSound, 32, func(w *Writer) error {
		m.encode(w)
		return nil
	})
}

// NewPrintPacket 构造文本消息包
func NewPrintPacket(level uint8, text string) (*Packet, error) {
	m := &Print{Level: level, Text: text}
	return newPacket(MsgPrint, core.MaxStringChars+1, func(w *Writer) error {
		m.encode(w)
		return nil
	})
}

// NewDisconnectPacket 构造断开消息包
func NewDisconnectPacket(reason string) (*Packet, error) {
	return newPacket(MsgDisconnect, core.MaxStringChars, func(w *Writer) error {
		w.WriteString(reason)
		return nil
	})
}

// NewReconnectPacket 构造重连通知消息包
func NewReconnectPacket() *Packet {
	return &Packet{Type: MsgReconnect}
}

// ========== 消息解析辅助 ==========

// ParseConnect 从 Packet 中解析 Connect
func ParseConnect(pkt *Packet) (*Connect, error) {
	if err := checkType(pkt, MsgConnect); err != nil {
		return nil, err
	}
	r := NewReader(pkt.Payload)
	m := &Connect{}
	m.decode(r)
	return m, r.Err()
}

// ParseUserCmd 从 Packet 中解析 UserCmdMessage
func ParseUserCmd(pkt *Packet) (*UserCmdMessage, error) {
	if err := checkType(pkt, MsgUserCmd); err != nil {
		return nil, err
	}
	m := &UserCmdMessage{}
	if err := m.decode(NewReader(pkt.Payload)); err != nil {
		return nil, err
	}
	return m, nil
}

// ParsePing 从 Packet 中解析 Ping
func ParsePing(pkt *Packet) (int64, error) {
	if err := checkType(pkt, MsgPing); err != nil {
		return 0, err
	}
	r := NewReader(pkt.Payload)
	t := r.ReadInt64()
	return t, r.Err()
}

// ParsePong 从 Packet 中解析 Pong
func ParsePong(pkt *Packet) (int64, error) {
	if err := checkType(pkt, MsgPong); err != nil {
		return 0, err
	}
	r := NewReader(pkt.Payload)
	t := r.ReadInt64()
	return t, r.Err()
}

// ParseServerData 从 Packet 中解析 ServerData
func ParseServerData(pkt *Packet) (*ServerData, error) {
	if err := checkType(pkt, MsgServerData); err != nil {
		return nil, err
	}
	r := NewReader(pkt.Payload)
	m := &ServerData{}
	m.decode(r)
	return m, r.Err()
}

// ParseConfigString 从 Packet 中解析 ConfigString
func ParseConfigString(pkt *Packet) (*ConfigString, error) {
	if err := checkType(pkt, MsgConfigString); err != nil {
		return nil, err
	}
	r := NewReader(pkt.Payload)
	m := &ConfigString{}
	if err := m.decode(r); err != nil {
		return nil, err
	}
	return m, r.Err()
}

// ParseBaseline 从 Packet 中解析基线实体状态
func ParseBaseline(pkt *Packet) (core.EntityState, error) {
	if err := checkType(pkt, MsgBaseline); err != nil {
		return core.EntityState{}, err
	}
	r := NewReader(pkt.Payload)
	number, bits, err := ReadEntityHeader(r)
	if err != nil {
		return core.EntityState{}, err
	}
	if number == 0 {
		return core.EntityState{}, fmt.Errorf("%w: 0", ErrBadEntityNumber)
	}
	var null core.EntityState
	state := DecodeEntityDelta(r, &null, number, bits)
	state.OldOrigin = state.Origin
	return state, r.Err()
}

// ParseSound 从 Packet 中解析 Sound
func ParseSound(pkt *Packet) (*Sound, error) {
	if err := checkType(pkt, MsgSound); err != nil {
		return nil, err
	}
	r := NewReader(pkt.Payload)
	m := &Sound{}
	m.decode(r)
	return m, r.Err()
}

// ParsePrint 从 Packet 中解析 Print
func ParsePrint(pkt *Packet) (*Print, error) {
	if err := checkType(pkt, MsgPrint); err != nil {
		return nil, err
	}
	r := NewReader(pkt.Payload)
	m := &Print{}
	m.decode(r)
	return m, r.Err()
}

// ParseDisconnect 从 Packet 中解析断开原因
func ParseDisconnect(pkt *Packet) (string, error) {
	if err := checkType(pkt, MsgDisconnect); err != nil {
		return "", err
	}
	r := NewReader(pkt.Payload)
	reason := r.ReadString()
	return reason, r.Err()
}
