package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessageType 消息类型
type MessageType uint8

const (
	MsgBad MessageType = iota

	// 服务器 -> 客户端
	MsgServerData
	MsgConfigString
	MsgBaseline
	MsgFrame
	MsgSound
	MsgPrint
	MsgDisconnect
	MsgReconnect
	MsgPing

	// 客户端 -> 服务器
	MsgConnect
	MsgUserCmd
	MsgPong
	MsgClientDisconnect
)

var messageNames = map[MessageType]string{
	MsgBad:              "bad",
	MsgServerData:       "server_data",
	MsgConfigString:     "config_string",
	MsgBaseline:         "baseline",
	MsgFrame:            "frame",
	MsgSound:            "sound",
	MsgPrint:            "print",
	MsgDisconnect:       "disconnect",
	MsgReconnect:        "reconnect",
	MsgPing:             "ping",
	MsgConnect:          "connect",
	MsgUserCmd:          "user_cmd",
	MsgPong:             "pong",
	MsgClientDisconnect: "client_disconnect",
}

func (t MessageType) String() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return fmt.Sprintf("message(%d)", uint8(t))
}

// 信封字段编号
const (
	fieldType    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

var ErrBadPacket = errors.New("protocol: 数据包格式错误")

// Packet 消息信封：类型 + 负载
type Packet struct {
	Type    MessageType
	Payload []byte
}

// MarshalPacket 将 Packet 编码为 protobuf 线格式
func MarshalPacket(pkt *Packet) ([]byte, error) {
	if pkt == nil || pkt.Type == MsgBad {
		return nil, ErrBadPacket
	}
	b := make([]byte, 0, len(pkt.Payload)+8)
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(pkt.Type))
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, pkt.Payload)
	return b, nil
}

// UnmarshalPacket 解析 protobuf 线格式的 Packet，未知字段被跳过
func UnmarshalPacket(data []byte) (*Packet, error) {
	pkt := &Packet{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
			}
			pkt.Type = MessageType(v)
			data = data[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
			}
			pkt.Payload = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadPacket, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if pkt.Type == MsgBad {
		return nil, fmt.Errorf("%w: 缺少消息类型", ErrBadPacket)
	}
	return pkt, nil
}
