package server

import (
	"fmt"

	"arena/pkg/protocol"
)

// DecodePacket 解析服务器收到的数据包
func DecodePacket(data []byte) (*ServerEvent, error) {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return nil, fmt.Errorf("解析包失败: %w", err)
	}

	switch pkt.Type {
	case protocol.MsgConnect:
		req, err := protocol.ParseConnect(pkt)
		if err != nil {
			return nil, err
		}
		return &ServerEvent{
			Kind: EventConnect,
			Connect: &ConnectEvent{
				Protocol: req.Protocol,
				Name:     req.Name,
				Token:    req.Token,
			},
		}, nil

	case protocol.MsgUserCmd:
		msg, err := protocol.ParseUserCmd(pkt)
		if err != nil {
			return nil, err
		}
		return &ServerEvent{
			Kind: EventUserCmd,
			UserCmd: &UserCmdEvent{
				LastFrame: msg.LastFrame,
				Cmds:      msg.Cmds,
			},
		}, nil

	case protocol.MsgPong:
		serverTime, err := protocol.ParsePong(pkt)
		if err != nil {
			return nil, err
		}
		return &ServerEvent{
			Kind: EventPong,
			Pong: &PongEvent{ServerTime: serverTime},
		}, nil

	case protocol.MsgClientDisconnect:
		return &ServerEvent{Kind: EventDisconnect}, nil

	default:
		return &ServerEvent{Kind: EventUnknown}, nil
	}
}

// encodePacket 序列化消息包
func encodePacket(pkt *protocol.Packet, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return protocol.MarshalPacket(pkt)
}
