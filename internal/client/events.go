package client

import (
	"log"

	"arena/pkg/core"
	"arena/pkg/protocol"
)

// EventHandler 接收帧解析过程中产生的事件
type EventHandler interface {
	// EntityEvent 实体的一次性事件，每个有效帧每个实体最多一次
	EntityEvent(ent *Entity)
	// Sound 定位音效，name 为配置字符串中的音效名
	Sound(name string, msg *protocol.Sound)
	// Print 服务器文本消息
	Print(level uint8, text string)
}

// LogEventHandler 只记录日志的默认处理器
type LogEventHandler struct{}

func (LogEventHandler) EntityEvent(ent *Entity) {
	log.Printf("实体 %d 事件: %s", ent.Current.Number, ent.Current.Event)
}

func (LogEventHandler) Sound(name string, msg *protocol.Sound) {
	log.Printf("音效 %s (实体 %d)", name, msg.Entity)
}

func (LogEventHandler) Print(level uint8, text string) {
	if level >= core.PrintHigh {
		log.Printf("[服务器] %s", text)
	}
}
