package server

import (
	"log"

	"arena/pkg/core"
	"arena/pkg/protocol"
)

// SetConfigString 设置配置字符串，关卡加载完成后的修改会广播给所有客户端
func (l *Level) SetConfigString(index int, value string) {
	if index < 0 || index >= core.MaxConfigStrings {
		log.Printf("[WARN] 配置字符串索引越界: %d", index)
		return
	}
	if len(value) >= core.MaxStringChars {
		log.Printf("[WARN] 配置字符串 %d 过长，已截断", index)
		value = value[:core.MaxStringChars-1]
	}
	if l.configStrings[index] == value {
		return
	}

	l.configStrings[index] = value

	if !l.loading {
		l.broadcast(encodePacket(protocol.NewConfigStringPacket(uint16(index), value)))
	}
}

// ConfigString 返回配置字符串
func (l *Level) ConfigString(index int) string {
	if index < 0 || index >= core.MaxConfigStrings {
		return ""
	}
	return l.configStrings[index]
}

// ModelIndex 返回模型的配置字符串索引，必要时注册
func (l *Level) ModelIndex(name string) uint16 {
	return l.findIndex(name, core.CsModels, core.MaxModels)
}

// SoundIndex 返回音效的配置字符串索引，必要时注册
func (l *Level) SoundIndex(name string) uint16 {
	return l.findIndex(name, core.CsSounds, core.MaxSounds)
}

// ImageIndex 返回图片的配置字符串索引，必要时注册
func (l *Level) ImageIndex(name string) uint16 {
	return l.findIndex(name, core.CsImages, core.MaxImages)
}

// findIndex 索引 0 保留表示“无”，区间用尽时返回 0
func (l *Level) findIndex(name string, start, count int) uint16 {
	if name == "" {
		return 0
	}

	i := 1
	for ; i < count && l.configStrings[start+i] != ""; i++ {
		if l.configStrings[start+i] == name {
			return uint16(i)
		}
	}

	if i == count {
		log.Printf("[WARN] 配置字符串已满 (%d)，无法注册 %s", count, name)
		return 0
	}

	l.SetConfigString(start+i, name)
	return uint16(i)
}
