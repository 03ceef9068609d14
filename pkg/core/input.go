package core

// 按键位
const (
	ButtonAttack uint8 = 1 << iota
	ButtonWalk
	ButtonAny = 0x80
)

// UserCmd 客户端一帧内的移动指令
type UserCmd struct {
	Msec    uint8    // 指令持续的毫秒数
	Angles  [3]int16 // 打包后的视角
	Forward int16
	Right   int16
	Up      int16
	Buttons uint8
}
