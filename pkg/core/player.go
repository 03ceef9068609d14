package core

import "github.com/go-gl/mathgl/mgl32"

// PmType 玩家移动类型
type PmType uint8

const (
	PmNormal PmType = iota
	PmSpectator
	PmDead
	PmFreeze
)

// 玩家移动标志
const (
	PmfDucked uint16 = 1 << iota
	PmfJumpHeld
	PmfOnGround
	PmfTimeWaterJump
	PmfTimeLand
	PmfTimeTeleport
	PmfNoPrediction
	PmfPushed // 本帧被推动器移动过
)

// 状态栏索引
const (
	StatHealth = iota
	StatArmor
	StatAmmo
	StatWeapon
	StatFrags
	StatSpectator
	StatChase
	StatTime
)

// Yaw 等角度分量索引
const (
	Pitch = 0
	Yaw   = 1
	Roll  = 2
)

// PmState 玩家移动状态（量化后传输）
type PmState struct {
	Type        PmType
	Origin      mgl32.Vec3
	Velocity    mgl32.Vec3
	Flags       uint16
	Time        uint16
	Gravity     int16
	ViewOffset  [3]int16
	ViewAngles  [3]int16
	KickAngles  [3]int16
	DeltaAngles [3]int16
}

// PlayerState 单个客户端的移动、视角与状态栏
type PlayerState struct {
	PM     PmState
	Angles mgl32.Vec3 // 完整精度的视角
	Stats  [MaxStats]int16
}
