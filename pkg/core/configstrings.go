package core

// 配置字符串布局
const (
	MaxModels = 256
	MaxSounds = 256
	MaxImages = 256

	CsName    = 0 // 地图名称
	CsGravity = 1 // 重力
	CsModels  = 2
	CsSounds  = CsModels + MaxModels
	CsImages  = CsSounds + MaxSounds

	MaxConfigStrings = CsImages + MaxImages
)

// 打印级别
const (
	PrintLow uint8 = iota
	PrintMedium
	PrintHigh
	PrintChat
)

// 声音衰减
const (
	AttenNone uint8 = iota
	AttenNorm
	AttenIdle
	AttenStatic
)
