package core

import "github.com/go-gl/mathgl/mgl32"

// EntityState 一个实体在某一 tick 的可传输状态
type EntityState struct {
	Number uint16 // 实体编号，1..MaxEntities-1

	Origin      mgl32.Vec3 // 位置
	OldOrigin   mgl32.Vec3 // 上一位置（不参与传输，基线捕获时写入）
	Termination mgl32.Vec3 // 光束类实体的终点
	Angles      mgl32.Vec3 // 朝向（角度）

	Animation1 uint8
	Animation2 uint8

	Event   EntityEvent // 一次性事件
	Effects uint16      // 特效位
	Trail   uint8       // 拖尾类型

	Model1 uint8
	Model2 uint8
	Model3 uint8
	Model4 uint8

	Client uint8  // 玩家皮肤索引
	Sound  uint8  // 循环音效索引
	Solid  uint16 // 碰撞类型
}

// IsVisible 实体是否有需要传输的内容（模型、音效或特效）
func (s *EntityState) IsVisible() bool {
	return s.Model1 != 0 || s.Sound != 0 || s.Effects != 0
}

// ValidNumber 检查实体编号是否在合法范围内
func ValidNumber(number int) bool {
	return number > 0 && number < MaxEntities
}
