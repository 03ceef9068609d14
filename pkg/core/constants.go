package core

// 协议与容量配置
const (
	ProtocolVersion = 13 // 协议版本，位定义变化时必须递增

	MaxEntities       = 1024 // 实体编号上限，0 号保留为列表结束标记
	MaxClients        = 64   // 最大客户端数
	MaxStats          = 32   // 状态栏数量，对应 32 位变更掩码
	MaxStringChars    = 1024 // 字符串最大长度（含结尾 NUL）
	MaxPacketEntities = 256  // 单帧最多可见实体数

	UpdateBackup = 16 // 帧历史深度，必须是 2 的幂
	UpdateMask   = UpdateBackup - 1

	EntityStateBackup = UpdateBackup * MaxPacketEntities // 实体状态环形缓冲大小
	EntityStateMask   = EntityStateBackup - 1
)

// 服务器帧率（每秒 tick 数）
const (
	DefaultFrameRate = 40
	FrameRateMin     = 10
	FrameRateMax     = 120
	MinClients       = 1
)

// Solid 实体碰撞类型
const (
	SolidNot     uint16 = iota // 不参与碰撞
	SolidTrigger               // 仅触发
	SolidBox                   // 轴对齐包围盒
	SolidMissile               // 投射物
	SolidDead                  // 尸体
	SolidBSP                   // 地图子模型（门、平台）
)

// 实体特效位
const (
	EffectRotate   uint16 = 1 << iota // 物品旋转
	EffectBob                         // 物品上下浮动
	EffectBeam                        // 光束，使用 Termination 作为终点
	EffectRocket                      // 火箭
	EffectGrenade                     // 手雷
	EffectTeleporter                  // 传送门
	EffectNoLighting                  // 不接受光照
	EffectNoDraw                      // 不绘制
)

// 拖尾类型
const (
	TrailNone uint8 = iota
	TrailSmoke
	TrailEnergy
	TrailBubbles
)

// EntityEvent 一次性实体事件，只在一帧内有效
type EntityEvent uint8

const (
	EventNone EntityEvent = iota
	EventClientDrown
	EventClientFall
	EventClientFallFar
	EventClientFootstep
	EventClientGurp
	EventClientJump
	EventClientLand
	EventClientTeleport
	EventItemRespawn
	EventItemPickup
)

// String 返回事件名称
func (e EntityEvent) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventClientDrown:
		return "drown"
	case EventClientFall:
		return "fall"
	case EventClientFallFar:
		return "fall_far"
	case EventClientFootstep:
		return "footstep"
	case EventClientGurp:
		return "gurp"
	case EventClientJump:
		return "jump"
	case EventClientLand:
		return "land"
	case EventClientTeleport:
		return "teleport"
	case EventItemRespawn:
		return "item_respawn"
	case EventItemPickup:
		return "item_pickup"
	}
	return "unknown"
}
