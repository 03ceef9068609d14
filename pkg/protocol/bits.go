package protocol

// 实体增量位（16 位），顺序即写入顺序，修改后需递增 core.ProtocolVersion
const (
	UOrigin      uint16 = 1 << 0
	UTermination uint16 = 1 << 1
	UAngles      uint16 = 1 << 2
	UAnimations  uint16 = 1 << 3
	UEvent       uint16 = 1 << 4
	UEffects     uint16 = 1 << 5
	UTrail       uint16 = 1 << 6
	UModels      uint16 = 1 << 7
	UClient      uint16 = 1 << 8
	USound       uint16 = 1 << 9
	USolid       uint16 = 1 << 10
	URemove      uint16 = 1 << 15 // 实体已不在新帧中，无后续数据
)

// 玩家状态增量位（16 位）
const (
	PSPmType        uint16 = 1 << 0
	PSPmOrigin      uint16 = 1 << 1
	PSPmVelocity    uint16 = 1 << 2
	PSPmFlags       uint16 = 1 << 3
	PSPmTime        uint16 = 1 << 4
	PSPmGravity     uint16 = 1 << 5
	PSPmViewOffset  uint16 = 1 << 6
	PSPmViewAngles  uint16 = 1 << 7
	PSPmKickAngles  uint16 = 1 << 8
	PSPmDeltaAngles uint16 = 1 << 9
	PSAngles        uint16 = 1 << 10
)

// 移动指令增量位（8 位）
const (
	CmdAngle1  uint8 = 1 << 0
	CmdAngle2  uint8 = 1 << 1
	CmdAngle3  uint8 = 1 << 2
	CmdForward uint8 = 1 << 3
	CmdRight   uint8 = 1 << 4
	CmdUp      uint8 = 1 << 5
	CmdButtons uint8 = 1 << 6
)
