package physics

import (
	"fmt"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// MoveType 移动类型，顺序有意义：小于 MoveWalk 的实体不会被推动
type MoveType uint8

const (
	MoveNone   MoveType = iota // 不移动，只执行 think
	MoveNoClip                 // 无碰撞积分
	MovePush                   // 推动者（门、平台），推不动时阻塞
	MoveStop                   // 推动者，遇阻即停
	MoveWalk                   // 客户端驱动
	MoveFly                    // 飞行（火箭）
	MoveBounce                 // 抛射（手雷、掉落物）
)

func (m MoveType) String() string {
	switch m {
	case MoveNone:
		return "none"
	case MoveNoClip:
		return "no_clip"
	case MovePush:
		return "push"
	case MoveStop:
		return "stop"
	case MoveWalk:
		return "walk"
	case MoveFly:
		return "fly"
	case MoveBounce:
		return "bounce"
	default:
		return fmt.Sprintf("move(%d)", uint8(m))
	}
}

// 实体标志
const (
	FlagTeamSlave = 1 << iota // 队伍从属成员，由主实体驱动
)

// 内容标志
const (
	ContentsSolid       = 0x1
	ContentsWindow      = 0x2
	ContentsLava        = 0x8
	ContentsSlime       = 0x10
	ContentsWater       = 0x20
	ContentsMist        = 0x40
	ContentsCurrent0    = 0x40000
	ContentsCurrent90   = 0x80000
	ContentsCurrent180  = 0x100000
	ContentsCurrent270  = 0x200000
	ContentsCurrentUp   = 0x400000
	ContentsCurrentDown = 0x800000
	ContentsMonster     = 0x2000000
	ContentsDeadMonster = 0x4000000

	MaskSolid          = ContentsSolid | ContentsWindow
	MaskLiquid         = ContentsWater | ContentsLava | ContentsSlime
	MaskClipPlayer     = MaskSolid | ContentsMonster
	MaskClipProjectile = MaskSolid | ContentsMonster | ContentsDeadMonster
)

// 表面标志
const (
	SurfSlick = 0x2
)

// BoxKind 区域查询的实体类别
type BoxKind uint8

const (
	BoxSolid  BoxKind = 1 << iota // 实心实体
	BoxOccupy                     // 触发器等可占据实体
	BoxAll    = BoxSolid | BoxOccupy
)

// Plane 碰撞平面
type Plane struct {
	Normal mgl32.Vec3
	Dist   float32
}

// Surface 碰撞表面信息
type Surface struct {
	Name  string
	Flags int
}

// Trace 扫掠检测结果
type Trace struct {
	Fraction   float32 // 完成比例，1 表示未碰撞
	End        mgl32.Vec3
	Ent        *Entity // 碰撞到的实体，世界几何返回 0 号实体
	Plane      Plane
	Surface    *Surface
	Contents   int
	StartSolid bool
	AllSolid   bool
}

// Entity 服务器端实体
type Entity struct {
	State     core.EntityState
	Classname string
	InUse     bool
	Dead      bool

	Mins, Maxs       mgl32.Vec3
	AbsMins, AbsMaxs mgl32.Vec3
	ClipMask         int

	MoveType  MoveType
	Velocity  mgl32.Vec3
	AVelocity mgl32.Vec3
	Flags     int
	NextThink uint32 // 毫秒，0 表示不思考

	GroundEntity   *Entity
	GroundPlane    Plane
	GroundSurface  *Surface
	GroundContents int
	WaterType      int
	WaterLevel     uint8

	// Team 仅主实体持有，不含主实体本身
	Team       []*Entity
	TeamMaster *Entity

	MoveInfoState uint8

	// Client 客户端实体的玩家状态，其他实体为 nil
	Client *core.PlayerState

	// Behavior 可选实现 Thinker、Toucher、Blocker
	Behavior any

	linked bool
}

func (e *Entity) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.Classname == "" {
		return fmt.Sprintf("entity %d", e.State.Number)
	}
	return fmt.Sprintf("%s %d", e.Classname, e.State.Number)
}

// Thinker 定时逻辑
type Thinker interface {
	Think(s *Stepper, self *Entity)
}

// Toucher 接触逻辑，plane 与 surf 可能为 nil
type Toucher interface {
	Touch(s *Stepper, self, other *Entity, plane *Plane, surf *Surface)
}

// Blocker 推动受阻逻辑
type Blocker interface {
	Blocked(s *Stepper, self, other *Entity)
}

// World 碰撞世界
type World interface {
	Trace(start, end, mins, maxs mgl32.Vec3, skip *Entity, mask int) Trace
	BoxEntities(mins, maxs mgl32.Vec3, kind BoxKind) ([]*Entity, error)
	LinkEntity(ent *Entity)
	UnlinkEntity(ent *Entity)
}

// Sounds 定位音效输出
type Sounds interface {
	PositionedSound(origin mgl32.Vec3, ent *Entity, name string, atten uint8)
}
