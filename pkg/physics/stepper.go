package physics

import (
	"errors"
	"fmt"

	"arena/pkg/core"
)

// 运动常量
const (
	MaxSpeed         = 2400.0
	StopEpsilon      = 0.1
	SpeedStop        = 150.0
	GroundDist       = 0.25
	StepNormal       = 0.7
	AccelGround      = 10.0
	FrictAir         = 0.1
	FrictGround      = 10.0
	FrictGroundSlick = 2.0
	FrictWater       = 2.0
	GravityWater     = 0.33
	SpeedCurrent     = 100.0
	MaxClipPlanes    = 4

	BounceFly  = 1.0
	BounceToss = 1.33
)

// 水面音效名，由 Sounds 实现映射到音效索引
const (
	SoundWaterIn  = "world/water_in"
	SoundWaterOut = "world/water_out"
)

var (
	ErrPushOverflow = errors.New("physics: 推动记录超出容量")
	ErrBoxOverflow  = errors.New("physics: 区域查询结果超出容量")
	ErrBadMoveType  = errors.New("physics: 非法移动类型")
)

// Stepper 每个关卡一个，逐实体推进一帧物理
type Stepper struct {
	World  World
	Sounds Sounds

	Time        uint32 // 关卡时间（毫秒）
	FrameMillis uint32
	Gravity     float32

	// Debugf 可选调试输出
	Debugf func(format string, args ...any)

	pushes []pushRecord
}

// NewStepper 创建物理步进器
func NewStepper(world World, frameMillis uint32, gravity float32) *Stepper {
	return &Stepper{
		World:       world,
		FrameMillis: frameMillis,
		Gravity:     gravity,
		pushes:      make([]pushRecord, 0, core.MaxEntities),
	}
}

// FrameSeconds 返回一帧的秒数
func (s *Stepper) FrameSeconds() float32 {
	return float32(s.FrameMillis) / 1000
}

func (s *Stepper) debugf(format string, args ...any) {
	if s.Debugf != nil {
		s.Debugf(format, args...)
	}
}

// Free 释放实体
func (s *Stepper) Free(ent *Entity) {
	s.World.UnlinkEntity(ent)
	ent.InUse = false
	ent.GroundEntity = nil
	ent.NextThink = 0
}

// RunEntity 执行实体本帧的 think 与物理
func (s *Stepper) RunEntity(ent *Entity) error {
	s.clampVelocity(ent)
	s.runThink(ent)

	if !ent.InUse {
		return nil
	}

	var err error
	switch ent.MoveType {
	case MoveNone, MoveWalk:
	case MoveNoClip:
		s.noClip(ent)
	case MovePush, MoveStop:
		err = s.push(ent)
	case MoveFly:
		err = s.fly(ent)
	case MoveBounce:
		err = s.toss(ent)
	default:
		return fmt.Errorf("%w: %s %s", ErrBadMoveType, ent, ent.MoveType)
	}
	if err != nil {
		return err
	}

	for _, member := range ent.Team {
		member.State.Origin = ent.State.Origin
		s.World.LinkEntity(member)
	}

	if ent.State.Solid == core.SolidBSP {
		ent.State.Animation1 = ent.MoveInfoState
	}
	return nil
}

func (s *Stepper) runThink(ent *Entity) {
	if ent.NextThink == 0 {
		return
	}
	if ent.NextThink > s.Time+1 {
		return
	}
	ent.NextThink = 0

	if t, ok := ent.Behavior.(Thinker); ok {
		t.Think(s, ent)
	}
}

func (s *Stepper) touch(self, other *Entity, plane *Plane, surf *Surface) {
	if t, ok := self.Behavior.(Toucher); ok {
		s.debugf("%s touching %s", self, other)
		t.Touch(s, self, other, plane, surf)
	}
}

// GoodPosition 实体当前位置是否不在实心内
func (s *Stepper) GoodPosition(ent *Entity) bool {
	mask := ent.ClipMask
	if mask == 0 {
		mask = MaskSolid
	}
	o := ent.State.Origin
	return !s.World.Trace(o, o, ent.Mins, ent.Maxs, ent, mask).StartSolid
}

func (s *Stepper) clampVelocity(ent *Entity) {
	if speed := ent.Velocity.Len(); speed > MaxSpeed {
		ent.Velocity = ent.Velocity.Mul(MaxSpeed / speed)
	}
}

func (s *Stepper) noClip(ent *Entity) {
	sec := s.FrameSeconds()
	ent.State.Angles = ent.State.Angles.Add(ent.AVelocity.Mul(sec))
	ent.State.Origin = ent.State.Origin.Add(ent.Velocity.Mul(sec))
	s.World.LinkEntity(ent)
}

// TouchOccupy 移动后与占据区域内的实体交互
func (s *Stepper) TouchOccupy(ent *Entity) error {
	if ent.State.Solid != core.SolidBox && ent.State.Solid != core.SolidDead {
		return nil
	}

	ents, err := s.World.BoxEntities(ent.AbsMins, ent.AbsMaxs, BoxOccupy)
	if err != nil {
		return err
	}
	for _, occupied := range ents {
		if occupied == ent {
			continue
		}
		s.touch(occupied, ent, nil, nil)
		if !ent.InUse {
			break
		}
	}
	return nil
}
