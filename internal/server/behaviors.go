package server

import (
	"log"
	"math"

	"arena/pkg/core"
	"arena/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
)

func playSound(s *physics.Stepper, ent *physics.Entity, name string, atten uint8) {
	if s.Sounds != nil {
		s.Sounds.PositionedSound(ent.State.Origin, ent, name, atten)
	}
}

// 移动器状态，同时作为 BSP 实体的动画帧
const (
	moverTop uint8 = iota
	moverBottom
	moverUp
	moverDown
)

// mover 在 pos1（底部）与 pos2（顶部）之间往返的推动者
// 整帧匀速移动，最后一帧按剩余距离调整速度，保证精确停在终点
type mover struct {
	pos1, pos2 mgl32.Vec3
	speed      float32
	wait       uint32 // 到达后停留的毫秒数
	reverse    bool   // 受阻时反向
	sound      string

	dest  mgl32.Vec3
	final bool
}

func (m *mover) Think(s *physics.Stepper, self *physics.Entity) {
	switch {
	case m.final:
		m.finish(s, self)
	case self.MoveInfoState == moverUp || self.MoveInfoState == moverDown:
		m.done(s, self)
	case self.MoveInfoState == moverTop:
		m.begin(s, self, m.pos1, moverDown)
	default:
		m.begin(s, self, m.pos2, moverUp)
	}
}

func (m *mover) Blocked(s *physics.Stepper, self, other *physics.Entity) {
	if !m.reverse {
		return
	}
	switch self.MoveInfoState {
	case moverUp:
		m.begin(s, self, m.pos1, moverDown)
	case moverDown:
		m.begin(s, self, m.pos2, moverUp)
	}
}

func (m *mover) begin(s *physics.Stepper, self *physics.Entity, dest mgl32.Vec3, state uint8) {
	self.MoveInfoState = state
	m.dest = dest

	if m.sound != "" {
		playSound(s, self, m.sound, core.AttenIdle)
	}

	delta := dest.Sub(self.State.Origin)
	dist := delta.Len()
	perFrame := m.speed * s.FrameSeconds()
	frames := uint32(math.Floor(float64(dist / perFrame)))
	if frames == 0 {
		m.finish(s, self)
		return
	}

	m.final = false
	m.setVelocity(self, delta.Mul(m.speed/dist))
	self.NextThink = s.Time + frames*s.FrameMillis
}

// finish 最后一帧走完剩余距离
func (m *mover) finish(s *physics.Stepper, self *physics.Entity) {
	m.final = false
	remaining := m.dest.Sub(self.State.Origin)
	if remaining.Len() < 0.01 {
		m.done(s, self)
		return
	}
	m.setVelocity(self, remaining.Mul(1/s.FrameSeconds()))
	self.NextThink = s.Time + s.FrameMillis
	m.final = true
}

func (m *mover) done(s *physics.Stepper, self *physics.Entity) {
	m.setVelocity(self, mgl32.Vec3{})
	if self.MoveInfoState == moverDown {
		self.MoveInfoState = moverBottom
	} else {
		self.MoveInfoState = moverTop
	}
	self.NextThink = s.Time + m.wait
}

func (m *mover) setVelocity(self *physics.Entity, v mgl32.Vec3) {
	self.Velocity = v
	for _, part := range self.Team {
		part.Velocity = v
	}
}

// item 可拾取物品，拾取后隐藏 respawn 毫秒
type item struct {
	armor   int16
	respawn uint32
}

func (it *item) Touch(s *physics.Stepper, self, other *physics.Entity, plane *physics.Plane, surf *physics.Surface) {
	if other.Client == nil || other.Dead {
		return
	}
	stats := &other.Client.Stats
	if stats[core.StatArmor] >= 100 {
		return
	}
	stats[core.StatArmor] = min(stats[core.StatArmor]+it.armor, 100)
	other.State.Event = core.EventItemPickup
	playSound(s, other, soundItemPickup, core.AttenNorm)

	self.State.Solid = core.SolidNot
	self.State.Effects |= core.EffectNoDraw
	s.World.LinkEntity(self)
	self.NextThink = s.Time + it.respawn
}

func (it *item) Think(s *physics.Stepper, self *physics.Entity) {
	self.State.Solid = core.SolidTrigger
	self.State.Effects &^= core.EffectNoDraw
	self.State.Event = core.EventItemRespawn
	s.World.LinkEntity(self)
	playSound(s, self, soundItemRespawn, core.AttenIdle)
}

// drone 周期性反向的巡游
type drone struct {
	period uint32
}

func (d *drone) Think(s *physics.Stepper, self *physics.Entity) {
	self.Velocity = self.Velocity.Mul(-1)
	self.NextThink = s.Time + d.period
}

// launcher 按固定间隔向不同方向抛出手雷
type launcher struct {
	level  *Level
	period uint32
	count  int
}

func (ln *launcher) Think(s *physics.Stepper, self *physics.Entity) {
	self.NextThink = s.Time + ln.period

	model := ln.level.ModelIndex("models/objects/grenade")
	if model == 0 {
		log.Printf("[WARN] 手雷模型未注册，跳过本次投掷")
		return
	}
	g := ln.level.Spawn("grenade")
	if g == nil {
		return
	}
	yaw := float64(ln.count%8) * math.Pi / 4
	ln.count++

	g.MoveType = physics.MoveBounce
	g.ClipMask = physics.MaskClipProjectile
	g.Mins, g.Maxs = mgl32.Vec3{-3, -3, -3}, mgl32.Vec3{3, 3, 3}
	g.State.Solid = core.SolidMissile
	g.State.Origin = self.State.Origin
	g.State.Model1 = uint8(model)
	g.State.Effects = core.EffectGrenade
	g.State.Trail = core.TrailSmoke
	g.Velocity = mgl32.Vec3{float32(math.Cos(yaw)) * 250, float32(math.Sin(yaw)) * 250, 300}
	g.AVelocity = mgl32.Vec3{300, 0, 300}
	g.Behavior = &grenade{}
	g.NextThink = s.Time + 2500
	s.World.LinkEntity(g)
}

// grenade 定时爆炸
type grenade struct{}

func (grenade) Think(s *physics.Stepper, self *physics.Entity) {
	playSound(s, self, soundGrenadeExplode, core.AttenNorm)
	s.Free(self)
}

// rocket 碰到任何东西即消失，击中玩家时施加击退
type rocket struct {
	owner *physics.Entity
}

const (
	rocketSpeed     = 900
	rocketKnockback = 400
	rocketLifetime  = 5000
)

func (r *rocket) Touch(s *physics.Stepper, self, other *physics.Entity, plane *physics.Plane, surf *physics.Surface) {
	if other == r.owner {
		return
	}
	playSound(s, self, soundRocketHit, core.AttenNorm)
	if other.Client != nil {
		other.Velocity = other.Velocity.Add(self.Velocity.Normalize().Mul(rocketKnockback))
		other.GroundEntity = nil
	}
	s.Free(self)
}

func (r *rocket) Think(s *physics.Stepper, self *physics.Entity) {
	s.Free(self)
}

// fireRocket 从客户端视点发射火箭
func (l *Level) fireRocket(owner *physics.Entity) {
	model := l.ModelIndex("models/objects/rocket")
	if model == 0 {
		log.Printf("[WARN] 火箭模型未注册，取消发射")
		return
	}
	ent := l.Spawn("rocket")
	if ent == nil {
		return
	}

	forward, _, _ := core.AngleVectors(owner.Client.Angles)
	eye := owner.State.Origin.Add(mgl32.Vec3{0, 0, playerViewHeight})

	ent.MoveType = physics.MoveFly
	ent.ClipMask = physics.MaskClipProjectile
	ent.Mins, ent.Maxs = mgl32.Vec3{-2, -2, -2}, mgl32.Vec3{2, 2, 2}
	ent.State.Solid = core.SolidMissile
	ent.State.Origin = eye.Add(forward.Mul(28))
	ent.State.Angles = owner.Client.Angles
	ent.State.Model1 = uint8(model)
	ent.State.Effects = core.EffectRocket
	ent.State.Trail = core.TrailSmoke
	ent.Velocity = forward.Mul(rocketSpeed)
	ent.Behavior = &rocket{owner: owner}
	ent.NextThink = l.time + rocketLifetime

	if !l.stepper.GoodPosition(ent) {
		l.stepper.Free(ent)
		return
	}
	l.space.LinkEntity(ent)
	playSound(l.stepper, owner, soundRocketFire, core.AttenNorm)
}
