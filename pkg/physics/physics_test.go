package physics

import (
	"errors"
	"math"
	"testing"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

const testFrameMillis = 100

var floorBrush = Brush{Mins: mgl32.Vec3{-1024, -1024, -64}, Maxs: mgl32.Vec3{1024, 1024, 0}, Contents: ContentsSolid}

func newTestStepper(space *Space, gravity float32) *Stepper {
	s := NewStepper(space, testFrameMillis, gravity)
	s.Time = 1000
	return s
}

var nextNumber uint16 = 1

func spawn(space *Space, move MoveType, solid uint16, origin, mins, maxs mgl32.Vec3) *Entity {
	ent := &Entity{InUse: true, MoveType: move, Mins: mins, Maxs: maxs}
	ent.State.Number = nextNumber
	nextNumber++
	ent.State.Origin = origin
	ent.State.Solid = solid
	space.LinkEntity(ent)
	return ent
}

func box(size float32) (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{-size, -size, -size}, mgl32.Vec3{size, size, size}
}

type thinkCounter struct{ n int }

func (t *thinkCounter) Think(*Stepper, *Entity) { t.n++ }

func TestClipVelocity(t *testing.T) {
	tests := []struct {
		name   string
		in     mgl32.Vec3
		normal mgl32.Vec3
		bounce float32
		want   mgl32.Vec3
	}{
		{"slide", mgl32.Vec3{100, 0, -100}, mgl32.Vec3{0, 0, 1}, 1, mgl32.Vec3{100, 0, 0}},
		{"bounce", mgl32.Vec3{0, 0, -100}, mgl32.Vec3{0, 0, 1}, 1.33, mgl32.Vec3{0, 0, 33}},
		{"stop epsilon", mgl32.Vec3{0.05, 0, -10}, mgl32.Vec3{0, 0, 1}, 1, mgl32.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClipVelocity(tt.in, tt.normal, tt.bounce)
			if !got.ApproxEqualThreshold(tt.want, 1e-3) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunThinkWindow(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)
	counter := &thinkCounter{}
	ent := spawn(space, MoveNone, core.SolidNot, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{})
	ent.Behavior = counter

	ent.NextThink = s.Time + 2
	if err := s.RunEntity(ent); err != nil {
		t.Fatal(err)
	}
	if counter.n != 0 || ent.NextThink == 0 {
		t.Fatalf("thought too early")
	}

	ent.NextThink = s.Time + 1
	s.RunEntity(ent)
	if counter.n != 1 || ent.NextThink != 0 {
		t.Fatalf("think count %d next %d", counter.n, ent.NextThink)
	}

	// 没有 Thinker 的实体只清除 NextThink
	ent.Behavior = nil
	ent.NextThink = s.Time
	s.RunEntity(ent)
	if ent.NextThink != 0 {
		t.Fatal("next think not cleared")
	}
}

func TestClampVelocity(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)
	ent := spawn(space, MoveNoClip, core.SolidNot, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{})
	ent.Velocity = mgl32.Vec3{5000, 0, 0}
	s.RunEntity(ent)
	if l := ent.Velocity.Len(); math.Abs(float64(l-MaxSpeed)) > 0.01 {
		t.Fatalf("speed = %v", l)
	}
	if x := ent.State.Origin.X(); math.Abs(float64(x-240)) > 0.01 {
		t.Fatalf("no clip origin = %v", ent.State.Origin)
	}
}

func TestBadMoveType(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)
	ent := spawn(space, MoveType(99), core.SolidNot, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{})
	if err := s.RunEntity(ent); !errors.Is(err, ErrBadMoveType) {
		t.Fatalf("err = %v", err)
	}
}

type door struct {
	blocked int
	kill    bool
}

func (d *door) Blocked(s *Stepper, self, other *Entity) {
	d.blocked++
	if d.kill {
		s.Free(other)
	}
}

func newDoorScene(t *testing.T, kill bool) (*Stepper, *Entity, *Entity, *Entity, *door) {
	t.Helper()
	space := NewSpace(Brush{Mins: mgl32.Vec3{28.5, -64, -64}, Maxs: mgl32.Vec3{60, 64, 64}, Contents: ContentsSolid})
	s := newTestStepper(space, 0)

	behavior := &door{kill: kill}
	master := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-8, -32, 0}, mgl32.Vec3{8, 32, 64})
	master.Velocity = mgl32.Vec3{100, 0, 0}
	master.NextThink = s.Time + 500
	master.Behavior = behavior

	slave := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-8, 40, 0}, mgl32.Vec3{8, 60, 64})
	slave.Flags |= FlagTeamSlave
	slave.TeamMaster = master
	slave.NextThink = s.Time + 700
	master.Team = []*Entity{slave}

	mins, maxs := box(8)
	obstacle := spawn(space, MoveBounce, core.SolidBox, mgl32.Vec3{20, 0, 16}, mins, maxs)
	return s, master, slave, obstacle, behavior
}

func TestPushBlockedRevertsAtomically(t *testing.T) {
	s, master, slave, obstacle, behavior := newDoorScene(t, false)

	masterOrigin, obstacleOrigin := master.State.Origin, obstacle.State.Origin
	masterThink, slaveThink := master.NextThink, slave.NextThink

	if err := s.RunEntity(slave); err != nil {
		t.Fatal(err)
	}
	if slave.State.Origin != masterOrigin || slave.NextThink != slaveThink {
		t.Fatal("team slave moved on its own")
	}

	if err := s.RunEntity(master); err != nil {
		t.Fatal(err)
	}
	if behavior.blocked != 1 {
		t.Fatalf("blocked called %d times", behavior.blocked)
	}
	if master.State.Origin != masterOrigin || obstacle.State.Origin != obstacleOrigin {
		t.Fatalf("not reverted: master %v obstacle %v", master.State.Origin, obstacle.State.Origin)
	}
	if master.NextThink != masterThink+testFrameMillis || slave.NextThink != slaveThink+testFrameMillis {
		t.Fatalf("think not deferred: %d %d", master.NextThink, slave.NextThink)
	}
}

func TestPushTeamSlaveBlockedRevertsMaster(t *testing.T) {
	space := NewSpace(Brush{Mins: mgl32.Vec3{36.5, 150, -64}, Maxs: mgl32.Vec3{60, 300, 64}, Contents: ContentsSolid})
	s := newTestStepper(space, 0)

	master := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-8, -32, 0}, mgl32.Vec3{8, 32, 64})
	master.Velocity = mgl32.Vec3{100, 0, 0}
	master.NextThink = s.Time + 500

	slave := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-8, 200, 0}, mgl32.Vec3{8, 260, 64})
	slave.Velocity = master.Velocity
	slave.Flags |= FlagTeamSlave
	slave.TeamMaster = master
	slave.NextThink = s.Time + 700
	master.Team = []*Entity{slave}

	mins, maxs := box(8)
	rider := spawn(space, MoveBounce, core.SolidBox, mgl32.Vec3{0, 0, 72}, mins, maxs)
	rider.GroundEntity = master
	obstacle := spawn(space, MoveBounce, core.SolidBox, mgl32.Vec3{20, 230, 16}, mins, maxs)

	if err := s.RunEntity(master); err != nil {
		t.Fatal(err)
	}

	// 主实体与乘客已移动，从属实体受阻后全部回滚
	tests := []struct {
		name string
		ent  *Entity
		want mgl32.Vec3
	}{
		{"master", master, mgl32.Vec3{}},
		{"rider", rider, mgl32.Vec3{0, 0, 72}},
		{"slave", slave, mgl32.Vec3{}},
		{"obstacle", obstacle, mgl32.Vec3{20, 230, 16}},
	}
	for _, tt := range tests {
		if tt.ent.State.Origin != tt.want {
			t.Errorf("%s origin = %v, want %v", tt.name, tt.ent.State.Origin, tt.want)
		}
	}
	if len(s.pushes) != 0 {
		t.Fatalf("%d push records left", len(s.pushes))
	}
	if master.NextThink != s.Time+500+testFrameMillis || slave.NextThink != s.Time+700+testFrameMillis {
		t.Fatalf("think not deferred: %d %d", master.NextThink, slave.NextThink)
	}
}

func TestPushRiderScrapedOffByWorld(t *testing.T) {
	space := NewSpace(Brush{Mins: mgl32.Vec3{24.5, -64, 8}, Maxs: mgl32.Vec3{60, 64, 64}, Contents: ContentsSolid})
	s := newTestStepper(space, 0)

	behavior := &door{}
	platform := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-32, -32, -8}, mgl32.Vec3{32, 32, 0})
	platform.Velocity = mgl32.Vec3{100, 0, 0}
	platform.Behavior = behavior

	mins, maxs := box(16)
	rider := spawn(space, MoveWalk, core.SolidBox, mgl32.Vec3{0, 0, 16}, mins, maxs)
	rider.ClipMask = MaskClipPlayer
	rider.GroundEntity = platform
	ps := &core.PlayerState{}
	ps.PM.DeltaAngles[core.Yaw] = 100
	rider.Client = ps

	if err := s.RunEntity(platform); err != nil {
		t.Fatal(err)
	}
	if behavior.blocked != 0 {
		t.Fatalf("blocked called %d times", behavior.blocked)
	}
	if x := platform.State.Origin.X(); math.Abs(float64(x-10)) > 1e-4 {
		t.Fatalf("platform x = %v", x)
	}
	if rider.State.Origin != (mgl32.Vec3{0, 0, 16}) {
		t.Fatalf("rider origin = %v", rider.State.Origin)
	}
	if ps.PM.Flags&core.PmfPushed != 0 || ps.PM.DeltaAngles[core.Yaw] != 100 {
		t.Fatalf("rider record not reverted: flags %x yaw %d", ps.PM.Flags, ps.PM.DeltaAngles[core.Yaw])
	}
}

func TestPushBlockerClearsObstacle(t *testing.T) {
	s, master, slave, obstacle, behavior := newDoorScene(t, true)

	if err := s.RunEntity(master); err != nil {
		t.Fatal(err)
	}
	if behavior.blocked != 1 || obstacle.InUse {
		t.Fatalf("blocker not applied: %d %v", behavior.blocked, obstacle.InUse)
	}
	if x := master.State.Origin.X(); math.Abs(float64(x-10)) > 1e-4 {
		t.Fatalf("master x = %v", x)
	}
	if slave.State.Origin != master.State.Origin {
		t.Fatalf("slave %v does not mirror master %v", slave.State.Origin, master.State.Origin)
	}
	if master.State.Animation1 != master.MoveInfoState {
		t.Fatal("bsp animation not synced")
	}
}

func TestPushCarriesRider(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 800)

	platform := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-32, -32, -8}, mgl32.Vec3{32, 32, 0})
	platform.Velocity = mgl32.Vec3{0, 0, 100}

	mins, maxs := box(16)
	rider := spawn(space, MoveWalk, core.SolidBox, mgl32.Vec3{0, 0, 16}, mins, maxs)
	rider.ClipMask = MaskClipPlayer
	rider.GroundEntity = platform
	ps := &core.PlayerState{}
	rider.Client = ps

	if err := s.RunEntity(platform); err != nil {
		t.Fatal(err)
	}
	if z := rider.State.Origin.Z(); math.Abs(float64(z-26)) > 1e-4 {
		t.Fatalf("rider z = %v", z)
	}
	if ps.PM.Flags&core.PmfPushed == 0 {
		t.Fatal("rider not flagged as pushed")
	}
}

func TestPushRotatesRiderYaw(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)

	platform := spawn(space, MovePush, core.SolidBSP, mgl32.Vec3{}, mgl32.Vec3{-64, -64, -8}, mgl32.Vec3{64, 64, 0})
	platform.AVelocity = mgl32.Vec3{0, 90, 0}

	mins, maxs := box(8)
	rider := spawn(space, MoveBounce, core.SolidBox, mgl32.Vec3{32, 0, 8}, mins, maxs)
	rider.GroundEntity = platform

	if err := s.RunEntity(platform); err != nil {
		t.Fatal(err)
	}
	if yaw := rider.State.Angles[core.Yaw]; math.Abs(float64(yaw-9)) > 1e-3 {
		t.Fatalf("rider yaw = %v", yaw)
	}
	// 绕推动者旋转 9 度
	want := mgl32.Vec3{32 * float32(math.Cos(math.Pi/20)), 32 * float32(math.Sin(math.Pi/20)), 8}
	if !rider.State.Origin.ApproxEqualThreshold(want, 1e-2) {
		t.Fatalf("rider origin = %v, want %v", rider.State.Origin, want)
	}
}

type stubWorld struct {
	trace Trace
}

func (w *stubWorld) Trace(start, end, mins, maxs mgl32.Vec3, skip *Entity, mask int) Trace {
	if mask == MaskLiquid {
		return Trace{Fraction: 1, End: end}
	}
	return w.trace
}

func (w *stubWorld) BoxEntities(mgl32.Vec3, mgl32.Vec3, BoxKind) ([]*Entity, error) {
	return nil, nil
}

func (w *stubWorld) LinkEntity(*Entity) {}

func (w *stubWorld) UnlinkEntity(*Entity) {}

func TestGroundRequiresStandableSlope(t *testing.T) {
	world := &Entity{InUse: true}
	tests := []struct {
		name    string
		normalZ float32
		ground  bool
	}{
		{"flat", 1, true},
		{"threshold", StepNormal, true},
		{"steep", 0.5, false},
		{"wall", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := mgl32.Vec3{float32(math.Sqrt(float64(1 - tt.normalZ*tt.normalZ))), 0, tt.normalZ}
			w := &stubWorld{trace: Trace{Fraction: 0.5, Ent: world, Plane: Plane{Normal: n}}}
			s := NewStepper(w, testFrameMillis, 800)
			ent := &Entity{InUse: true, MoveType: MoveBounce}
			s.CategorizePosition(ent)
			if (ent.GroundEntity != nil) != tt.ground {
				t.Fatalf("ground = %v, want %v", ent.GroundEntity, tt.ground)
			}
		})
	}
}

func TestNonBounceNeverGrounded(t *testing.T) {
	w := &stubWorld{trace: Trace{Fraction: 0, Ent: &Entity{InUse: true}, Plane: Plane{Normal: mgl32.Vec3{0, 0, 1}}}}
	s := NewStepper(w, testFrameMillis, 800)
	ent := &Entity{InUse: true, MoveType: MoveFly, GroundEntity: &Entity{}}
	s.CategorizePosition(ent)
	if ent.GroundEntity != nil {
		t.Fatal("fly entity kept ground")
	}
}

func TestTossSettlesOnFloor(t *testing.T) {
	space := NewSpace(floorBrush)
	s := newTestStepper(space, 800)
	mins, maxs := box(4)
	grenade := spawn(space, MoveBounce, core.SolidBox, mgl32.Vec3{0, 0, 50}, mins, maxs)
	grenade.Velocity = mgl32.Vec3{50, 0, 0}

	for i := 0; i < 40 && grenade.GroundEntity == nil; i++ {
		if err := s.RunEntity(grenade); err != nil {
			t.Fatal(err)
		}
		s.Time += testFrameMillis
	}
	if grenade.GroundEntity != space.WorldEntity {
		t.Fatalf("grenade not on ground: %v z=%v", grenade.GroundEntity, grenade.State.Origin.Z())
	}
	if z := grenade.State.Origin.Z(); z < 4 || z > 4.25 {
		t.Fatalf("resting z = %v", z)
	}
	if !s.GoodPosition(grenade) {
		t.Fatal("grenade resting inside solid")
	}
}

func TestFlyRollbackWhenStuck(t *testing.T) {
	space := NewSpace(floorBrush)
	s := newTestStepper(space, 0)
	mins, maxs := box(4)
	ent := spawn(space, MoveFly, core.SolidBox, mgl32.Vec3{0, 0, -10}, mins, maxs)
	ent.Velocity = mgl32.Vec3{100, 0, 0}
	ent.AVelocity = mgl32.Vec3{0, 90, 0}

	if err := s.RunEntity(ent); err != nil {
		t.Fatal(err)
	}
	if ent.State.Origin != (mgl32.Vec3{0, 0, -10}) || ent.State.Angles != (mgl32.Vec3{}) {
		t.Fatalf("not rolled back: %v %v", ent.State.Origin, ent.State.Angles)
	}
	if ent.Velocity != (mgl32.Vec3{}) || ent.AVelocity != (mgl32.Vec3{}) {
		t.Fatal("velocity not cleared")
	}
}

type rocket struct {
	touched *Entity
}

func (r *rocket) Touch(s *Stepper, self, other *Entity, plane *Plane, surf *Surface) {
	r.touched = other
	s.Free(self)
}

func TestFlyTouchRemovesSelf(t *testing.T) {
	wall := Brush{Mins: mgl32.Vec3{50, -64, -64}, Maxs: mgl32.Vec3{80, 64, 64}, Contents: ContentsSolid}
	space := NewSpace(wall)
	s := newTestStepper(space, 0)
	mins, maxs := box(2)
	ent := spawn(space, MoveFly, core.SolidMissile, mgl32.Vec3{}, mins, maxs)
	ent.Velocity = mgl32.Vec3{1000, 0, 0}
	r := &rocket{}
	ent.Behavior = r

	if err := s.RunEntity(ent); err != nil {
		t.Fatal(err)
	}
	if r.touched != space.WorldEntity || ent.InUse {
		t.Fatalf("touched %v in use %v", r.touched, ent.InUse)
	}
	if x := ent.State.Origin.X(); x > 48 || x < 47 {
		t.Fatalf("impact x = %v", x)
	}
}

type touchRecorder struct {
	touched *Entity
}

func (r *touchRecorder) Touch(_ *Stepper, _, other *Entity, _ *Plane, _ *Surface) {
	r.touched = other
}

type soundLog struct {
	names []string
}

func (l *soundLog) PositionedSound(_ mgl32.Vec3, _ *Entity, name string, _ uint8) {
	l.names = append(l.names, name)
}

func TestWaterTransitions(t *testing.T) {
	water := Brush{Mins: mgl32.Vec3{0, -64, -64}, Maxs: mgl32.Vec3{128, 64, 64}, Contents: ContentsWater}
	space := NewSpace(water)
	s := newTestStepper(space, 0)
	sounds := &soundLog{}
	s.Sounds = sounds

	mins, maxs := box(4)
	ent := spawn(space, MoveBounce, core.SolidBox, mgl32.Vec3{-10, 0, 0}, mins, maxs)
	ent.Velocity = mgl32.Vec3{200, 0, 0}

	s.RunEntity(ent)
	if ent.WaterLevel != 1 || ent.WaterType&ContentsWater == 0 {
		t.Fatalf("water level %d type %x", ent.WaterLevel, ent.WaterType)
	}
	if len(sounds.names) != 1 || sounds.names[0] != SoundWaterIn {
		t.Fatalf("sounds = %v", sounds.names)
	}
	// 空气摩擦后 198 再乘以入水衰减
	if vx := ent.Velocity.X(); math.Abs(float64(vx-198*0.66)) > 0.01 {
		t.Fatalf("velocity after entering water = %v", vx)
	}

	ent.State.Origin = mgl32.Vec3{200, 0, 0}
	ent.Velocity = mgl32.Vec3{}
	s.RunEntity(ent)
	if ent.WaterLevel != 0 || len(sounds.names) != 2 || sounds.names[1] != SoundWaterOut {
		t.Fatalf("level %d sounds %v", ent.WaterLevel, sounds.names)
	}
}

func TestCurrentsAccelerate(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)
	ent := &Entity{InUse: true, GroundEntity: space.WorldEntity, GroundContents: ContentsCurrent90}
	s.currents(ent)
	if vy := ent.Velocity.Y(); math.Abs(float64(vy-100)) > 1e-3 {
		t.Fatalf("vy = %v", vy)
	}
	s.currents(ent)
	if vy := ent.Velocity.Y(); math.Abs(float64(vy-100)) > 1e-3 {
		t.Fatalf("current overshoot: %v", vy)
	}

	ent = &Entity{InUse: true, WaterLevel: 1, WaterType: ContentsWater | ContentsCurrent0 | ContentsCurrent180}
	s.currents(ent)
	if ent.Velocity != (mgl32.Vec3{}) {
		t.Fatalf("opposing currents moved entity: %v", ent.Velocity)
	}
}

func TestFrictionSlick(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)
	normal := &Entity{GroundEntity: space.WorldEntity, Velocity: mgl32.Vec3{300, 0, 0}}
	slick := &Entity{GroundEntity: space.WorldEntity, GroundSurface: &Surface{Flags: SurfSlick}, Velocity: mgl32.Vec3{300, 0, 0}}
	s.friction(normal)
	s.friction(slick)
	if normal.Velocity.X() != 0 {
		t.Fatalf("ground friction left %v", normal.Velocity.X())
	}
	if vx := slick.Velocity.X(); math.Abs(float64(vx-240)) > 1e-3 {
		t.Fatalf("slick friction left %v", vx)
	}
}

func TestTouchOccupy(t *testing.T) {
	space := NewSpace()
	s := newTestStepper(space, 0)
	mins, maxs := box(16)
	trigger := spawn(space, MoveNone, core.SolidTrigger, mgl32.Vec3{}, mins, maxs)
	r := &touchRecorder{}
	trigger.Behavior = r

	bmins, bmaxs := box(4)
	ent := spawn(space, MoveNone, core.SolidBox, mgl32.Vec3{8, 0, 0}, bmins, bmaxs)
	if err := s.TouchOccupy(ent); err != nil {
		t.Fatal(err)
	}
	if r.touched != ent {
		t.Fatalf("trigger touched %v", r.touched)
	}

	space.MaxBoxEntities = 0
	if err := s.TouchOccupy(ent); !errors.Is(err, ErrBoxOverflow) {
		t.Fatalf("err = %v", err)
	}
}

func TestClientMoveWalksOnFloor(t *testing.T) {
	space := NewSpace(floorBrush)
	s := newTestStepper(space, 800)
	mins := mgl32.Vec3{-16, -16, -24}
	maxs := mgl32.Vec3{16, 16, 32}
	player := spawn(space, MoveWalk, core.SolidBox, mgl32.Vec3{0, 0, 24 + distEpsilon}, mins, maxs)
	player.ClipMask = MaskClipPlayer
	player.Client = &core.PlayerState{}

	cmd := &core.UserCmd{Msec: testFrameMillis, Forward: 300}
	for i := 0; i < 5; i++ {
		if err := s.ClientMove(player, cmd); err != nil {
			t.Fatal(err)
		}
	}
	if player.GroundEntity == nil || player.Client.PM.Flags&core.PmfOnGround == 0 {
		t.Fatal("player left the ground")
	}
	if player.State.Origin.X() <= 0 || player.Client.PM.Origin != player.State.Origin {
		t.Fatalf("player origin %v pm %v", player.State.Origin, player.Client.PM.Origin)
	}

	jump := &core.UserCmd{Msec: testFrameMillis, Up: 200}
	s.ClientMove(player, jump)
	if player.State.Event != core.EventClientJump || player.GroundEntity != nil {
		t.Fatalf("jump event %v ground %v", player.State.Event, player.GroundEntity)
	}
}
