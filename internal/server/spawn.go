package server

import (
	"errors"
	"fmt"

	"arena/pkg/core"
	"arena/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
)

var errNoFreeEntity = errors.New("没有空闲实体")

type spawnPoint struct {
	origin mgl32.Vec3
	yaw    float32
}

// 关卡中预先注册的音效
const (
	soundDoorMove       = "world/door_move"
	soundPlatMove       = "world/plat_move"
	soundItemPickup     = "items/pickup_armor"
	soundItemRespawn    = "items/respawn"
	soundGrenadeExplode = "weapons/grenade_explode"
	soundRocketFire     = "weapons/rocket_fire"
	soundRocketHit      = "weapons/rocket_hit"
)

// spawnMap 构建内置竞技场：地面、围墙、冰面、带水流的水池以及各类移动实体
func (l *Level) spawnMap() error {
	const half, height = 1024, 256

	solid := physics.ContentsSolid
	l.space.AddBrush(physics.Brush{Mins: mgl32.Vec3{-half, -half, -64}, Maxs: mgl32.Vec3{half, half, 0}, Contents: solid})
	l.space.AddBrush(physics.Brush{Mins: mgl32.Vec3{-half - 64, -half, 0}, Maxs: mgl32.Vec3{-half, half, height}, Contents: solid})
	l.space.AddBrush(physics.Brush{Mins: mgl32.Vec3{half, -half, 0}, Maxs: mgl32.Vec3{half + 64, half, height}, Contents: solid})
	l.space.AddBrush(physics.Brush{Mins: mgl32.Vec3{-half, -half - 64, 0}, Maxs: mgl32.Vec3{half, -half, height}, Contents: solid})
	l.space.AddBrush(physics.Brush{Mins: mgl32.Vec3{-half, half, 0}, Maxs: mgl32.Vec3{half, half + 64, height}, Contents: solid})

	ice := &physics.Surface{Name: "ice", Flags: physics.SurfSlick}
	l.space.AddBrush(physics.Brush{Mins: mgl32.Vec3{-640, -640, 0}, Maxs: mgl32.Vec3{-384, -384, 4}, Contents: solid, Surface: ice})
	l.space.AddBrush(physics.Brush{
		Mins:     mgl32.Vec3{384, 384, 0},
		Maxs:     mgl32.Vec3{704, 704, 64},
		Contents: physics.ContentsWater | physics.ContentsCurrent90,
	})

	l.spawnPoints = []spawnPoint{
		{origin: mgl32.Vec3{-768, -768, 25}, yaw: 45},
		{origin: mgl32.Vec3{768, -768, 25}, yaw: 135},
		{origin: mgl32.Vec3{768, 768, 25}, yaw: 225},
		{origin: mgl32.Vec3{-768, 768, 25}, yaw: 315},
	}

	for _, name := range []string{
		physics.SoundWaterIn, physics.SoundWaterOut,
		soundDoorMove, soundPlatMove, soundItemPickup, soundItemRespawn,
		soundGrenadeExplode, soundRocketFire, soundRocketHit,
	} {
		l.SoundIndex(name)
	}
	l.ImageIndex("pics/health")
	l.ImageIndex("pics/armor")

	steps := []func() error{
		func() error { return l.spawnDoor(mgl32.Vec3{0, 512, 0}) },
		func() error { return l.spawnPlatform(mgl32.Vec3{-512, 0, 0}) },
		func() error { return l.spawnRotating(mgl32.Vec3{512, -384, 0}) },
		func() error { return l.spawnItem(mgl32.Vec3{0, -256, 16}) },
		func() error { return l.spawnDrone(mgl32.Vec3{0, 0, 160}) },
		func() error { return l.spawnLauncher(mgl32.Vec3{-512, 512, 96}) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Level) spawnEntity(classname string) (*physics.Entity, error) {
	ent := l.Spawn(classname)
	if ent == nil {
		return nil, fmt.Errorf("%w: %s", errNoFreeEntity, classname)
	}
	return ent, nil
}

// spawnDoor 两扇门组成的队伍，主实体驱动，受阻时反向
func (l *Level) spawnDoor(origin mgl32.Vec3) error {
	master, err := l.spawnEntity("func_door")
	if err != nil {
		return err
	}
	slave, err := l.spawnEntity("func_door")
	if err != nil {
		return err
	}

	for _, part := range []*physics.Entity{master, slave} {
		part.MoveType = physics.MovePush
		part.State.Solid = core.SolidBSP
		part.State.Origin = origin
		part.State.Model1 = uint8(l.ModelIndex("*1"))
	}
	master.Mins, master.Maxs = mgl32.Vec3{-64, -8, 0}, mgl32.Vec3{0, 8, 128}
	slave.Mins, slave.Maxs = mgl32.Vec3{0, -8, 0}, mgl32.Vec3{64, 8, 128}
	slave.State.Model1 = uint8(l.ModelIndex("*2"))

	slave.Flags |= physics.FlagTeamSlave
	slave.TeamMaster = master
	master.TeamMaster = master
	master.Team = []*physics.Entity{slave}

	master.Behavior = &mover{
		pos1:    origin,
		pos2:    origin.Add(mgl32.Vec3{0, 0, 120}),
		speed:   100,
		wait:    2000,
		reverse: true,
		sound:   soundDoorMove,
	}
	master.MoveInfoState = moverBottom
	master.NextThink = l.time + 1000

	l.space.LinkEntity(master)
	l.space.LinkEntity(slave)
	return nil
}

// spawnPlatform 升降平台，受阻时停下等待
func (l *Level) spawnPlatform(origin mgl32.Vec3) error {
	plat, err := l.spawnEntity("func_plat")
	if err != nil {
		return err
	}
	plat.MoveType = physics.MoveStop
	plat.State.Solid = core.SolidBSP
	plat.State.Origin = origin
	plat.State.Model1 = uint8(l.ModelIndex("*3"))
	plat.Mins, plat.Maxs = mgl32.Vec3{-64, -64, -8}, mgl32.Vec3{64, 64, 0}
	plat.Behavior = &mover{
		pos1:  origin,
		pos2:  origin.Add(mgl32.Vec3{0, 0, 192}),
		speed: 150,
		wait:  1500,
		sound: soundPlatMove,
	}
	plat.MoveInfoState = moverBottom
	plat.NextThink = l.time + 1500

	l.space.LinkEntity(plat)
	return nil
}

// spawnRotating 持续旋转的转盘，站在上面的实体随之转动
func (l *Level) spawnRotating(origin mgl32.Vec3) error {
	ent, err := l.spawnEntity("func_rotating")
	if err != nil {
		return err
	}
	ent.MoveType = physics.MovePush
	ent.State.Solid = core.SolidBSP
	ent.State.Origin = origin
	ent.State.Model1 = uint8(l.ModelIndex("*4"))
	ent.Mins, ent.Maxs = mgl32.Vec3{-96, -96, 0}, mgl32.Vec3{96, 96, 8}
	ent.AVelocity = mgl32.Vec3{0, 30, 0}

	l.space.LinkEntity(ent)
	return nil
}

// spawnItem 可拾取的护甲，拾取后隐藏并定时刷新
func (l *Level) spawnItem(origin mgl32.Vec3) error {
	ent, err := l.spawnEntity("item_armor_body")
	if err != nil {
		return err
	}
	ent.MoveType = physics.MoveNone
	ent.State.Solid = core.SolidTrigger
	ent.State.Origin = origin
	ent.State.Model1 = uint8(l.ModelIndex("models/armor/body"))
	ent.State.Effects = core.EffectRotate | core.EffectBob
	ent.Mins, ent.Maxs = mgl32.Vec3{-16, -16, -16}, mgl32.Vec3{16, 16, 16}
	ent.Behavior = &item{armor: 50, respawn: 20000}

	l.space.LinkEntity(ent)
	return nil
}

// spawnDrone 不受碰撞的巡游装饰物
func (l *Level) spawnDrone(origin mgl32.Vec3) error {
	ent, err := l.spawnEntity("misc_drone")
	if err != nil {
		return err
	}
	ent.MoveType = physics.MoveNoClip
	ent.State.Origin = origin
	ent.State.Model1 = uint8(l.ModelIndex("models/objects/drone"))
	ent.State.Trail = core.TrailEnergy
	ent.Velocity = mgl32.Vec3{0, 120, 0}
	ent.AVelocity = mgl32.Vec3{0, 90, 0}
	ent.Behavior = &drone{period: 3000}
	ent.NextThink = l.time + 3000

	l.space.LinkEntity(ent)
	return nil
}

// spawnLauncher 不可见的发射器，定时向四周抛出手雷
func (l *Level) spawnLauncher(origin mgl32.Vec3) error {
	ent, err := l.spawnEntity("misc_grenade_launcher")
	if err != nil {
		return err
	}
	ent.MoveType = physics.MoveNone
	ent.State.Origin = origin
	ent.Behavior = &launcher{level: l, period: 2000}
	ent.NextThink = l.time + 2000

	l.ModelIndex("models/objects/grenade")
	l.ModelIndex("models/objects/rocket")
	return nil
}

func (l *Level) selectSpawnPoint() spawnPoint {
	for _, spot := range l.spawnPoints {
		ents, err := l.space.BoxEntities(spot.origin.Add(playerMins), spot.origin.Add(playerMaxs), physics.BoxSolid)
		if err == nil && len(ents) == 0 {
			return spot
		}
	}
	return l.spawnPoints[int(l.frameNum)%len(l.spawnPoints)]
}
