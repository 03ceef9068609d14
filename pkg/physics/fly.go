package physics

import "github.com/go-gl/mathgl/mgl32"

// ClipVelocity 沿碰撞平面滑动，bounce 大于 1 时反弹
func ClipVelocity(in, normal mgl32.Vec3, bounce float32) mgl32.Vec3 {
	backoff := in.Dot(normal)
	if backoff < 0 {
		backoff *= bounce
	} else {
		backoff /= bounce
	}

	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		out[i] = in[i] - normal[i]*backoff
		if out[i] < StopEpsilon && out[i] > -StopEpsilon {
			out[i] = 0
		}
	}
	return out
}

func (s *Stepper) friction(ent *Entity) {
	vel := ent.Velocity
	if ent.GroundEntity != nil {
		vel[2] = 0
	}

	speed := vel.Len()
	if speed < 1 {
		ent.Velocity = mgl32.Vec3{}
		return
	}

	control := speed
	if control < SpeedStop {
		control = SpeedStop
	}

	var friction float32
	if ent.GroundEntity != nil {
		if ent.GroundSurface != nil && ent.GroundSurface.Flags&SurfSlick != 0 {
			friction = FrictGroundSlick
		} else {
			friction = FrictGround
		}
	} else {
		friction = FrictAir
	}
	friction += FrictWater * float32(ent.WaterLevel)

	scale := speed - friction*control*s.FrameSeconds()
	if scale < 0 {
		scale = 0
	}
	scale /= speed

	ent.Velocity = ent.Velocity.Mul(scale)
	ent.AVelocity = ent.AVelocity.Mul(scale)
}

// Accelerate 向 dir 方向加速至 speed
func (s *Stepper) Accelerate(ent *Entity, dir mgl32.Vec3, speed, accel float32) {
	add := speed - ent.Velocity.Dot(dir)
	if add <= 0 {
		return
	}
	accelSpeed := accel * s.FrameSeconds() * speed
	if accelSpeed > add {
		accelSpeed = add
	}
	ent.Velocity = ent.Velocity.Add(dir.Mul(accelSpeed))
}

func (s *Stepper) gravity(ent *Entity) {
	if ent.GroundEntity != nil {
		return
	}
	g := s.Gravity
	if ent.WaterLevel != 0 {
		g *= GravityWater
	}
	ent.Velocity[2] -= g * s.FrameSeconds()
}

func currentDir(contents int) mgl32.Vec3 {
	var v mgl32.Vec3
	if contents&ContentsCurrent0 != 0 {
		v[0]++
	}
	if contents&ContentsCurrent90 != 0 {
		v[1]++
	}
	if contents&ContentsCurrent180 != 0 {
		v[0]--
	}
	if contents&ContentsCurrent270 != 0 {
		v[1]--
	}
	if contents&ContentsCurrentUp != 0 {
		v[2]++
	}
	if contents&ContentsCurrentDown != 0 {
		v[2]--
	}
	return v
}

func (s *Stepper) currents(ent *Entity) {
	var current mgl32.Vec3
	if ent.WaterLevel != 0 {
		current = current.Add(currentDir(ent.WaterType))
	}
	if ent.GroundEntity != nil {
		current = current.Add(currentDir(ent.GroundContents))
	}

	current = current.Mul(SpeedCurrent)
	speed := current.Len()
	if speed == 0 {
		return
	}
	s.Accelerate(ent, current.Mul(1/speed), speed, AccelGround)
}

func (s *Stepper) flyImpact(ent *Entity, tr *Trace, bounce float32) {
	s.touch(ent, tr.Ent, &tr.Plane, tr.Surface)
	if !ent.InUse || !tr.Ent.InUse {
		return
	}

	s.touch(tr.Ent, ent, nil, nil)
	if !ent.InUse || !tr.Ent.InUse {
		return
	}

	ent.Velocity = ClipVelocity(ent.Velocity, tr.Plane.Normal, bounce)
}

// flyMove 最多裁剪 MaxClipPlanes 次的移动，最终位置无效时回滚本帧并清零速度
func (s *Stepper) flyMove(ent *Entity, bounce float32) {
	origin, angles := ent.State.Origin, ent.State.Angles

	mask := ent.ClipMask
	if mask == 0 {
		mask = MaskSolid
	}

	remaining := s.FrameSeconds()
	for i := 0; i < MaxClipPlanes; i++ {
		if remaining <= 0 {
			break
		}

		pos := ent.State.Origin.Add(ent.Velocity.Mul(remaining))
		tr := s.World.Trace(ent.State.Origin, pos, ent.Mins, ent.Maxs, ent, mask)

		t := tr.Fraction * remaining
		ent.State.Origin = ent.State.Origin.Add(ent.Velocity.Mul(t))
		ent.State.Angles = ent.State.Angles.Add(ent.AVelocity.Mul(t))
		remaining -= t

		if tr.Ent != nil {
			s.flyImpact(ent, &tr, bounce)
			if !ent.InUse {
				return
			}
		}
	}

	if s.GoodPosition(ent) {
		s.World.LinkEntity(ent)
		return
	}

	s.debugf("%s 位置无效，回滚", ent)
	ent.State.Origin, ent.State.Angles = origin, angles
	ent.Velocity = mgl32.Vec3{}
	ent.AVelocity = mgl32.Vec3{}
}

func (s *Stepper) fly(ent *Entity) error {
	s.flyMove(ent, BounceFly)
	if !ent.InUse {
		return nil
	}
	if err := s.TouchOccupy(ent); err != nil {
		return err
	}
	if ent.InUse {
		s.CategorizePosition(ent)
	}
	return nil
}

func (s *Stepper) toss(ent *Entity) error {
	s.friction(ent)
	s.gravity(ent)
	s.currents(ent)

	s.flyMove(ent, BounceToss)
	if !ent.InUse {
		return nil
	}
	if err := s.TouchOccupy(ent); err != nil {
		return err
	}
	if ent.InUse {
		s.CategorizePosition(ent)
	}
	return nil
}
