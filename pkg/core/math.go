package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PackAngle 将角度打包为 16 位整数（360 度映射到 65536）
func PackAngle(deg float32) int16 {
	v := math.Round(float64(deg) * 65536.0 / 360.0)
	return int16(uint16(int64(v)))
}

// UnpackAngle 将 16 位整数还原为角度，范围 [-180, 180)
func UnpackAngle(v int16) float32 {
	return float32(v) * (360.0 / 65536.0)
}

// AngleVectors 根据欧拉角计算前、右、上方向向量
func AngleVectors(angles mgl32.Vec3) (forward, right, up mgl32.Vec3) {
	yaw := float64(mgl32.DegToRad(angles[Yaw]))
	pitch := float64(mgl32.DegToRad(angles[Pitch]))
	roll := float64(mgl32.DegToRad(angles[Roll]))

	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)
	sr, cr := math.Sincos(roll)

	forward = mgl32.Vec3{float32(cp * cy), float32(cp * sy), float32(-sp)}
	right = mgl32.Vec3{
		float32(-sr*sp*cy + cr*sy),
		float32(-sr*sp*sy - cr*cy),
		float32(-sr * cp),
	}
	up = mgl32.Vec3{
		float32(cr*sp*cy + sr*sy),
		float32(cr*sp*sy - sr*cy),
		float32(cr * cp),
	}
	return forward, right, up
}

// LerpVec3 线性插值
func LerpVec3(from, to mgl32.Vec3, frac float32) mgl32.Vec3 {
	return from.Add(to.Sub(from).Mul(frac))
}

// LerpAngles 角度插值，处理 360 度回绕
func LerpAngles(from, to mgl32.Vec3, frac float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		delta := to[i] - from[i]
		if delta > 180 {
			delta -= 360
		} else if delta < -180 {
			delta += 360
		}
		out[i] = from[i] + delta*frac
	}
	return out
}
