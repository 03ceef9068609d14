package client

import (
	"image/color"
	"math"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// 输入参数
const (
	moveSpeed = 300 // 前后左右的指令速度
	turnSpeed = 180 // 每秒转向角度
)

// ControlScheme 按键方案
type ControlScheme int

const (
	ControlWASD  ControlScheme = iota // WASD 移动 + 方向键转向 + 空格跳跃
	ControlArrow                      // 方向键移动 + Q/E 转向 + 回车跳跃
)

func (c ControlScheme) String() string {
	switch c {
	case ControlWASD:
		return "WASD+空格"
	case ControlArrow:
		return "方向键+回车"
	}
	return "未知"
}

// LocalInput 本地玩家输入，每次更新生成一条移动指令
type LocalInput struct {
	scheme ControlScheme
	yaw    float32
}

// NewLocalInput 创建本地输入
func NewLocalInput(scheme ControlScheme) *LocalInput {
	return &LocalInput{scheme: scheme}
}

// SetYaw 用服务器视角初始化朝向
func (in *LocalInput) SetYaw(yaw float32) {
	in.yaw = yaw
}

// Yaw 当前朝向
func (in *LocalInput) Yaw() float32 {
	return in.yaw
}

// Command 读取键盘生成持续 msec 毫秒的指令
func (in *LocalInput) Command(msec uint8) core.UserCmd {
	var forward, back, left, right, turnLeft, turnRight, jump, attack bool
	if in.scheme == ControlWASD {
		forward = ebiten.IsKeyPressed(ebiten.KeyW)
		back = ebiten.IsKeyPressed(ebiten.KeyS)
		left = ebiten.IsKeyPressed(ebiten.KeyA)
		right = ebiten.IsKeyPressed(ebiten.KeyD)
		turnLeft = ebiten.IsKeyPressed(ebiten.KeyArrowLeft)
		turnRight = ebiten.IsKeyPressed(ebiten.KeyArrowRight)
		jump = ebiten.IsKeyPressed(ebiten.KeySpace)
		attack = ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	} else {
		forward = ebiten.IsKeyPressed(ebiten.KeyArrowUp)
		back = ebiten.IsKeyPressed(ebiten.KeyArrowDown)
		left = ebiten.IsKeyPressed(ebiten.KeyArrowLeft)
		right = ebiten.IsKeyPressed(ebiten.KeyArrowRight)
		turnLeft = ebiten.IsKeyPressed(ebiten.KeyQ)
		turnRight = ebiten.IsKeyPressed(ebiten.KeyE)
		jump = ebiten.IsKeyPressed(ebiten.KeyEnter)
		attack = ebiten.IsKeyPressed(ebiten.KeyControlRight)
	}

	dt := float32(msec) / 1000
	if turnLeft {
		in.yaw += turnSpeed * dt
	}
	if turnRight {
		in.yaw -= turnSpeed * dt
	}

	cmd := core.UserCmd{Msec: msec}
	cmd.Angles[core.Yaw] = core.PackAngle(in.yaw)
	cmd.Forward = axis(forward, back) * moveSpeed
	cmd.Right = axis(right, left) * moveSpeed
	if jump {
		cmd.Up = moveSpeed
	}
	if attack {
		cmd.Buttons |= core.ButtonAttack
	}
	if cmd.Forward != 0 || cmd.Right != 0 || cmd.Up != 0 || cmd.Buttons != 0 {
		cmd.Buttons |= core.ButtonAny
	}
	return cmd
}

func axis(pos, neg bool) int16 {
	var v int16
	if pos {
		v++
	}
	if neg {
		v--
	}
	return v
}

// EntityRenderer 俯视绘制实体
type EntityRenderer struct {
	m *MapRenderer
}

// entityColor 按实体类型选择颜色
func entityColor(s *core.EntityState, player, local bool) color.Color {
	switch {
	case local:
		return color.RGBA{80, 200, 120, 255}
	case player:
		return color.RGBA{220, 70, 60, 255}
	case s.Effects&core.EffectRocket != 0:
		return color.RGBA{255, 160, 40, 255}
	case s.Effects&core.EffectGrenade != 0:
		return color.RGBA{120, 160, 60, 255}
	case s.Effects&(core.EffectRotate|core.EffectBob) != 0:
		return color.RGBA{240, 220, 80, 255}
	}
	return color.RGBA{150, 150, 170, 255}
}

// Draw 绘制插值后的实体，玩家带朝向指示
func (r *EntityRenderer) Draw(screen *ebiten.Image, ent *Entity, frac float32, player, local bool) {
	s := &ent.Current
	if s.Effects&core.EffectNoDraw != 0 {
		return
	}

	origin := ent.Lerp(frac)
	x, y := r.m.ToScreen(origin)
	c := entityColor(s, player, local)

	radius := r.m.Length(16)
	if s.Effects&(core.EffectRocket|core.EffectGrenade) != 0 {
		radius = max(r.m.Length(4), 2)
	}
	vector.DrawFilledCircle(screen, x, y, radius, c, true)

	if s.Effects&core.EffectBeam != 0 {
		tx, ty := r.m.ToScreen(s.Termination)
		vector.StrokeLine(screen, x, y, tx, ty, 2, c, true)
	}

	if player {
		yaw := float64(mgl32.DegToRad(ent.LerpAngles(frac)[core.Yaw]))
		dx := float32(math.Cos(yaw)) * radius * 1.8
		dy := -float32(math.Sin(yaw)) * radius * 1.8
		vector.StrokeLine(screen, x, y, x+dx, y+dy, 2, color.White, true)
	}
}
