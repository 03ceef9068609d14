package client

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// 竞技场范围与网格（世界单位）
const (
	arenaHalfSize = 1024
	gridSize      = 128
)

// MapRenderer 俯视网格渲染器，世界原点位于屏幕中心
type MapRenderer struct {
	scale float32 // 每像素世界单位
}

// NewMapRenderer 创建地图渲染器
func NewMapRenderer(scale float64) *MapRenderer {
	return &MapRenderer{scale: float32(scale)}
}

// ToScreen 世界坐标转换为屏幕坐标，y 轴朝上
func (m *MapRenderer) ToScreen(v mgl32.Vec3) (float32, float32) {
	return ScreenWidth/2 + v[0]/m.scale, ScreenHeight/2 - v[1]/m.scale
}

// Length 世界长度转换为像素
func (m *MapRenderer) Length(units float32) float32 {
	return units / m.scale
}

// Draw 绘制地面网格与围墙
func (m *MapRenderer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{24, 28, 32, 255})

	for u := float32(-arenaHalfSize); u <= arenaHalfSize; u += gridSize {
		x0, y0 := m.ToScreen(mgl32.Vec3{u, -arenaHalfSize, 0})
		x1, y1 := m.ToScreen(mgl32.Vec3{u, arenaHalfSize, 0})
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, color.RGBA{48, 56, 64, 255}, false)

		x0, y0 = m.ToScreen(mgl32.Vec3{-arenaHalfSize, u, 0})
		x1, y1 = m.ToScreen(mgl32.Vec3{arenaHalfSize, u, 0})
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, color.RGBA{48, 56, 64, 255}, false)
	}

	// 围墙
	x, y := m.ToScreen(mgl32.Vec3{-arenaHalfSize, arenaHalfSize, 0})
	size := m.Length(2 * arenaHalfSize)
	vector.StrokeRect(screen, x, y, size, size, 3, color.RGBA{120, 120, 120, 255}, false)

	// 冰面与水池
	m.drawZone(screen, mgl32.Vec3{-640, -640, 0}, mgl32.Vec3{-384, -384, 0}, color.RGBA{160, 210, 230, 60})
	m.drawZone(screen, mgl32.Vec3{384, 384, 0}, mgl32.Vec3{704, 704, 0}, color.RGBA{40, 90, 200, 80})
}

func (m *MapRenderer) drawZone(screen *ebiten.Image, mins, maxs mgl32.Vec3, c color.Color) {
	x, y := m.ToScreen(mgl32.Vec3{mins[0], maxs[1], 0})
	vector.DrawFilledRect(screen, x, y, m.Length(maxs[0]-mins[0]), m.Length(maxs[1]-mins[1]), c, false)
}
