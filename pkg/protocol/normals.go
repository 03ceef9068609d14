package protocol

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NumApproximateNormals 近似法线表大小
const NumApproximateNormals = 162

// approximateNormals 在单位球上均匀分布的法线表（黄金角螺旋），两端必须生成相同的表
var approximateNormals = buildApproximateNormals()

func buildApproximateNormals() [NumApproximateNormals]mgl32.Vec3 {
	var normals [NumApproximateNormals]mgl32.Vec3
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < NumApproximateNormals; i++ {
		z := 1 - (float64(i)+0.5)*2/NumApproximateNormals
		radius := math.Sqrt(1 - z*z)
		theta := golden * float64(i)
		normals[i] = mgl32.Vec3{
			float32(math.Cos(theta) * radius),
			float32(math.Sin(theta) * radius),
			float32(z),
		}
	}
	return normals
}

// ApproximateNormal 返回索引对应的法线
func ApproximateNormal(index int) (mgl32.Vec3, bool) {
	if index < 0 || index >= NumApproximateNormals {
		return mgl32.Vec3{}, false
	}
	return approximateNormals[index], true
}

// NearestNormal 返回点积最大的法线索引，零向量返回 0
func NearestNormal(dir mgl32.Vec3) int {
	best := 0
	var bestDot float32
	for i := range approximateNormals {
		if d := dir.Dot(approximateNormals[i]); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return best
}
