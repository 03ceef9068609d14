package physics

import (
	"math"
	"sort"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// distEpsilon 碰撞后沿法线回退的距离
const distEpsilon = 1.0 / 32.0

// Brush 轴对齐的静态几何体
type Brush struct {
	Mins, Maxs mgl32.Vec3
	Contents   int
	Surface    *Surface
}

// Space 基于轴对齐包围盒的碰撞世界
type Space struct {
	WorldEntity *Entity
	Brushes     []Brush

	// MaxBoxEntities 区域查询容量
	MaxBoxEntities int

	// linked 按实体编号升序排列
	linked []*Entity
}

// NewSpace 创建碰撞世界，0 号实体代表静态几何
func NewSpace(brushes ...Brush) *Space {
	world := &Entity{Classname: "worldspawn", InUse: true}
	world.State.Solid = core.SolidBSP
	return &Space{
		WorldEntity:    world,
		Brushes:        brushes,
		MaxBoxEntities: core.MaxEntities,
	}
}

// AddBrush 添加静态几何
func (sp *Space) AddBrush(b Brush) {
	sp.Brushes = append(sp.Brushes, b)
}

// LinkEntity 更新实体的绝对包围盒并加入世界
func (sp *Space) LinkEntity(ent *Entity) {
	if ent.State.Solid == core.SolidBSP && ent.State.Angles != (mgl32.Vec3{}) {
		// 旋转体使用外接球半径
		var radius float32
		for i := 0; i < 3; i++ {
			a := float32(math.Abs(float64(ent.Mins[i])))
			b := float32(math.Abs(float64(ent.Maxs[i])))
			radius = float32(math.Max(float64(radius), math.Max(float64(a), float64(b))))
		}
		r := mgl32.Vec3{radius, radius, radius}
		ent.AbsMins = ent.State.Origin.Sub(r)
		ent.AbsMaxs = ent.State.Origin.Add(r)
	} else {
		ent.AbsMins = ent.State.Origin.Add(ent.Mins)
		ent.AbsMaxs = ent.State.Origin.Add(ent.Maxs)
	}

	one := mgl32.Vec3{1, 1, 1}
	ent.AbsMins = ent.AbsMins.Sub(one)
	ent.AbsMaxs = ent.AbsMaxs.Add(one)

	if ent.State.Solid == core.SolidNot {
		sp.UnlinkEntity(ent)
		return
	}
	if i, ok := sp.findLinked(ent); !ok {
		sp.linked = append(sp.linked, nil)
		copy(sp.linked[i+1:], sp.linked[i:])
		sp.linked[i] = ent
	}
	ent.linked = true
}

// UnlinkEntity 从世界移除实体
func (sp *Space) UnlinkEntity(ent *Entity) {
	if i, ok := sp.findLinked(ent); ok {
		sp.linked = append(sp.linked[:i], sp.linked[i+1:]...)
	}
	ent.linked = false
}

// findLinked 返回实体在 linked 中的下标，不存在时返回插入位置
func (sp *Space) findLinked(ent *Entity) (int, bool) {
	n := ent.State.Number
	i := sort.Search(len(sp.linked), func(i int) bool {
		return sp.linked[i].State.Number >= n
	})
	for j := i; j < len(sp.linked) && sp.linked[j].State.Number == n; j++ {
		if sp.linked[j] == ent {
			return j, true
		}
	}
	return i, false
}

func boxKindMatches(solid uint16, kind BoxKind) bool {
	switch {
	case solid == core.SolidTrigger:
		return kind&BoxOccupy != 0
	case solid > core.SolidTrigger:
		return kind&BoxSolid != 0
	}
	return false
}

func boxesOverlap(aMins, aMaxs, bMins, bMaxs mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if aMins[i] > bMaxs[i] || aMaxs[i] < bMins[i] {
			return false
		}
	}
	return true
}

// BoxEntities 返回绝对包围盒与区域相交的实体，按编号排序
func (sp *Space) BoxEntities(mins, maxs mgl32.Vec3, kind BoxKind) ([]*Entity, error) {
	var out []*Entity
	for _, ent := range sp.linked {
		if !ent.InUse || !boxKindMatches(ent.State.Solid, kind) {
			continue
		}
		if !boxesOverlap(mins, maxs, ent.AbsMins, ent.AbsMaxs) {
			continue
		}
		if len(out) == sp.MaxBoxEntities {
			return nil, ErrBoxOverflow
		}
		out = append(out, ent)
	}
	return out, nil
}

func entityContents(ent *Entity) int {
	switch ent.State.Solid {
	case core.SolidBSP:
		return ContentsSolid
	case core.SolidBox:
		return ContentsMonster
	case core.SolidDead:
		return ContentsDeadMonster
	}
	return 0
}

// Trace 扫掠 mins/maxs 包围盒从 start 到 end，返回最早的碰撞
// 同一距离命中多个实体时取编号最小者，静态几何优先
func (sp *Space) Trace(start, end, mins, maxs mgl32.Vec3, skip *Entity, mask int) Trace {
	tr := Trace{Fraction: 1, End: end}

	for i := range sp.Brushes {
		b := &sp.Brushes[i]
		if b.Contents&mask == 0 {
			continue
		}
		sp.clip(&tr, start, end, mins, maxs, b.Mins, b.Maxs, b.Contents, sp.WorldEntity, b.Surface)
	}

	for _, ent := range sp.linked {
		if ent == skip || !ent.InUse {
			continue
		}
		contents := entityContents(ent)
		if contents&mask == 0 {
			continue
		}
		o := ent.State.Origin
		sp.clip(&tr, start, end, mins, maxs, o.Add(ent.Mins), o.Add(ent.Maxs), contents, ent, nil)
	}

	if tr.StartSolid {
		tr.Fraction = 0
		tr.End = start
	} else if tr.Fraction < 1 {
		tr.End = start.Add(end.Sub(start).Mul(tr.Fraction))
	}
	return tr
}

// clip 用 Minkowski 扩展后的盒子与线段求交
func (sp *Space) clip(tr *Trace, start, end, mins, maxs, boxMins, boxMaxs mgl32.Vec3, contents int, ent *Entity, surf *Surface) {
	lo := boxMins.Sub(maxs)
	hi := boxMaxs.Sub(mins)
	d := end.Sub(start)

	enter := float32(math.Inf(-1))
	exit := float32(math.Inf(1))
	axis := -1
	var axisDelta float32

	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if start[i] <= lo[i] || start[i] >= hi[i] {
				return
			}
			continue
		}
		t1 := (lo[i] - start[i]) / d[i]
		t2 := (hi[i] - start[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > enter {
			enter = t1
			axis = i
			axisDelta = d[i]
		}
		if t2 < exit {
			exit = t2
		}
	}

	if axis < 0 || enter < 0 {
		if exit > 0 {
			// 起点位于盒内
			if !tr.StartSolid {
				tr.Contents = 0
				tr.Ent = ent
			}
			tr.StartSolid = true
			tr.Contents |= contents
			if exit >= 1 {
				tr.AllSolid = true
			}
		}
		return
	}

	if enter >= exit || enter > 1 || tr.StartSolid {
		return
	}

	frac := enter - distEpsilon/float32(math.Abs(float64(axisDelta)))
	if frac < 0 {
		frac = 0
	}
	if frac >= tr.Fraction && tr.Ent != nil {
		return
	}

	var normal mgl32.Vec3
	if axisDelta > 0 {
		normal[axis] = -1
	} else {
		normal[axis] = 1
	}

	tr.Fraction = frac
	tr.Ent = ent
	tr.Plane = Plane{Normal: normal}
	if axisDelta > 0 {
		tr.Plane.Dist = -lo[axis]
	} else {
		tr.Plane.Dist = hi[axis]
	}
	tr.Surface = surf
	tr.Contents = contents
}
