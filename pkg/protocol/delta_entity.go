package protocol

import (
	"errors"
	"fmt"

	"arena/pkg/core"
)

var ErrBadEntityNumber = errors.New("protocol: 实体编号非法")

// EntityDeltaBits 计算 from 到 to 的变化位，事件非零时总是置位
func EntityDeltaBits(from, to *core.EntityState) uint16 {
	var bits uint16

	if to.Origin != from.Origin {
		bits |= UOrigin
	}
	if to.Termination != from.Termination {
		bits |= UTermination
	}
	if to.Angles != from.Angles {
		bits |= UAngles
	}
	if to.Animation1 != from.Animation1 || to.Animation2 != from.Animation2 {
		bits |= UAnimations
	}
	if to.Event != core.EventNone {
		bits |= UEvent
	}
	if to.Effects != from.Effects {
		bits |= UEffects
	}
	if to.Trail != from.Trail {
		bits |= UTrail
	}
	if to.Model1 != from.Model1 || to.Model2 != from.Model2 ||
		to.Model3 != from.Model3 || to.Model4 != from.Model4 {
		bits |= UModels
	}
	if to.Client != from.Client {
		bits |= UClient
	}
	if to.Sound != from.Sound {
		bits |= USound
	}
	if to.Solid != from.Solid {
		bits |= USolid
	}
	return bits
}

// EncodeEntityDelta 写入 from 到 to 的实体增量
// 无变化且非强制时不写任何内容并返回 false
func EncodeEntityDelta(w *Writer, from, to *core.EntityState, force bool) (bool, error) {
	if !core.ValidNumber(int(to.Number)) {
		return false, fmt.Errorf("%w: %d", ErrBadEntityNumber, to.Number)
	}

	bits := EntityDeltaBits(from, to)
	if bits == 0 && !force {
		return false, nil
	}

	w.WriteUint16(to.Number)
	w.WriteUint16(bits)

	if bits&UOrigin != 0 {
		w.WritePosition(to.Origin)
	}
	if bits&UTermination != 0 {
		w.WritePosition(to.Termination)
	}
	if bits&UAngles != 0 {
		w.WriteAngles(to.Angles)
	}
	if bits&UAnimations != 0 {
		w.WriteUint8(to.Animation1)
		w.WriteUint8(to.Animation2)
	}
	if bits&UEvent != 0 {
		w.WriteUint8(uint8(to.Event))
	}
	if bits&UEffects != 0 {
		w.WriteUint16(to.Effects)
	}
	if bits&UTrail != 0 {
		w.WriteUint8(to.Trail)
	}
	if bits&UModels != 0 {
		w.WriteUint8(to.Model1)
		w.WriteUint8(to.Model2)
		w.WriteUint8(to.Model3)
		w.WriteUint8(to.Model4)
	}
	if bits&UClient != 0 {
		w.WriteUint8(to.Client)
	}
	if bits&USound != 0 {
		w.WriteUint8(to.Sound)
	}
	if bits&USolid != 0 {
		w.WriteUint16(to.Solid)
	}

	return true, w.Err()
}

// WriteEntityRemove 写入实体移除标记
func WriteEntityRemove(w *Writer, number uint16) {
	w.WriteUint16(number)
	w.WriteUint16(URemove)
}

// WriteEntityTerminator 写入实体列表结束标记
func WriteEntityTerminator(w *Writer) {
	w.WriteUint16(0)
	w.WriteUint16(0)
}

// ReadEntityHeader 读取实体编号与变化位，编号 0 表示列表结束
func ReadEntityHeader(r *Reader) (number, bits uint16, err error) {
	number = r.ReadUint16()
	bits = r.ReadUint16()
	if err := r.Err(); err != nil {
		return 0, 0, err
	}
	if number >= core.MaxEntities {
		return 0, 0, fmt.Errorf("%w: %d", ErrBadEntityNumber, number)
	}
	return number, bits, nil
}

// DecodeEntityDelta 以 from 为基础读取变化字段，未携带事件位时事件清零
func DecodeEntityDelta(r *Reader, from *core.EntityState, number, bits uint16) core.EntityState {
	to := *from
	to.Number = number

	if bits&UOrigin != 0 {
		to.Origin = r.ReadPosition()
	}
	if bits&UTermination != 0 {
		to.Termination = r.ReadPosition()
	}
	if bits&UAngles != 0 {
		to.Angles = r.ReadAngles()
	}
	if bits&UAnimations != 0 {
		to.Animation1 = r.ReadUint8()
		to.Animation2 = r.ReadUint8()
	}
	if bits&UEvent != 0 {
		to.Event = core.EntityEvent(r.ReadUint8())
	} else {
		to.Event = core.EventNone
	}
	if bits&UEffects != 0 {
		to.Effects = r.ReadUint16()
	}
	if bits&UTrail != 0 {
		to.Trail = r.ReadUint8()
	}
	if bits&UModels != 0 {
		to.Model1 = r.ReadUint8()
		to.Model2 = r.ReadUint8()
		to.Model3 = r.ReadUint8()
		to.Model4 = r.ReadUint8()
	}
	if bits&UClient != 0 {
		to.Client = r.ReadUint8()
	}
	if bits&USound != 0 {
		to.Sound = r.ReadUint8()
	}
	if bits&USolid != 0 {
		to.Solid = r.ReadUint16()
	}

	return to
}
