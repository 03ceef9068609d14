package protocol

import "arena/pkg/core"

// PlayerDeltaBits 计算玩家状态变化位
func PlayerDeltaBits(from, to *core.PlayerState) uint16 {
	var bits uint16
	f, t := &from.PM, &to.PM

	if t.Type != f.Type {
		bits |= PSPmType
	}
	if t.Origin != f.Origin {
		bits |= PSPmOrigin
	}
	if t.Velocity != f.Velocity {
		bits |= PSPmVelocity
	}
	if t.Flags != f.Flags {
		bits |= PSPmFlags
	}
	if t.Time != f.Time {
		bits |= PSPmTime
	}
	if t.Gravity != f.Gravity {
		bits |= PSPmGravity
	}
	if t.ViewOffset != f.ViewOffset {
		bits |= PSPmViewOffset
	}
	if t.ViewAngles != f.ViewAngles {
		bits |= PSPmViewAngles
	}
	if t.KickAngles != f.KickAngles {
		bits |= PSPmKickAngles
	}
	if t.DeltaAngles != f.DeltaAngles {
		bits |= PSPmDeltaAngles
	}
	if to.Angles != from.Angles {
		bits |= PSAngles
	}
	return bits
}

// EncodePlayerDelta 写入玩家状态增量，变化位和统计位总是写入
func EncodePlayerDelta(w *Writer, from, to *core.PlayerState) error {
	bits := PlayerDeltaBits(from, to)
	w.WriteUint16(bits)

	if bits&PSPmType != 0 {
		w.WriteUint8(uint8(to.PM.Type))
	}
	if bits&PSPmOrigin != 0 {
		w.WritePosition(to.PM.Origin)
	}
	if bits&PSPmVelocity != 0 {
		w.WritePosition(to.PM.Velocity)
	}
	if bits&PSPmFlags != 0 {
		w.WriteUint16(to.PM.Flags)
	}
	if bits&PSPmTime != 0 {
		w.WriteUint16(to.PM.Time)
	}
	if bits&PSPmGravity != 0 {
		w.WriteInt16(to.PM.Gravity)
	}
	if bits&PSPmViewOffset != 0 {
		w.writeShorts(to.PM.ViewOffset)
	}
	if bits&PSPmViewAngles != 0 {
		w.writeShorts(to.PM.ViewAngles)
	}
	if bits&PSPmKickAngles != 0 {
		w.writeShorts(to.PM.KickAngles)
	}
	if bits&PSPmDeltaAngles != 0 {
		w.writeShorts(to.PM.DeltaAngles)
	}
	if bits&PSAngles != 0 {
		w.WritePosition(to.Angles)
	}

	var statBits uint32
	for i := 0; i < core.MaxStats; i++ {
		if to.Stats[i] != from.Stats[i] {
			statBits |= 1 << uint(i)
		}
	}
	w.WriteInt32(int32(statBits))
	for i := 0; i < core.MaxStats; i++ {
		if statBits&(1<<uint(i)) != 0 {
			w.WriteInt16(to.Stats[i])
		}
	}

	return w.Err()
}

// DecodePlayerDelta 以 from 为基础读取玩家状态增量
func DecodePlayerDelta(r *Reader, from *core.PlayerState) (core.PlayerState, error) {
	to := *from
	bits := r.ReadUint16()

	if bits&PSPmType != 0 {
		to.PM.Type = core.PmType(r.ReadUint8())
	}
	if bits&PSPmOrigin != 0 {
		to.PM.Origin = r.ReadPosition()
	}
	if bits&PSPmVelocity != 0 {
		to.PM.Velocity = r.ReadPosition()
	}
	if bits&PSPmFlags != 0 {
		to.PM.Flags = r.ReadUint16()
	}
	if bits&PSPmTime != 0 {
		to.PM.Time = r.ReadUint16()
	}
	if bits&PSPmGravity != 0 {
		to.PM.Gravity = r.ReadInt16()
	}
	if bits&PSPmViewOffset != 0 {
		to.PM.ViewOffset = r.readShorts()
	}
	if bits&PSPmViewAngles != 0 {
		to.PM.ViewAngles = r.readShorts()
	}
	if bits&PSPmKickAngles != 0 {
		to.PM.KickAngles = r.readShorts()
	}
	if bits&PSPmDeltaAngles != 0 {
		to.PM.DeltaAngles = r.readShorts()
	}
	if bits&PSAngles != 0 {
		to.Angles = r.ReadPosition()
	}

	statBits := uint32(r.ReadInt32())
	for i := 0; i < core.MaxStats; i++ {
		if statBits&(1<<uint(i)) != 0 {
			to.Stats[i] = r.ReadInt16()
		}
	}

	return to, r.Err()
}
