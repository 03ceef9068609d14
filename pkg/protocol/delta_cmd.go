package protocol

import "arena/pkg/core"

// EncodeUserCmdDelta 写入移动指令增量，msec 总是写入
func EncodeUserCmdDelta(w *Writer, from, to *core.UserCmd) error {
	var bits uint8
	if to.Angles[0] != from.Angles[0] {
		bits |= CmdAngle1
	}
	if to.Angles[1] != from.Angles[1] {
		bits |= CmdAngle2
	}
	if to.Angles[2] != from.Angles[2] {
		bits |= CmdAngle3
	}
	if to.Forward != from.Forward {
		bits |= CmdForward
	}
	if to.Right != from.Right {
		bits |= CmdRight
	}
	if to.Up != from.Up {
		bits |= CmdUp
	}
	if to.Buttons != from.Buttons {
		bits |= CmdButtons
	}

	w.WriteUint8(bits)
	if bits&CmdAngle1 != 0 {
		w.WriteInt16(to.Angles[0])
	}
	if bits&CmdAngle2 != 0 {
		w.WriteInt16(to.Angles[1])
	}
	if bits&CmdAngle3 != 0 {
		w.WriteInt16(to.Angles[2])
	}
	if bits&CmdForward != 0 {
		w.WriteInt16(to.Forward)
	}
	if bits&CmdRight != 0 {
		w.WriteInt16(to.Right)
	}
	if bits&CmdUp != 0 {
		w.WriteInt16(to.Up)
	}
	if bits&CmdButtons != 0 {
		w.WriteUint8(to.Buttons)
	}
	w.WriteUint8(to.Msec)

	return w.Err()
}

// DecodeUserCmdDelta 以 from 为基础读取移动指令
func DecodeUserCmdDelta(r *Reader, from *core.UserCmd) (core.UserCmd, error) {
	to := *from
	bits := r.ReadUint8()

	if bits&CmdAngle1 != 0 {
		to.Angles[0] = r.ReadInt16()
	}
	if bits&CmdAngle2 != 0 {
		to.Angles[1] = r.ReadInt16()
	}
	if bits&CmdAngle3 != 0 {
		to.Angles[2] = r.ReadInt16()
	}
	if bits&CmdForward != 0 {
		to.Forward = r.ReadInt16()
	}
	if bits&CmdRight != 0 {
		to.Right = r.ReadInt16()
	}
	if bits&CmdUp != 0 {
		to.Up = r.ReadInt16()
	}
	if bits&CmdButtons != 0 {
		to.Buttons = r.ReadUint8()
	}
	to.Msec = r.ReadUint8()

	return to, r.Err()
}
