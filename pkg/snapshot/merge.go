package snapshot

import (
	"log"

	"arena/pkg/core"
	"arena/pkg/protocol"
)

// endOfList 旧帧遍历完毕时的哨兵编号，大于任何合法编号
const endOfList = 0xffff

// Source 按编号升序提供新帧的实体增量条目
type Source interface {
	// Next 返回下一条目，编号 0 表示结束
	Next() (number, bits uint16, err error)
	// Decode 以 from 为参考解析条目负载
	Decode(from *core.EntityState, number, bits uint16) (core.EntityState, error)
}

// WireSource 从消息读取器中读取实体条目
type WireSource struct {
	R *protocol.Reader
}

func (s WireSource) Next() (uint16, uint16, error) {
	return protocol.ReadEntityHeader(s.R)
}

func (s WireSource) Decode(from *core.EntityState, number, bits uint16) (core.EntityState, error) {
	to := protocol.DecodeEntityDelta(s.R, from, number, bits)
	return to, s.R.Err()
}

// carry 未出现在新条目中的旧实体原样延续，事件不延续
func carry(old *core.EntityState) core.EntityState {
	to := *old
	to.Event = core.EventNone
	return to
}

// Merge 三路合并：旧帧实体、新帧条目与基线
// old 必须按编号升序；emit 按编号升序收到新帧的每个实体
func Merge(old []core.EntityState, src Source, baselines *Baselines, emit func(to *core.EntityState) error) error {
	oldIndex := 0
	oldNumber := func() uint16 {
		if oldIndex < len(old) {
			return old[oldIndex].Number
		}
		return endOfList
	}

	for {
		number, bits, err := src.Next()
		if err != nil {
			return err
		}
		if number == 0 {
			break
		}

		for oldNumber() < number {
			to := carry(&old[oldIndex])
			if err := emit(&to); err != nil {
				return err
			}
			oldIndex++
		}

		if bits&protocol.URemove != 0 {
			if oldNumber() != number {
				log.Printf("实体移除不匹配: 旧帧 %d != %d", oldNumber(), number)
			}
			if oldIndex < len(old) {
				oldIndex++
			}
			continue
		}

		var from *core.EntityState
		if oldNumber() == number {
			from = &old[oldIndex]
			oldIndex++
		} else {
			from = baselines.Get(number)
		}

		to, err := src.Decode(from, number, bits)
		if err != nil {
			return err
		}
		if err := emit(&to); err != nil {
			return err
		}
	}

	for ; oldIndex < len(old); oldIndex++ {
		to := carry(&old[oldIndex])
		if err := emit(&to); err != nil {
			return err
		}
	}
	return nil
}

// Diff 写入从 old 到 next 的实体条目及结束标记，两者均按编号升序
// 相同编号相对旧状态编码，新出现的实体相对基线强制编码，消失的实体写入移除标记
func Diff(w *protocol.Writer, old, next []core.EntityState, baselines *Baselines) error {
	oldIndex, newIndex := 0, 0
	for oldIndex < len(old) || newIndex < len(next) {
		oldNumber, newNumber := uint16(endOfList), uint16(endOfList)
		if oldIndex < len(old) {
			oldNumber = old[oldIndex].Number
		}
		if newIndex < len(next) {
			newNumber = next[newIndex].Number
		}

		switch {
		case newNumber == oldNumber:
			if _, err := protocol.EncodeEntityDelta(w, &old[oldIndex], &next[newIndex], false); err != nil {
				return err
			}
			oldIndex++
			newIndex++
		case newNumber < oldNumber:
			if _, err := protocol.EncodeEntityDelta(w, baselines.Get(newNumber), &next[newIndex], true); err != nil {
				return err
			}
			newIndex++
		default:
			protocol.WriteEntityRemove(w, oldNumber)
			oldIndex++
		}
	}
	protocol.WriteEntityTerminator(w)
	return w.Err()
}
