package server

import (
	"arena/pkg/core"
	"arena/pkg/protocol"
)

// createBaselines 为关卡加载时已存在的可见实体捕获基线
func (l *Level) createBaselines() {
	l.baselines.Reset()
	for i := 1; i < l.numEntities; i++ {
		ent := &l.entities[i]
		if !ent.InUse || !ent.State.IsVisible() {
			continue
		}
		ent.State.Number = uint16(i)
		l.baselines.Set(&ent.State)
	}
}

func (l *Level) sendBaselines(c *client) error {
	var err error
	l.baselines.Each(func(s *core.EntityState) {
		if err != nil {
			return
		}
		err = c.sendWait(encodePacket(protocol.NewBaselinePacket(s)))
	})
	return err
}
