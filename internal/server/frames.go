package server

import (
	"errors"
	"log"

	"arena/pkg/core"
	"arena/pkg/protocol"
	"arena/pkg/snapshot"
)

// emitFrames 为每个客户端生成并发送本帧
func (l *Level) emitFrames() {
	visible := l.visibleEntities()

	for _, c := range l.clients {
		if c == nil {
			continue
		}
		err := l.writeFrame(c, visible)
		switch {
		case err == nil:
		case errors.Is(err, ErrSendQueueFull):
			c.suppress++
		default:
			log.Printf("客户端 %d: 发送帧 %d 失败: %v", c.slot, l.frameNum, err)
			_ = c.send(encodePacket(protocol.NewDisconnectPacket(err.Error())))
			c.session.CloseWithoutNotify()
			l.dropClient(c)
		}
	}
}

// visibleEntities 按编号升序收集需要传输的实体
func (l *Level) visibleEntities() []core.EntityState {
	states := make([]core.EntityState, 0, core.MaxPacketEntities)
	for i := 1; i < l.numEntities; i++ {
		ent := &l.entities[i]
		if !ent.InUse || !ent.State.IsVisible() {
			continue
		}
		if len(states) == core.MaxPacketEntities {
			log.Printf("[WARN] 可见实体超过 %d，其余实体本帧不发送", core.MaxPacketEntities)
			break
		}
		states = append(states, ent.State)
	}
	return states
}

// writeFrame 相对客户端确认的帧增量编码本帧，参考帧不可用时发送完整帧
func (l *Level) writeFrame(c *client, visible []core.EntityState) error {
	var old *snapshot.Frame
	if c.lastFrame > 0 {
		ref, err := snapshot.ResolveDelta(&c.frames, &c.ring, c.lastFrame)
		if err != nil {
			log.Printf("客户端 %d: %v，发送完整帧", c.slot, err)
		} else {
			old = ref
		}
	}

	var oldStates []core.EntityState
	var fromPS core.PlayerState
	header := protocol.FrameHeader{
		ServerFrame:   l.frameNum,
		DeltaFrame:    -1,
		SuppressCount: c.suppress,
	}
	if old != nil {
		oldStates = c.ring.Entities(old)
		fromPS = old.PS
		header.DeltaFrame = old.ServerFrame
	}

	frame := snapshot.Frame{
		ServerFrame:   l.frameNum,
		DeltaFrame:    header.DeltaFrame,
		Valid:         true,
		SuppressCount: c.suppress,
		PS:            *c.ent.Client,
		EntityState:   c.ring.Head(),
		NumEntities:   len(visible),
	}
	for i := range visible {
		c.ring.Append(&visible[i])
	}
	c.frames.Store(&frame)

	w := protocol.NewWriter(protocol.MaxMessageSize)
	if err := protocol.WriteFrameHeader(w, &header); err != nil {
		return err
	}
	if err := protocol.EncodePlayerDelta(w, &fromPS, &frame.PS); err != nil {
		return err
	}
	if err := snapshot.Diff(w, oldStates, visible, &l.baselines); err != nil {
		return err
	}

	if err := c.send(encodePacket(protocol.NewFramePacket(w))); err != nil {
		return err
	}
	c.suppress = 0
	return nil
}
