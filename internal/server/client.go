package server

import (
	"fmt"
	"log"
	"time"

	"arena/pkg/core"
	"arena/pkg/physics"
	"arena/pkg/protocol"
	"arena/pkg/snapshot"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	playerMins = mgl32.Vec3{-16, -16, -24}
	playerMaxs = mgl32.Vec3{16, 16, 32}
)

const (
	playerViewHeight = 22
	rocketCooldown   = 800 // 毫秒

	connectionDataTimeout = 2 * time.Second // 连接数据等待发送队列的上限
)

// client 关卡中的一个客户端槽位，槽位 i 对应实体 i+1
type client struct {
	session Session
	slot    int32
	name    string
	ent     *physics.Entity

	cmd       core.UserCmd // 最近一条移动指令
	buttons   uint8        // 两帧之间累积的按键
	lastFrame int32        // 客户端确认的帧，<= 0 需要完整帧
	suppress  uint8        // 因发送队列满而丢弃的帧数
	nextFire  uint32

	frames snapshot.History
	ring   snapshot.Ring
}

func (c *client) send(data []byte, err error) error {
	if err != nil {
		return err
	}
	return c.session.Send(data)
}

// sendWait 连接数据必须完整送达，队列满时等待
func (c *client) sendWait(data []byte, err error) error {
	if err != nil {
		return err
	}
	return c.session.SendWait(data, connectionDataTimeout)
}

func (l *Level) handleJoin(req joinRequest) error {
	ev := req.connect
	if ev.Protocol != core.ProtocolVersion {
		return fmt.Errorf("%w: 服务器 %d, 客户端 %d", ErrProtocolMismatch, core.ProtocolVersion, ev.Protocol)
	}

	slot := l.pickSlot(ev.Token)
	if slot < 0 {
		return fmt.Errorf("%w (%d/%d)", ErrServerFull, l.numClients(), len(l.clients))
	}

	name := ev.Name
	if name == "" {
		name = fmt.Sprintf("player%d", slot)
	}

	token, err := GenerateSessionToken([]byte(l.cfg.JWTSecret), l.cfg.SessionTTL, req.session.ID(), slot, l.spawnCount, name)
	if err != nil {
		return fmt.Errorf("生成会话 token 失败: %w", err)
	}

	c := &client{
		session:   req.session,
		slot:      slot,
		name:      name,
		lastFrame: -1,
	}
	c.ent = l.spawnClient(c)
	l.clients[slot] = c
	req.session.SetSlot(slot)

	if err := l.sendConnectionData(c, token); err != nil {
		l.dropClient(c)
		req.session.SetSlot(-1)
		return fmt.Errorf("发送连接数据失败: %w", err)
	}

	l.broadcastPrint(core.PrintHigh, "%s 进入了竞技场", name)
	return nil
}

// pickSlot 优先使用会话 token 中的原槽位，否则分配第一个空闲槽位
func (l *Level) pickSlot(token string) int32 {
	if token != "" {
		claims, err := VerifySessionToken([]byte(l.cfg.JWTSecret), token)
		switch {
		case err != nil:
			log.Printf("忽略会话 token: %v", err)
		case claims.SpawnCount != l.spawnCount:
			log.Printf("会话 token 属于之前的关卡实例")
		case claims.Slot >= 0 && int(claims.Slot) < len(l.clients) && l.clients[claims.Slot] == nil:
			return claims.Slot
		}
	}

	for i, c := range l.clients {
		if c == nil {
			return int32(i)
		}
	}
	return -1
}

func (l *Level) numClients() int {
	n := 0
	for _, c := range l.clients {
		if c != nil {
			n++
		}
	}
	return n
}

// sendConnectionData 依次发送服务器信息、配置字符串与基线
func (l *Level) sendConnectionData(c *client, token string) error {
	data := &protocol.ServerData{
		Protocol:     core.ProtocolVersion,
		SpawnCount:   l.spawnCount,
		FrameRate:    uint8(l.cfg.FrameRate),
		EntityNumber: c.ent.State.Number,
		MapName:      l.name,
		SessionToken: token,
	}
	if err := c.sendWait(encodePacket(protocol.NewServerDataPacket(data))); err != nil {
		return err
	}

	for i, value := range l.configStrings {
		if value == "" {
			continue
		}
		if err := c.sendWait(encodePacket(protocol.NewConfigStringPacket(uint16(i), value))); err != nil {
			return err
		}
	}

	return l.sendBaselines(c)
}

// spawnClient 在出生点放置客户端实体
func (l *Level) spawnClient(c *client) *physics.Entity {
	ent := &l.entities[c.slot+1]
	*ent = physics.Entity{
		Classname: "player",
		InUse:     true,
		Mins:      playerMins,
		Maxs:      playerMaxs,
		ClipMask:  physics.MaskClipPlayer,
		MoveType:  physics.MoveWalk,
		Client:    &core.PlayerState{},
	}
	ent.State.Number = uint16(c.slot + 1)
	ent.State.Solid = core.SolidBox
	ent.State.Model1 = uint8(l.ModelIndex("#players/ichabod"))
	ent.State.Client = uint8(c.slot)

	spot := l.selectSpawnPoint()
	ent.State.Origin = spot.origin
	ent.State.Angles = mgl32.Vec3{0, spot.yaw, 0}
	ent.State.Event = core.EventClientTeleport

	ps := ent.Client
	ps.PM.Type = core.PmNormal
	ps.PM.Origin = spot.origin
	ps.PM.Gravity = int16(l.cfg.Gravity)
	ps.PM.ViewOffset = [3]int16{0, 0, playerViewHeight * 8}
	ps.PM.DeltaAngles[core.Yaw] = core.PackAngle(spot.yaw)
	ps.PM.Flags = core.PmfTimeTeleport
	ps.Angles = ent.State.Angles
	ps.Stats[core.StatHealth] = 100

	l.lastUsed[ent.State.Number] = l.time
	l.space.LinkEntity(ent)
	return ent
}

func (l *Level) handleCmd(ev *UserCmdEvent) {
	if ev.Slot < 0 || int(ev.Slot) >= len(l.clients) {
		return
	}
	c := l.clients[ev.Slot]
	if c == nil {
		return
	}

	c.lastFrame = ev.LastFrame
	for _, cmd := range ev.Cmds {
		c.buttons |= cmd.Buttons
		c.cmd = cmd
	}
}

// clientThink 每帧应用客户端最近的移动指令
func (l *Level) clientThink(c *client) error {
	cmd := c.cmd
	cmd.Buttons |= c.buttons
	c.buttons = 0

	if err := l.stepper.ClientMove(c.ent, &cmd); err != nil {
		return err
	}
	c.ent.Client.Stats[core.StatTime] = int16(l.time / 1000)

	if cmd.Buttons&core.ButtonAttack != 0 && l.time >= c.nextFire {
		c.nextFire = l.time + rocketCooldown
		l.fireRocket(c.ent)
	}
	return nil
}

func (l *Level) handleLeave(req leaveRequest) {
	if req.slot < 0 || int(req.slot) >= len(l.clients) {
		return
	}
	c := l.clients[req.slot]
	if c == nil || c.session != req.session {
		return
	}

	l.dropClient(c)
	l.broadcastPrint(core.PrintHigh, "%s 离开了竞技场", c.name)
}

// dropClient 释放槽位与实体
func (l *Level) dropClient(c *client) {
	if l.clients[c.slot] != c {
		return
	}
	l.clients[c.slot] = nil
	if c.ent != nil && c.ent.InUse {
		l.stepper.Free(c.ent)
	}
	log.Printf("客户端 %d (%s) 已释放，当前客户端数: %d", c.slot, c.name, l.numClients())
}
