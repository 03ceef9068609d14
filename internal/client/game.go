package client

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"strings"
	"time"

	"arena/pkg/core"
	"arena/pkg/protocol"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

// 窗口尺寸
const (
	ScreenWidth  = 800
	ScreenHeight = 800
)

const (
	maxMessages    = 6
	reconnectDelay = 2 * time.Second
)

var hudFont = text.NewGoXFace(basicfont.Face7x13)

type keyTracker struct {
	prev map[ebiten.Key]bool
}

func (k *keyTracker) JustPressed(key ebiten.Key) bool {
	if k.prev == nil {
		k.prev = make(map[ebiten.Key]bool)
	}
	now := ebiten.IsKeyPressed(key)
	prev := k.prev[key]
	k.prev[key] = now
	return now && !prev
}

// Game 俯视调试视图（Ebiten 游戏循环）
// 每次 Update 处理收到的数据包并发送一条移动指令，Draw 绘制插值后的实体
type Game struct {
	cfg     Config
	network *NetworkClient
	parser  *Parser

	mapRenderer    *MapRenderer
	entityRenderer *EntityRenderer
	clock          *LerpClock
	input          *LocalInput
	keys           keyTracker

	token     string
	messages  []string
	showHUD   bool
	lastFrame time.Time
}

// NewGame 创建视图，network 须已调用 Connect
func NewGame(cfg Config, network *NetworkClient, scheme ControlScheme) *Game {
	m := NewMapRenderer(cfg.Scale)
	g := &Game{
		cfg:            cfg,
		network:        network,
		mapRenderer:    m,
		entityRenderer: &EntityRenderer{m: m},
		clock:          NewLerpClock(core.DefaultFrameRate),
		input:          NewLocalInput(scheme),
		showHUD:        true,
	}
	g.parser = NewParser(g)
	return g
}

// Update 处理网络消息并发送输入
func (g *Game) Update() error {
	if err := g.network.Err(); err != nil {
		return fmt.Errorf("网络错误: %w", err)
	}

	now := time.Now()
	for pkt := g.network.ReceivePacket(); pkt != nil; pkt = g.network.ReceivePacket() {
		if err := g.handlePacket(pkt, now); err != nil {
			if errors.Is(err, ErrReconnect) {
				return g.reconnect()
			}
			if errors.Is(err, ErrServerQuit) {
				log.Printf("连接结束: %v", err)
				return ebiten.Termination
			}
			log.Printf("解析失败，断开连接: %v", err)
			g.network.Disconnect()
			return err
		}
	}

	if g.keys.JustPressed(ebiten.KeyF1) {
		g.showHUD = !g.showHUD
	}
	if g.keys.JustPressed(ebiten.KeyEscape) {
		g.network.Disconnect()
		return ebiten.Termination
	}

	if !g.parser.Active() {
		return nil
	}

	msec := uint8(min(1000/g.cfg.TPS, 250))
	cmd := g.input.Command(msec)
	if err := g.network.SendUserCmd(g.parser.LastFrame(), []core.UserCmd{cmd}); err != nil {
		log.Printf("发送指令失败: %v", err)
	}

	g.predict(float32(msec) / 1000)
	return nil
}

func (g *Game) handlePacket(pkt *protocol.Packet, now time.Time) error {
	if err := g.parser.HandlePacket(pkt); err != nil {
		return err
	}

	switch pkt.Type {
	case protocol.MsgServerData:
		sd := g.parser.ServerData()
		g.token = sd.SessionToken
		g.clock = NewLerpClock(int(sd.FrameRate))
	case protocol.MsgFrame:
		frame := g.parser.Frame()
		g.clock.FrameArrived(frame.ServerFrame, now)
		if frame.SuppressCount > 0 {
			log.Printf("服务器跳过了 %d 帧", frame.SuppressCount)
		}
		g.reconcile()
	}
	return nil
}

// reconnect 服务器重启时携带会话令牌重新连接
func (g *Game) reconnect() error {
	log.Printf("服务器重启，%v 后重新连接", reconnectDelay)
	g.network.Close()
	time.Sleep(reconnectDelay)

	network := NewNetworkClient(g.cfg.Addr, g.cfg.Proto, g.cfg.Name)
	if err := network.Connect(g.token); err != nil {
		return err
	}
	g.network = network
	g.parser = NewParser(g)
	g.lastFrame = time.Time{}
	return nil
}

// predict 按服务器速度外推本地玩家位置
func (g *Game) predict(dt float32) {
	origin, angles := g.parser.PredictedOrigin()
	vel := g.parser.Frame().PS.PM.Velocity
	angles[core.Yaw] = g.input.Yaw()
	g.parser.SetPredicted(origin.Add(vel.Mul(dt)), angles)
}

// reconcile 新帧到达后向服务器位置纠正
func (g *Game) reconcile() {
	ps := &g.parser.Frame().PS
	origin, angles := g.parser.PredictedOrigin()
	if g.lastFrame.IsZero() {
		g.input.SetYaw(ps.Angles[core.Yaw])
		angles = ps.Angles
	}
	g.lastFrame = time.Now()
	g.parser.SetPredicted(Reconcile(origin, ps.PM.Origin), angles)
}

// Draw 绘制地图、实体与状态栏
func (g *Game) Draw(screen *ebiten.Image) {
	g.mapRenderer.Draw(screen)

	if !g.parser.Active() {
		g.drawText(screen, "等待服务器...", 10, 10, color.White)
		return
	}

	frac := g.clock.Fraction(time.Now())
	local := g.localNumber()
	for _, ent := range g.parser.Entities() {
		number := ent.Current.Number
		if number == local {
			continue
		}
		player := strings.HasPrefix(g.parser.ModelName(ent.Current.Model1), "#players/")
		g.entityRenderer.Draw(screen, ent, frac, player, false)
	}

	// 本地玩家使用预测位置
	origin, angles := g.parser.PredictedOrigin()
	self := Entity{}
	self.Current.Number = local
	self.Current.Origin = origin
	self.Current.Angles = angles
	self.Prev = self.Current
	g.entityRenderer.Draw(screen, &self, 1, true, true)

	if g.showHUD {
		g.drawHUD(screen)
	}
}

func (g *Game) localNumber() uint16 {
	if sd := g.parser.ServerData(); sd != nil {
		return sd.EntityNumber
	}
	return 0
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	frame := g.parser.Frame()
	stats := &frame.PS.Stats
	lines := []string{
		fmt.Sprintf("%s  帧 %d (delta %d)", g.parser.ConfigString(core.CsName), frame.ServerFrame, frame.DeltaFrame),
		fmt.Sprintf("实体 %d", frame.NumEntities),
		fmt.Sprintf("生命 %d  护甲 %d", stats[core.StatHealth], stats[core.StatArmor]),
		fmt.Sprintf("速度 %.0f", frame.PS.PM.Velocity.Len()),
	}
	for i, line := range lines {
		g.drawText(screen, line, 10, 10+float64(i)*16, color.White)
	}

	for i, msg := range g.messages {
		g.drawText(screen, msg, 10, ScreenHeight-20-float64(len(g.messages)-1-i)*16, color.RGBA{200, 200, 120, 255})
	}
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, hudFont, op)
}

// Layout 设置屏幕布局
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Token 服务器下发的会话令牌，用于断线重连
func (g *Game) Token() string {
	return g.token
}

// EntityEvent 实现 EventHandler
func (g *Game) EntityEvent(ent *Entity) {
	if ent.Current.Number == g.localNumber() {
		g.addMessage(fmt.Sprintf("事件: %s", ent.Current.Event))
	}
}

// Sound 实现 EventHandler
func (g *Game) Sound(name string, msg *protocol.Sound) {
	if msg.Entity == g.localNumber() {
		g.addMessage(fmt.Sprintf("音效: %s", name))
	}
}

// Print 实现 EventHandler
func (g *Game) Print(level uint8, msg string) {
	LogEventHandler{}.Print(level, msg)
	g.addMessage(msg)
}

func (g *Game) addMessage(msg string) {
	g.messages = append(g.messages, msg)
	if len(g.messages) > maxMessages {
		g.messages = g.messages[len(g.messages)-maxMessages:]
	}
}

// Close 关闭当前连接
func (g *Game) Close() {
	g.network.Close()
}
