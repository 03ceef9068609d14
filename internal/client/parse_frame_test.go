package client

import (
	"errors"
	"testing"
	"time"

	"arena/pkg/core"
	"arena/pkg/protocol"
	"arena/pkg/snapshot"

	"github.com/go-gl/mathgl/mgl32"
)

type recordingHandler struct {
	events []core.EntityEvent
	prints []string
}

func (h *recordingHandler) EntityEvent(ent *Entity) {
	h.events = append(h.events, ent.Current.Event)
}

func (h *recordingHandler) Sound(name string, msg *protocol.Sound) {}

func (h *recordingHandler) Print(level uint8, text string) {
	h.prints = append(h.prints, text)
}

// testServer 按服务器的方式编码帧
type testServer struct {
	baselines snapshot.Baselines
	sent      map[int32][]core.EntityState
	ps        map[int32]core.PlayerState
}

func newTestServer() *testServer {
	return &testServer{
		sent: make(map[int32][]core.EntityState),
		ps:   make(map[int32]core.PlayerState),
	}
}

func (s *testServer) frame(t *testing.T, serverFrame, deltaFrame int32, ps core.PlayerState, states []core.EntityState) *protocol.Reader {
	t.Helper()
	var old []core.EntityState
	var fromPS core.PlayerState
	if deltaFrame > 0 {
		old = s.sent[deltaFrame]
		fromPS = s.ps[deltaFrame]
	}
	s.sent[serverFrame] = states
	s.ps[serverFrame] = ps

	w := protocol.NewWriter(protocol.MaxMessageSize)
	if err := protocol.WriteFrameHeader(w, &protocol.FrameHeader{ServerFrame: serverFrame, DeltaFrame: deltaFrame}); err != nil {
		t.Fatal(err)
	}
	if err := protocol.EncodePlayerDelta(w, &fromPS, &ps); err != nil {
		t.Fatal(err)
	}
	if err := snapshot.Diff(w, old, states, &s.baselines); err != nil {
		t.Fatal(err)
	}
	return protocol.NewReader(w.Bytes())
}

func state(number uint16, x float32) core.EntityState {
	return core.EntityState{Number: number, Origin: mgl32.Vec3{x, 0, 0}, Model1: 1}
}

func numbers(ents []*Entity) []uint16 {
	out := make([]uint16, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Current.Number)
	}
	return out
}

func TestParseFrameDeltaAndInterpolation(t *testing.T) {
	srv := newTestServer()
	h := &recordingHandler{}
	p := NewParser(h)

	var ps core.PlayerState
	ps.PM.Origin = mgl32.Vec3{10, 20, 30}
	ps.Angles = mgl32.Vec3{0, 90, 0}
	ps.Stats[core.StatHealth] = 100

	if p.LastFrame() != -1 {
		t.Fatalf("last frame before any frame = %d", p.LastFrame())
	}

	if err := p.ParseFrame(srv.frame(t, 10, -1, ps, []core.EntityState{state(2, 0), state(5, 50)})); err != nil {
		t.Fatal(err)
	}
	if got := numbers(p.Entities()); len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Fatalf("entities = %v", got)
	}
	origin, angles := p.PredictedOrigin()
	if origin != ps.PM.Origin || angles != ps.Angles {
		t.Fatalf("prediction not seeded: %v %v", origin, angles)
	}

	ps.PM.Origin = mgl32.Vec3{11, 20, 30}
	if err := p.ParseFrame(srv.frame(t, 11, 10, ps, []core.EntityState{state(2, 8), state(7, 70)})); err != nil {
		t.Fatal(err)
	}
	if got := numbers(p.Entities()); len(got) != 2 || got[0] != 2 || got[1] != 7 {
		t.Fatalf("entities = %v", got)
	}
	if p.LastFrame() != 11 || p.Frame().PS.PM.Origin != ps.PM.Origin || p.Frame().PS.Stats[core.StatHealth] != 100 {
		t.Fatalf("frame = %+v", p.Frame())
	}

	ent := p.Entity(2)
	if ent.Prev.Origin[0] != 0 || ent.Current.Origin[0] != 8 {
		t.Fatalf("entity 2 prev %v current %v", ent.Prev.Origin, ent.Current.Origin)
	}
	if mid := ent.Lerp(0.5); mid[0] != 4 {
		t.Fatalf("lerp = %v", mid)
	}

	// 服务器跳过帧 12，实体 2 重置插值
	if err := p.ParseFrame(srv.frame(t, 13, 11, ps, []core.EntityState{state(2, 16), state(7, 70)})); err != nil {
		t.Fatal(err)
	}
	if ent.Prev.Origin != ent.Current.Origin {
		t.Fatalf("gap did not reset: prev %v current %v", ent.Prev.Origin, ent.Current.Origin)
	}
	if len(h.events) != 0 {
		t.Fatalf("unexpected events %v", h.events)
	}
}

func TestParseFrameTeleportAndEvents(t *testing.T) {
	srv := newTestServer()
	h := &recordingHandler{}
	p := NewParser(h)

	var ps core.PlayerState
	if err := p.ParseFrame(srv.frame(t, 1, -1, ps, []core.EntityState{state(3, 0)})); err != nil {
		t.Fatal(err)
	}
	if err := p.ParseFrame(srv.frame(t, 2, 1, ps, []core.EntityState{state(3, 4)})); err != nil {
		t.Fatal(err)
	}

	tele := state(3, 900)
	tele.Event = core.EventClientTeleport
	if err := p.ParseFrame(srv.frame(t, 3, 2, ps, []core.EntityState{tele})); err != nil {
		t.Fatal(err)
	}

	ent := p.Entity(3)
	if ent.Prev.Origin[0] != 900 || ent.Current.Origin[0] != 900 {
		t.Fatalf("teleport did not reset: prev %v current %v", ent.Prev.Origin, ent.Current.Origin)
	}
	if len(h.events) != 1 || h.events[0] != core.EventClientTeleport {
		t.Fatalf("events = %v", h.events)
	}
	if ent.Current.Event != core.EventNone {
		t.Fatal("event not cleared after dispatch")
	}

	// 下一帧没有事件，不会重复派发
	if err := p.ParseFrame(srv.frame(t, 4, 3, ps, []core.EntityState{state(3, 904)})); err != nil {
		t.Fatal(err)
	}
	if len(h.events) != 1 {
		t.Fatalf("event dispatched twice: %v", h.events)
	}
	if ent.Prev.Origin[0] != 900 || ent.Current.Origin[0] != 904 {
		t.Fatalf("prev %v current %v", ent.Prev.Origin, ent.Current.Origin)
	}
}

func TestParseFrameBaselineOldOrigin(t *testing.T) {
	srv := newTestServer()
	p := NewParser(&recordingHandler{})

	base := state(9, 100)
	srv.baselines.Set(&base)
	p.ParseBaseline(&base)
	if p.Entity(9).Baseline.Origin[0] != 100 {
		t.Fatal("baseline not cached")
	}

	var ps core.PlayerState
	if err := p.ParseFrame(srv.frame(t, 5, -1, ps, []core.EntityState{state(9, 150)})); err != nil {
		t.Fatal(err)
	}

	ent := p.Entity(9)
	if ent.Current.Origin[0] != 150 || ent.Prev.Origin[0] != 100 {
		t.Fatalf("prev %v current %v", ent.Prev.Origin, ent.Current.Origin)
	}
}

func TestParseFrameStaleDelta(t *testing.T) {
	srv := newTestServer()
	p := NewParser(nil)

	var ps core.PlayerState
	srv.sent[99] = nil
	err := p.ParseFrame(srv.frame(t, 100, 99, ps, []core.EntityState{state(2, 0)}))
	if !errors.Is(err, snapshot.ErrDesync) {
		t.Fatalf("err = %v, want desync", err)
	}
}

func TestHandlePacketMessages(t *testing.T) {
	h := &recordingHandler{}
	p := NewParser(h)

	frame, err := protocol.NewFramePacket(protocol.NewWriter(16))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.HandlePacket(frame); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("frame before server data: %v", err)
	}

	sd, err := protocol.NewServerDataPacket(&protocol.ServerData{Protocol: core.ProtocolVersion, FrameRate: 40, EntityNumber: 1, MapName: "arena"})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.HandlePacket(sd); err != nil {
		t.Fatal(err)
	}

	cs, err := protocol.NewConfigStringPacket(core.CsModels+1, "#players/ichabod")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.HandlePacket(cs); err != nil {
		t.Fatal(err)
	}
	if p.ModelName(1) != "#players/ichabod" {
		t.Fatalf("model 1 = %q", p.ModelName(1))
	}

	printed, err := protocol.NewPrintPacket(core.PrintHigh, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.HandlePacket(printed); err != nil || len(h.prints) != 1 || h.prints[0] != "hello" {
		t.Fatalf("print: %v %v", err, h.prints)
	}

	bye, err := protocol.NewDisconnectPacket("restart")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.HandlePacket(bye); !errors.Is(err, ErrServerQuit) {
		t.Fatalf("disconnect: %v", err)
	}
	if err := p.HandlePacket(protocol.NewReconnectPacket()); !errors.Is(err, ErrReconnect) {
		t.Fatalf("reconnect: %v", err)
	}

	wrong, err := protocol.NewServerDataPacket(&protocol.ServerData{Protocol: core.ProtocolVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.HandlePacket(wrong); err == nil {
		t.Fatal("protocol mismatch accepted")
	}
}

func TestEntityUpdate(t *testing.T) {
	tests := []struct {
		name     string
		last     int32
		frame    int32
		event    core.EntityEvent
		old      mgl32.Vec3
		wantPrev float32
	}{
		{"continuous", 4, 5, core.EventNone, mgl32.Vec3{}, 1},
		{"gap", 3, 5, core.EventNone, mgl32.Vec3{}, 9},
		{"gap with old origin", 3, 5, core.EventNone, mgl32.Vec3{7, 0, 0}, 7},
		{"teleport ignores old origin", 4, 5, core.EventClientTeleport, mgl32.Vec3{7, 0, 0}, 9},
		{"never seen", 0, 1, core.EventNone, mgl32.Vec3{}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entity{ServerFrame: tt.last}
			e.Current = state(4, 1)
			to := state(4, 9)
			to.Event = tt.event
			to.OldOrigin = tt.old

			e.update(&to, tt.frame)
			if e.Prev.Origin[0] != tt.wantPrev || e.Current.Origin[0] != 9 || e.ServerFrame != tt.frame {
				t.Fatalf("prev %v current %v frame %d", e.Prev.Origin, e.Current.Origin, e.ServerFrame)
			}
		})
	}
}

func TestLerpClock(t *testing.T) {
	c := NewLerpClock(40)
	start := time.Unix(100, 0)

	if f := c.Fraction(start); f != 1 {
		t.Fatalf("fraction before any frame = %v", f)
	}

	c.FrameArrived(1, start)
	tests := []struct {
		after time.Duration
		want  float32
	}{
		{0, 0},
		{12500 * time.Microsecond, 0.5},
		{25 * time.Millisecond, 1},
		{time.Second, 1},
	}
	for _, tt := range tests {
		if got := c.Fraction(start.Add(tt.after)); got != tt.want {
			t.Errorf("fraction after %v = %v, want %v", tt.after, got, tt.want)
		}
	}

	c.FrameArrived(1, start.Add(time.Second))
	if got := c.Fraction(start.Add(25 * time.Millisecond)); got != 1 {
		t.Fatalf("repeated frame reset the clock: %v", got)
	}
}

func TestReconcile(t *testing.T) {
	predicted := mgl32.Vec3{0, 0, 0}

	if got := Reconcile(predicted, mgl32.Vec3{10, 0, 0}); got[0] != 2 {
		t.Fatalf("small error = %v", got)
	}
	far := mgl32.Vec3{500, 0, 0}
	if got := Reconcile(predicted, far); got != far {
		t.Fatalf("large error = %v", got)
	}
}
