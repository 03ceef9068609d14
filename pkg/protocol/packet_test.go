package protocol

import (
	"errors"
	"testing"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestPacketEnvelope(t *testing.T) {
	pkt := &Packet{Type: MsgFrame, Payload: []byte{1, 2, 3}}
	data, err := MarshalPacket(pkt)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalPacket(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != MsgFrame || string(got.Payload) != string(pkt.Payload) {
		t.Fatalf("got %+v", got)
	}
}

func TestPacketSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(MsgPing))

	got, err := UnmarshalPacket(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != MsgPing || len(got.Payload) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestPacketErrors(t *testing.T) {
	if _, err := MarshalPacket(&Packet{}); !errors.Is(err, ErrBadPacket) {
		t.Fatalf("marshal bad type: %v", err)
	}
	tests := map[string][]byte{
		"truncated": {0x08},
		"no type":   protowire.AppendBytes(protowire.AppendTag(nil, fieldPayload, protowire.BytesType), []byte{1}),
	}
	for name, data := range tests {
		if _, err := UnmarshalPacket(data); !errors.Is(err, ErrBadPacket) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestMessageRoundTrips(t *testing.T) {
	sd := &ServerData{Protocol: core.ProtocolVersion, SpawnCount: 3, FrameRate: 40, EntityNumber: 1, MapName: "arena", SessionToken: "tok"}
	pkt, err := NewServerDataPacket(sd)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := ParseServerData(pkt); err != nil || *got != *sd {
		t.Fatalf("server data = %+v, %v", got, err)
	}

	pkt, err = NewConfigStringPacket(core.CsSounds+1, "world/water_in")
	if err != nil {
		t.Fatal(err)
	}
	if got, err := ParseConfigString(pkt); err != nil || got.Index != core.CsSounds+1 || got.Value != "world/water_in" {
		t.Fatalf("config string = %+v, %v", got, err)
	}
	pkt, _ = NewConfigStringPacket(core.MaxConfigStrings, "x")
	if _, err := ParseConfigString(pkt); !errors.Is(err, ErrBadPacket) {
		t.Fatalf("out of range config string: %v", err)
	}

	base := core.EntityState{Number: 12, Origin: mgl32.Vec3{1, 2, 3}, Model1: 4}
	pkt, err = NewBaselinePacket(&base)
	if err != nil {
		t.Fatal(err)
	}
	gotBase, err := ParseBaseline(pkt)
	if err != nil {
		t.Fatal(err)
	}
	base.OldOrigin = base.Origin
	if gotBase != base {
		t.Fatalf("baseline = %+v", gotBase)
	}

	snd := &Sound{Index: 3, Entity: 7, Origin: mgl32.Vec3{1, 1, 1}, Attenuation: core.AttenNorm}
	pkt, _ = NewSoundPacket(snd)
	if got, err := ParseSound(pkt); err != nil || *got != *snd {
		t.Fatalf("sound = %+v, %v", got, err)
	}

	pkt, _ = NewPrintPacket(core.PrintHigh, "服务器关闭")
	if got, err := ParsePrint(pkt); err != nil || got.Level != core.PrintHigh || got.Text != "服务器关闭" {
		t.Fatalf("print = %+v, %v", got, err)
	}

	pkt, _ = NewConnectPacket("player", "")
	if got, err := ParseConnect(pkt); err != nil || got.Name != "player" || got.Protocol != core.ProtocolVersion {
		t.Fatalf("connect = %+v, %v", got, err)
	}

	pkt, _ = NewPingPacket(123456789)
	if v, err := ParsePing(pkt); err != nil || v != 123456789 {
		t.Fatalf("ping = %d, %v", v, err)
	}
	if _, err := ParsePong(pkt); !errors.Is(err, ErrBadPacket) {
		t.Fatalf("pong from ping packet: %v", err)
	}

	pkt, _ = NewDisconnectPacket("bye")
	if v, err := ParseDisconnect(pkt); err != nil || v != "bye" {
		t.Fatalf("disconnect = %q, %v", v, err)
	}
}

func TestFrameHeader(t *testing.T) {
	h := FrameHeader{ServerFrame: 100, DeltaFrame: 98, SuppressCount: 2, AreaBits: []byte{0xff, 0x01}}
	w := NewWriter(32)
	if err := WriteFrameHeader(w, &h); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrameHeader(NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.ServerFrame != 100 || got.DeltaFrame != 98 || got.SuppressCount != 2 || string(got.AreaBits) != string(h.AreaBits) {
		t.Fatalf("header = %+v", got)
	}
}
