package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gobwas/httphead"

	"github.com/a-essam23/go-dispatch-client/wire"
)

func TestEncodeJoinRoom(t *testing.T) {
	data, err := Encode(Action{
		Event:   wire.EventJoinRoom,
		Target:  wire.RoomGlobal,
		Payload: wire.JoinRoomPayload{Name: "alice"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("top-level fields: got %d, want 3 (%s)", len(got), data)
	}
	if got["event"] != "join_room" {
		t.Errorf("event: got %v", got["event"])
	}
	if got["target"] != "room:global" {
		t.Errorf("target: got %v", got["target"])
	}
	payload, ok := got["payload"].(map[string]any)
	if !ok || payload["name"] != "alice" {
		t.Errorf("payload: got %v", got["payload"])
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(Action{Event: wire.EventSendMessage, Target: wire.RoomGlobal})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(data, []byte(`"payload":{}`)) {
		t.Errorf("expected empty payload object, got %s", data)
	}
}

func TestEncodeEmptyEvent(t *testing.T) {
	_, err := Encode(Action{Target: wire.RoomGlobal})
	if err != ErrEmptyEvent {
		t.Errorf("expected ErrEmptyEvent, got %v", err)
	}
}

func TestEncodeLargeMessage(t *testing.T) {
	big := strings.Repeat("x", 64*1024)
	data, err := Encode(Action{
		Event:   wire.EventSendMessage,
		Target:  wire.RoomGlobal,
		Payload: wire.SendMessagePayload{Message: big},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(data, []byte(big)) {
		t.Error("message text missing from frame")
	}
}

func TestDecodeNewMessage(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"new_message","payload":{"user":"bob","message":"hi"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Event != wire.EventNewMessage {
		t.Errorf("event: got %q", ev.Event)
	}

	var p wire.NewMessagePayload
	if err := ev.DecodePayload(&p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.User != "bob" || p.Message != "hi" {
		t.Errorf("payload: got %+v", p)
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"user_left","payload":{"user":"bob","extra":[1,2]}}`))
	if err != nil {
		t.Fatalf("unknown tags must decode, got %v", err)
	}
	if ev.Event != "user_left" {
		t.Errorf("event: got %q", ev.Event)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"empty", ``, ErrMalformed},
		{"not json", `hello there`, ErrMalformed},
		{"truncated", `{"event":"new_message"`, ErrMalformed},
		{"array", `[{"event":"x"}]`, ErrMalformed},
		{"number", `42`, ErrMalformed},
		{"wrong event type", `{"event":7}`, ErrMalformed},
		{"missing event", `{"payload":{}}`, ErrMissingEvent},
		{"blank event", `{"event":"","payload":{}}`, ErrMissingEvent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.in))
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecodeLargeMessage(t *testing.T) {
	big := strings.Repeat("y", 40*1024)
	ev, err := Decode([]byte(`{"event":"new_message","payload":{"user":"bob","message":"` + big + `"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var p wire.NewMessagePayload
	if err := ev.DecodePayload(&p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Message != big {
		t.Errorf("message length: got %d, want %d", len(p.Message), len(big))
	}
}

func TestDecodeTarget(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"send_message","target":"room:global","payload":{"message":"hi"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Target != wire.RoomGlobal {
		t.Errorf("target: got %q", ev.Target)
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"join_success"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var p wire.JoinSuccessPayload
	if err := ev.DecodePayload(&p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Room != "" {
		t.Errorf("room: got %q, want empty", p.Room)
	}
}

func TestDecodePayloadTypeMismatch(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"join_success","payload":"room:global"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var p wire.JoinSuccessPayload
	if err := ev.DecodePayload(&p); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDeflateRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"event":"send_message","target":"room:global"}`, 50))

	var buf bytes.Buffer
	fw := NewDeflateWriter()
	fw.Reset(&buf)
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if buf.Len() >= len(payload) {
		t.Errorf("compressed size %d not smaller than %d", buf.Len(), len(payload))
	}

	fr := NewDeflateReader()
	fr.Reset(&buf)
	out, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("payload mismatch")
	}
}

func TestDeflateAccepted(t *testing.T) {
	if DeflateAccepted(nil) {
		t.Error("expected false for no extensions")
	}
	other := []httphead.Option{httphead.NewOption("x-custom", nil)}
	if DeflateAccepted(other) {
		t.Error("expected false for unrelated extension")
	}
	if !DeflateAccepted([]httphead.Option{DeflateOffer()}) {
		t.Error("expected true for permessage-deflate")
	}
}
