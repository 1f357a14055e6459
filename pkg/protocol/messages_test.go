// ABOUTME: Tests for relay protocol message types
// ABOUTME: Verifies envelope parsing and payload field names
package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSessionOpenWireFormat(t *testing.T) {
	msg := Message{
		Type: TypeSessionOpen,
		Payload: SessionOpen{
			Mode:       ModeDecode,
			SampleRate: 44100,
			Channels:   2,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	want := `{"type":"session/open","payload":{"mode":"decode","sample_rate":44100,"channels":2}}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"session/done","payload":{"seq":3,"outputs":2,"error":{"kind":"decode_retrieve_failed","code":-1094995529,"message":"bad"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeSessionDone {
		t.Errorf("expected type %s, got %s", TypeSessionDone, env.Type)
	}

	var done SessionDone
	if err := env.Decode(&done); err != nil {
		t.Fatal(err)
	}
	if done.Seq != 3 || done.Outputs != 2 {
		t.Errorf("unexpected done: %+v", done)
	}
	if done.Error == nil || done.Error.Code != -1094995529 {
		t.Fatalf("error not decoded: %+v", done.Error)
	}
	if !strings.Contains(done.Error.Error(), "decode_retrieve_failed") {
		t.Errorf("Error() = %q", done.Error.Error())
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"missing type", `{"payload":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEnvelopeDecodeEmptyPayload(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"session/close"}`))
	if err != nil {
		t.Fatal(err)
	}
	open := SessionOpen{Channels: 1}
	if err := env.Decode(&open); err != nil {
		t.Fatal(err)
	}
	if open.Channels != 1 {
		t.Error("empty payload changed the target")
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeDecode, ModeEncode, ModeTranscode} {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Mode("mp3").Valid() {
		t.Error("mp3 should not be a valid mode")
	}
	if err := (SessionOpen{Mode: "x"}).Validate(); err == nil {
		t.Error("Validate() accepted an unknown mode")
	}
}
