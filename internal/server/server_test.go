// ABOUTME: Tests for the relay server
// ABOUTME: Drives decode, encode and transcode sessions through httptest
package server

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/Sendspin/imaqt-go/pkg/protocol"
)

func startRelay(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(Config{Name: "test relay"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialRelay(t *testing.T, ts *httptest.Server) *protocol.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := protocol.Dial(ctx, strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	c.SetTimeout(5 * time.Second)
	t.Cleanup(func() { c.Close() })
	return c
}

// rawConn is a WebSocket peer that speaks the protocol by hand
func rawConn(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + protocol.Path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return env
	}
}

func sinePCM(frames, channels int) []byte {
	pcm := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		v := int16(6000 * math.Sin(2*math.Pi*440*float64(i)/44100))
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(pcm[(i*channels+ch)*2:], uint16(v))
		}
	}
	return pcm
}

func TestDecodeSession(t *testing.T) {
	_, ts := startRelay(t)
	c := dialRelay(t, ts)

	opened, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened.SessionID == "" {
		t.Error("expected a session ID")
	}
	if opened.ChunkSize != 68 || opened.PCMSize != 256 || opened.FrameSize != 64 {
		t.Errorf("opened = %+v", opened)
	}
	if opened.OutputCodec != "pcm" || opened.Backend != "native" {
		t.Errorf("output codec / backend = %s / %s", opened.OutputCodec, opened.Backend)
	}

	outputs, err := c.Process(make([]byte, 3*68))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(outputs) != 1 || len(outputs[0]) != 3*256 {
		t.Fatalf("got %d outputs, want one of %d bytes", len(outputs), 3*256)
	}

	outputs, err = c.Process(make([]byte, 70))
	var se *protocol.SessionError
	if !errors.As(err, &se) {
		t.Fatalf("Process(70 bytes) error = %v, want *SessionError", err)
	}
	if se.Kind != "invalid_chunk_size" {
		t.Errorf("Kind = %q, want invalid_chunk_size", se.Kind)
	}
	if len(outputs) != 0 {
		t.Errorf("got %d outputs for a rejected input", len(outputs))
	}

	// session survives the failure
	if _, err := c.Process(make([]byte, 68)); err != nil {
		t.Fatalf("Process() after failure error = %v", err)
	}

	stats, err := c.CloseSession()
	if err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if stats.Inputs != 3 || stats.Outputs != 2 || stats.Chunks != 4 || stats.Errors != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEncodeSession(t *testing.T) {
	_, ts := startRelay(t)
	c := dialRelay(t, ts)

	opened, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeEncode, SampleRate: 44100, Channels: 2, BitRate: 64000})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened.OutputCodec != "adpcm-ima-qt" || opened.FrameSize != 64 {
		t.Errorf("opened = %+v", opened)
	}

	outputs, err := c.Process(append(sinePCM(5*64, 2), make([]byte, 12)...))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(outputs) != 5 {
		t.Fatalf("got %d outputs, want 5", len(outputs))
	}
	for i, out := range outputs {
		if len(out) != 68 {
			t.Errorf("output %d has %d bytes, want 68", i, len(out))
		}
	}

	_, err = c.Process(make([]byte, 3))
	var se *protocol.SessionError
	if !errors.As(err, &se) || se.Kind != "invalid_pcm_length" {
		t.Errorf("Process(3 bytes) error = %v, want invalid_pcm_length", err)
	}

	stats, err := c.CloseSession()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Packets != 5 || stats.DroppedBytes != 12 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	_, ts := startRelay(t)
	enc := dialRelay(t, ts)
	dec := dialRelay(t, ts)

	if _, err := enc.Open(protocol.SessionOpen{Mode: protocol.ModeEncode, SampleRate: 22050, Channels: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := dec.Open(protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 22050, Channels: 1}); err != nil {
		t.Fatal(err)
	}

	chunks, err := enc.Process(sinePCM(8*64, 1))
	if err != nil {
		t.Fatal(err)
	}
	var adpcm []byte
	for _, c := range chunks {
		adpcm = append(adpcm, c...)
	}

	pcm, err := dec.Process(adpcm)
	if err != nil {
		t.Fatal(err)
	}
	if len(pcm) != 1 || len(pcm[0]) != 8*128 {
		t.Fatalf("decoded %d outputs", len(pcm))
	}
}

func TestTranscodeSession(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		outputRate int
		frameSize  int
	}{
		{"native rate", 48000, 48000, 960},
		{"resampled", 44100, OpusRate, 960},
		{"narrowband", 16000, 16000, 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := startRelay(t)
			c := dialRelay(t, ts)

			opened, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeTranscode, SampleRate: tt.sampleRate, Channels: 2})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if opened.OutputCodec != "opus" || opened.OutputRate != tt.outputRate || opened.FrameSize != tt.frameSize {
				t.Fatalf("opened = %+v", opened)
			}

			// one second of silence in ten inputs
			chunksPerInput := tt.sampleRate / 64 / 10
			total := 0
			for i := 0; i < 10; i++ {
				outputs, err := c.Process(make([]byte, chunksPerInput*68))
				if err != nil {
					t.Fatalf("Process() error = %v", err)
				}
				for _, pkt := range outputs {
					if len(pkt) == 0 {
						t.Error("empty opus packet")
					}
				}
				total += len(outputs)
			}

			// 50 packets per second, less a partial frame still buffered
			if total < 45 || total > 50 {
				t.Errorf("got %d packets, want about 50", total)
			}

			stats, err := c.CloseSession()
			if err != nil {
				t.Fatal(err)
			}
			if stats.Packets != uint64(total) {
				t.Errorf("Packets = %d, want %d", stats.Packets, total)
			}
		})
	}
}

func TestTranscodeExactFrames(t *testing.T) {
	_, ts := startRelay(t)
	c := dialRelay(t, ts)

	if _, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeTranscode, SampleRate: 48000, Channels: 1}); err != nil {
		t.Fatal(err)
	}

	// 15 chunks of 64 samples make one 960 sample frame
	outputs, err := c.Process(make([]byte, 14*34))
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 0 {
		t.Fatalf("got %d packets before a full frame", len(outputs))
	}
	outputs, err = c.Process(make([]byte, 34))
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 1 {
		t.Fatalf("got %d packets, want 1", len(outputs))
	}

	stats, err := c.CloseSession()
	if err != nil {
		t.Fatal(err)
	}
	if stats.DroppedBytes != 0 {
		t.Errorf("DroppedBytes = %d, want 0", stats.DroppedBytes)
	}
}

func TestOpenFailures(t *testing.T) {
	tests := []struct {
		name     string
		req      protocol.SessionOpen
		wantKind string
		wantCode int
	}{
		{"bad mode", protocol.SessionOpen{Mode: "mix", SampleRate: 44100, Channels: 2}, protocol.KindBadRequest, 0},
		{"three channels", protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 3}, "open_failed", -22},
		{"zero rate", protocol.SessionOpen{Mode: protocol.ModeEncode, SampleRate: 0, Channels: 1}, "open_failed", -22},
		{"unknown backend", protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 1, Backend: "nope"}, "codec_unavailable", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := startRelay(t)
			c := dialRelay(t, ts)

			_, err := c.Open(tt.req)
			var se *protocol.SessionError
			if !errors.As(err, &se) {
				t.Fatalf("Open() error = %v, want *SessionError", err)
			}
			if se.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", se.Kind, tt.wantKind)
			}
			if tt.wantCode != 0 && se.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", se.Code, tt.wantCode)
			}

			// the connection stays usable
			if _, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 1}); err != nil {
				t.Errorf("Open() after failure error = %v", err)
			}
		})
	}
}

func TestProtocolErrors(t *testing.T) {
	_, ts := startRelay(t)
	conn := rawConn(t, ts)

	// input without a session still gets a done reply
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 34)); err != nil {
		t.Fatal(err)
	}
	env := readEnvelope(t, conn)
	var done protocol.SessionDone
	if env.Type != protocol.TypeSessionDone || env.Decode(&done) != nil {
		t.Fatalf("got %s, want %s", env.Type, protocol.TypeSessionDone)
	}
	if done.Seq != 1 || done.Error == nil || done.Error.Kind != protocol.KindNoSession {
		t.Errorf("done = %+v", done)
	}

	tests := []struct {
		name     string
		msg      string
		wantKind string
	}{
		{"close without session", `{"type":"session/close"}`, protocol.KindNoSession},
		{"unknown type", `{"type":"player/update"}`, protocol.KindUnknownMessage},
		{"not json", `hello`, protocol.KindBadRequest},
		{"bad payload", `{"type":"session/open","payload":"x"}`, protocol.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatal(err)
			}
			env := readEnvelope(t, conn)
			if env.Type != protocol.TypeSessionError {
				t.Fatalf("got %s, want %s", env.Type, protocol.TypeSessionError)
			}
			var se protocol.SessionError
			if err := env.Decode(&se); err != nil {
				t.Fatal(err)
			}
			if se.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", se.Kind, tt.wantKind)
			}
		})
	}
}

func TestSecondOpenRejected(t *testing.T) {
	_, ts := startRelay(t)
	conn := rawConn(t, ts)

	open := protocol.Message{Type: protocol.TypeSessionOpen, Payload: protocol.SessionOpen{
		Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 1}}
	if err := conn.WriteJSON(open); err != nil {
		t.Fatal(err)
	}
	if env := readEnvelope(t, conn); env.Type != protocol.TypeSessionOpened {
		t.Fatalf("got %s, want %s", env.Type, protocol.TypeSessionOpened)
	}

	if err := conn.WriteJSON(open); err != nil {
		t.Fatal(err)
	}
	env := readEnvelope(t, conn)
	var se protocol.SessionError
	env.Decode(&se)
	if env.Type != protocol.TypeSessionError || se.Kind != protocol.KindSessionOpen {
		t.Errorf("got %s %+v, want %s", env.Type, se, protocol.KindSessionOpen)
	}
}

func TestReopenAfterClose(t *testing.T) {
	_, ts := startRelay(t)
	c := dialRelay(t, ts)

	first, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.CloseSession(); err != nil {
		t.Fatal(err)
	}
	second, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeEncode, SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	if first.SessionID == second.SessionID {
		t.Error("reopened session reused its ID")
	}
	outputs, err := c.Process(make([]byte, 128))
	if err != nil || len(outputs) != 1 {
		t.Errorf("Process() = %d outputs, %v", len(outputs), err)
	}
}

func TestSessionsSnapshot(t *testing.T) {
	srv, ts := startRelay(t)
	c := dialRelay(t, ts)

	if got := srv.Sessions(); len(got) != 0 {
		t.Fatalf("Sessions() = %d before open", len(got))
	}

	opened, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 32000, Channels: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Process(make([]byte, 68)); err != nil {
		t.Fatal(err)
	}

	sessions := srv.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("Sessions() = %d, want 1", len(sessions))
	}
	s := sessions[0]
	if s.SessionID != opened.SessionID || s.Mode != protocol.ModeDecode || s.SampleRate != 32000 || s.Inputs != 1 {
		t.Errorf("session = %+v", s)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(srv.Sessions()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session still listed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionRow(t *testing.T) {
	row := sessionRow(SessionInfo{
		SessionID:  "0123456789abcdef",
		Mode:       protocol.ModeTranscode,
		Backend:    "native",
		SampleRate: 44100,
		Channels:   2,
		Inputs:     7,
		Failed:     2,
		Age:        90 * time.Second,
		RemoteAddr: "10.0.0.2:5000",
	})
	for _, want := range []string{"01234567", "transcode", "44100Hz/2ch", "7", "2", "1m30s", "10.0.0.2:5000"} {
		if !contains(row, want) {
			t.Errorf("sessionRow() = %q, missing %q", row, want)
		}
	}
	if contains(row, "89abcdef") {
		t.Errorf("session ID was not shortened: %q", row)
	}
}

func TestModeSummary(t *testing.T) {
	tests := []struct {
		modes []protocol.Mode
		want  string
	}{
		{nil, "0"},
		{[]protocol.Mode{protocol.ModeEncode}, "1 (1 encode)"},
		{[]protocol.Mode{protocol.ModeTranscode, protocol.ModeDecode, protocol.ModeDecode}, "3 (2 decode, 1 transcode)"},
	}

	for _, tt := range tests {
		var sessions []SessionInfo
		for _, m := range tt.modes {
			sessions = append(sessions, SessionInfo{Mode: m})
		}
		if got := modeSummary(sessions); got != tt.want {
			t.Errorf("modeSummary(%v) = %q, want %q", tt.modes, got, tt.want)
		}
	}
}

func TestDashboardModel(t *testing.T) {
	calls := 0
	quit := make(chan struct{}, 1)
	m := dashboardModel{
		snapshot: func() RelayStatus {
			calls++
			return RelayStatus{Name: "test relay", Port: 8930, Connections: 1}
		},
		poke:    make(chan struct{}, 1),
		quit:    quit,
		started: time.Now(),
	}

	next, _ := m.Update(m.refresh())
	m = next.(dashboardModel)
	if calls != 1 || m.status.Connections != 1 {
		t.Fatalf("status not applied: calls=%d status=%+v", calls, m.status)
	}
	view := m.View()
	for _, want := range []string{"test relay", ":8930" + protocol.Path, "no open sessions"} {
		if !contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(dashboardModel)
	if cmd == nil || !m.leaving {
		t.Error("q should quit the dashboard")
	}
	select {
	case <-quit:
	default:
		t.Error("quit was not signalled")
	}
}

func TestDashboardRefreshCoalesces(t *testing.T) {
	d := &Dashboard{poke: make(chan struct{}, 1)}
	d.Refresh()
	d.Refresh()
	if len(d.poke) != 1 {
		t.Errorf("pending pokes = %d, want 1", len(d.poke))
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
