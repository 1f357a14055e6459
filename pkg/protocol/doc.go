// ABOUTME: Relay protocol package
// ABOUTME: Message types and a WebSocket client for the imaqt relay
// Package protocol implements the imaqt relay protocol.
//
// A client connects to ws://host:port/imaqt and opens a session with a
// session/open text message. Each binary message sent afterwards is one
// input; the relay answers with zero or more binary outputs followed by a
// session/done message. session/close ends the session and returns its
// counters in session/closed.
//
// Example:
//
//	c, err := protocol.Dial(ctx, "localhost:8928")
//	info, err := c.Open(protocol.SessionOpen{Mode: protocol.ModeDecode, SampleRate: 44100, Channels: 2})
//	pcm, err := c.Process(chunk)
//	err = c.Close()
package protocol
