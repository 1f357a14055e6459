package adpcm

// Stats counts the work done by a session
type Stats struct {
	Chunks       uint64 // decode calls that produced output
	Frames       uint64 // encoder frames submitted
	Packets      uint64 // encoded packets emitted
	BytesIn      uint64
	BytesOut     uint64
	DroppedBytes uint64 // trailing PCM shorter than one frame
	Errors       uint64
}
