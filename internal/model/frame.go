package model

import "time"

// Timestamp is the absolute capture time of a frame.
type Timestamp struct {
	Seconds      uint32 `json:"seconds"`
	Microseconds uint32 `json:"microseconds"`
}

// Duration returns the timestamp as an offset from the Unix epoch.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Seconds)*time.Second + time.Duration(t.Microseconds)*time.Microsecond
}

// Frame is one timestamped chunk of recorded terminal output.
// Payload may alias the buffer the frame was decoded from and must not be modified.
type Frame struct {
	Seconds      uint32 `json:"seconds"`
	Microseconds uint32 `json:"microseconds"`
	Payload      []byte `json:"payload"`
}

// Timestamp returns the frame's capture time.
func (f Frame) Timestamp() Timestamp {
	return Timestamp{Seconds: f.Seconds, Microseconds: f.Microseconds}
}

// RecordingInfo summarizes a decoded recording.
type RecordingInfo struct {
	Source        string        `json:"source,omitempty"`
	Frames        int           `json:"frames"`
	First         Timestamp     `json:"first"`
	Last          Timestamp     `json:"last"`
	Duration      time.Duration `json:"duration"`
	PayloadBytes  int64         `json:"payload_bytes"`
	TrailingBytes int           `json:"trailing_bytes"` // bytes of an incomplete trailing record
}
