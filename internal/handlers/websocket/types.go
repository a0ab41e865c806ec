package websocket

import (
	"encoding/base64"
	"encoding/json"

	"github.com/sharpsoft/almosthuman/pkg/tts"
)

// Reply frame constants. The sample rate is whatever synthesis reports; these
// describe the payload shape.
const (
	replyMethod   = "native_kokoro_timing"
	replyModality = "audio_only"
)

// ConnectedFrame confirms the handshake.
type ConnectedFrame struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// PingFrame is the liveness signal. Timestamp is unix epoch seconds.
type PingFrame struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

// ReplyFrame carries one synthesized reply.
type ReplyFrame struct {
	Audio       string           `json:"audio"` // base64 PCM16 LE mono
	WordTimings []tts.WordTiming `json:"word_timings"`
	SampleRate  int              `json:"sample_rate"`
	Method      string           `json:"method"`
	Modality    string           `json:"modality"`
}

// ErrorFrame reports a non-fatal per-message failure.
type ErrorFrame struct {
	Error string `json:"error"`
}

// inboundFrame is the decoded form of a client frame. The contract is
// audio-only: frames without an audio_segment field are accepted and ignored.
type inboundFrame struct {
	// audio present iff the frame carried a usable audio_segment
	audio []byte
	// errMsg non-empty iff the frame must be answered with an ErrorFrame
	errMsg string
	// ignored marks a well-formed non-audio payload
	ignored bool
}

// decodeInbound classifies one raw client frame into a small closed set of
// shapes so malformed fields fail at decode time, not at field access.
func decodeInbound(data []byte) inboundFrame {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return inboundFrame{errMsg: "Invalid JSON format"}
	}

	segRaw, ok := raw["audio_segment"]
	if !ok {
		return inboundFrame{ignored: true}
	}

	var encoded string
	if err := json.Unmarshal(segRaw, &encoded); err != nil || encoded == "" {
		return inboundFrame{errMsg: "Missing required field: audio_segment"}
	}

	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return inboundFrame{errMsg: "Processing error: audio_segment is not valid base64"}
	}

	return inboundFrame{audio: pcm}
}
