package stt

import "context"

// Kind classifies a transcription result. Anything other than KindSpeech is
// discarded by the caller without surfacing an error to the client.
type Kind int

const (
	KindSpeech Kind = iota
	KindNoSpeech
	KindNoise
)

func (k Kind) String() string {
	switch k {
	case KindSpeech:
		return "speech"
	case KindNoSpeech:
		return "no_speech"
	case KindNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// Transcript is the classified output of a transcription call.
type Transcript struct {
	Kind Kind
	Text string
}

// Transcriber converts a PCM16 little-endian mono segment into text.
// A returned error means the transcription itself failed, which callers
// treat the same as the non-speech sentinels: discard.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (Transcript, error)
}
