package tts

import "context"

// WordTiming marks where one spoken word sits inside the synthesized clip,
// in seconds from clip start.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Synthesis is the output of one text-to-speech call: float samples in
// [-1, 1] plus per-word timings. Empty Samples means there is nothing to
// play and the caller skips frame emission.
type Synthesis struct {
	Samples     []float32
	WordTimings []WordTiming
	SampleRate  int
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Synthesis, error)
}
