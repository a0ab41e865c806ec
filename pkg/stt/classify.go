package stt

import "strings"

// minSpeechRunes is the shortest trimmed transcription still treated as speech.
const minSpeechRunes = 3

// noiseIndicators are phrases whisper-family models hallucinate on silence or
// background noise.
var noiseIndicators = map[string]struct{}{
	"thank you":           {},
	"thanks for watching": {},
	"you":                 {},
	".":                   {},
	"":                    {},
}

// Classify maps raw transcription text onto speech/no-speech/noise.
func Classify(text string) Transcript {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minSpeechRunes {
		return Transcript{Kind: KindNoSpeech}
	}
	if _, ok := noiseIndicators[strings.ToLower(trimmed)]; ok {
		return Transcript{Kind: KindNoise}
	}
	return Transcript{Kind: KindSpeech, Text: trimmed}
}
