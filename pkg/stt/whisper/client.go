package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/stt"
)

// transcriptionResponse is the JSON body returned by the faster-whisper
// webservice in output=json mode.
type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Client talks to a faster-whisper webservice over HTTP. The service receives
// a WAV upload and returns the recognized text; sentinel classification
// (no-speech, noise) happens here on the way out.
type Client struct {
	baseURL    string
	sampleRate int
	httpClient *http.Client
	logger     *Logger.Logger
}

func New(baseURL string, sampleRate int, logger *Logger.Logger) *Client {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Client{
		baseURL:    baseURL,
		sampleRate: sampleRate,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Transcribe uploads one PCM16 mono segment and classifies the result.
func (c *Client) Transcribe(ctx context.Context, pcm []byte) (stt.Transcript, error) {
	if len(pcm) == 0 {
		return stt.Transcript{}, fmt.Errorf("empty audio segment")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio_file", "segment.wav")
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(pcmToWAV(pcm, c.sampleRate)); err != nil {
		return stt.Transcript{}, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return stt.Transcript{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	requestURL := fmt.Sprintf("%s/asr?encode=true&task=transcribe&language=en&output=json&vad_filter=true", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &body)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return stt.Transcript{}, fmt.Errorf("whisper service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var transcription transcriptionResponse
	if err := json.Unmarshal(responseBody, &transcription); err != nil {
		// Some deployments reply with bare text instead of JSON.
		if len(responseBody) > 0 {
			c.logger.Debugf("treating whisper response as plain text: %q", string(responseBody))
			return stt.Classify(string(responseBody)), nil
		}
		return stt.Transcript{}, fmt.Errorf("failed to decode whisper response: %w", err)
	}

	c.logger.Debugf("whisper transcription: %q (language: %s)", transcription.Text, transcription.Language)
	return stt.Classify(transcription.Text), nil
}

// pcmToWAV wraps raw PCM16 mono samples in a 44-byte WAV header.
func pcmToWAV(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	wavSize := 44 + len(pcm)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	writeUint32LE(header[4:8], uint32(wavSize-8))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	writeUint32LE(header[16:20], 16)
	writeUint16LE(header[20:22], 1) // PCM format
	writeUint16LE(header[22:24], uint16(numChannels))
	writeUint32LE(header[24:28], uint32(sampleRate))
	writeUint32LE(header[28:32], uint32(byteRate))
	writeUint16LE(header[32:34], uint16(blockAlign))
	writeUint16LE(header[34:36], uint16(bitsPerSample))
	copy(header[36:40], "data")
	writeUint32LE(header[40:44], uint32(len(pcm)))

	wavData := make([]byte, 0, wavSize)
	wavData = append(wavData, header...)
	wavData = append(wavData, pcm...)
	return wavData
}

func writeUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func writeUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
