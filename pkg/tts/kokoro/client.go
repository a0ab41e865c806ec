package kokoro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sharpsoft/almosthuman/pkg/tts"
)

// Client talks to a Kokoro TTS service over HTTP. The service returns float
// samples plus native word timings, which is what the reply frame carries
// downstream.
type Client struct {
	BaseURL string
	Voice   string
	HTTP    *http.Client // injected; default if nil
	Timeout time.Duration
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type synthesizeResponse struct {
	Samples     []float32        `json:"samples"`
	WordTimings []tts.WordTiming `json:"word_timings"`
	SampleRate  int              `json:"sample_rate"`
}

func New(baseURL, voice string) *Client {
	return &Client{BaseURL: baseURL, Voice: voice}
}

func (c *Client) Synthesize(ctx context.Context, text string) (*tts.Synthesis, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	payload, err := json.Marshal(synthesizeRequest{Text: text, Voice: c.Voice})
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodPost, c.BaseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{}
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts http %d: %s (dur=%s)", resp.StatusCode, string(b), time.Since(start))
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode tts response: %w", err)
	}
	if out.SampleRate == 0 {
		out.SampleRate = 24000
	}

	return &tts.Synthesis{
		Samples:     out.Samples,
		WordTimings: out.WordTimings,
		SampleRate:  out.SampleRate,
	}, nil
}
