// Package audio turns tutor replies into speech and student recordings
// into text using hosted providers.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vocaflow/internal/prompt"
)

const (
	ttsRequestTimeout = 30 * time.Second

	// maxAudioBytes bounds a synthesized clip read into memory
	maxAudioBytes = 20 << 20

	elevenLabsBaseURL = "https://api.elevenlabs.io"
	elevenLabsModel   = "eleven_multilingual_v2"
	narakeetBaseURL   = "https://api.narakeet.com"
)

// Synthesizer converts text to MP3 audio
type Synthesizer interface {
	// Synthesize speaks text with the provider's voice from voices at the
	// given speed multiplier (1.0 is normal).
	Synthesize(ctx context.Context, text string, voices prompt.Voices, speed float64) ([]byte, error)

	// Name identifies the provider in logs
	Name() string
}

// StatusError reports a non-200 answer from a speech provider
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ElevenLabs synthesizes speech with the ElevenLabs REST API
type ElevenLabs struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewElevenLabs creates an ElevenLabs synthesizer. baseURL may be empty.
func NewElevenLabs(apiKey, baseURL string) (*ElevenLabs, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs API key is required")
	}
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: ttsRequestTimeout},
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string, voices prompt.Voices, speed float64) ([]byte, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           clamp(speed, 0.7, 1.2),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voices.ElevenLabs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return fetchAudio(e.client, e.Name(), req)
}

// Narakeet synthesizes speech with the Narakeet REST API
type Narakeet struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewNarakeet creates a Narakeet synthesizer. baseURL may be empty.
func NewNarakeet(apiKey, baseURL string) (*Narakeet, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("narakeet API key is required")
	}
	if baseURL == "" {
		baseURL = narakeetBaseURL
	}
	return &Narakeet{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: ttsRequestTimeout},
	}, nil
}

func (n *Narakeet) Name() string { return "narakeet" }

func (n *Narakeet) Synthesize(ctx context.Context, text string, voices prompt.Voices, speed float64) ([]byte, error) {
	params := url.Values{}
	params.Set("voice", voices.Narakeet)
	params.Set("voice-speed", strconv.FormatFloat(clamp(speed, 0.5, 2.0), 'f', 2, 64))

	endpoint := n.baseURL + "/text-to-speech/mp3?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", n.apiKey)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/octet-stream")

	return fetchAudio(n.client, n.Name(), req)
}

// fetchAudio performs req and returns the response body of a 200 answer
func fetchAudio(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s returned empty audio", provider)
	}
	return data, nil
}

func clamp(v, lo, hi float64) float64 {
	if v == 0 {
		return 1.0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
