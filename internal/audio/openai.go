package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"vocaflow/internal/prompt"
)

// OpenAISpeech covers both directions with one OpenAI client: TTS for
// replies and Whisper for student recordings
type OpenAISpeech struct {
	client *openai.Client
}

// NewOpenAISpeech wraps an OpenAI client
func NewOpenAISpeech(client *openai.Client) *OpenAISpeech {
	return &OpenAISpeech{client: client}
}

func (o *OpenAISpeech) Name() string { return "openai" }

func (o *OpenAISpeech) Synthesize(ctx context.Context, text string, voices prompt.Voices, speed float64) ([]byte, error) {
	voice := voices.OpenAI
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          clamp(speed, 0.25, 4.0),
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech failed: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read openai speech: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai returned empty audio")
	}
	return data, nil
}

// Transcriber converts a student's recording to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Transcribe sends a browser recording to Whisper with Spanish as the
// expected language
func (o *OpenAISpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio.webm",
		Reader:   bytes.NewReader(audio),
		Language: "es",
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
