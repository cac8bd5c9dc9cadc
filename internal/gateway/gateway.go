// Package gateway puts the hosted chat, speech and transcription providers
// behind fallback chains. Chat degrades to a fixed apology and never fails;
// speech and transcription report errors to the caller.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/audio"
	"vocaflow/internal/config"
	"vocaflow/internal/llm"
	"vocaflow/internal/models"
	"vocaflow/internal/prompt"
)

// Apology is sent in place of a reply when every chat provider failed.
const Apology = "Lo siento, no puedo responder en este momento. ¿Podemos intentarlo de nuevo?"

const (
	contextualMaxTokens = 200
	temperature         = 0.7
)

var (
	ErrNoChatProvider  = errors.New("no chat provider configured: set OPENAI_API_KEY or GOOGLE_API_KEY")
	ErrNoSpeech        = errors.New("no speech provider configured")
	ErrNoTranscription = errors.New("transcription is not configured: set OPENAI_API_KEY")
)

// Providers is the set of backends a Gateway chains over. Any may be nil.
type Providers struct {
	Contextual  llm.Provider // tried first, history rendered into the system prompt
	General     llm.Provider // full chat history
	Backup      llm.Provider // same request as General
	Speech      audio.Synthesizer
	SpeechBkp   audio.Synthesizer
	Transcriber audio.Transcriber
}

// Gateway routes completions, speech and transcription to hosted providers
type Gateway struct {
	p       Providers
	timeout time.Duration
	log     logrus.FieldLogger
}

// New wires a Gateway from explicit providers. A zero timeout disables the
// per-call bound.
func New(p Providers, timeout time.Duration, log logrus.FieldLogger) *Gateway {
	return &Gateway{p: p, timeout: timeout, log: log}
}

// FromConfig builds every provider whose credentials are present
func FromConfig(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Gateway, error) {
	var p Providers
	var speech *audio.OpenAISpeech

	if cfg.OpenAIAPIKey != "" {
		general, err := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai provider: %w", err)
		}
		p.General = llm.WithLogging(general, log)
		speech = audio.NewOpenAISpeech(general.Client())
		p.Transcriber = speech
	}

	if cfg.GoogleAPIKey != "" {
		contextual, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{APIKey: cfg.GoogleAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		p.Contextual = llm.WithLogging(contextual, log)
	}

	if cfg.AnthropicAPIKey != "" {
		backup, err := llm.NewAnthropicProvider(llm.AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
		}
		p.Backup = llm.WithLogging(backup, log)
	}

	var elevenLabs audio.Synthesizer
	if cfg.ElevenLabsAPIKey != "" {
		el, err := audio.NewElevenLabs(cfg.ElevenLabsAPIKey, "")
		if err != nil {
			return nil, err
		}
		elevenLabs = el
	}

	switch cfg.TTSService {
	case "openai":
		if speech != nil {
			p.Speech = speech
		}
		p.SpeechBkp = elevenLabs
	case "narakeet":
		if cfg.NarakeetAPIKey != "" {
			nk, err := audio.NewNarakeet(cfg.NarakeetAPIKey, "")
			if err != nil {
				return nil, err
			}
			p.Speech = nk
		}
		if speech != nil {
			p.SpeechBkp = speech
		}
	default:
		p.Speech = elevenLabs
		if speech != nil {
			p.SpeechBkp = speech
		}
	}

	g := New(p, cfg.ProviderTimeout, log)
	log.WithFields(logrus.Fields{
		"contextual": modelOf(p.Contextual),
		"general":    modelOf(p.General),
		"backup":     modelOf(p.Backup),
		"tts":        nameOf(p.Speech),
		"tts_backup": nameOf(p.SpeechBkp),
	}).Info("Provider gateway configured")
	return g, nil
}

// Ready reports whether at least one chat provider is configured
func (g *Gateway) Ready() error {
	if g.p.Contextual == nil && g.p.General == nil && g.p.Backup == nil {
		return ErrNoChatProvider
	}
	return nil
}

// GetCompletion produces the tutor's next turn for history. The first
// history entry is the system prompt when present; otherwise one is built
// from level and assignment. The result is Apology when every provider fails.
func (g *Gateway) GetCompletion(ctx context.Context, history []llm.Message, level string, assignment *models.Assignment) string {
	system := prompt.Build(assignment, level)
	turns := history
	if len(turns) > 0 && turns[0].Role == llm.RoleSystem {
		system = turns[0].Content
		turns = turns[1:]
	}

	reply, ok := g.complete(ctx, system, turns, level)
	if !ok {
		return Apology
	}
	return reply
}

// OpeningLine asks the chain for a contextual icebreaker. ok is false when
// no provider answered so the caller can use a table icebreaker instead.
func (g *Gateway) OpeningLine(ctx context.Context, assignment *models.Assignment, level string) (string, bool) {
	system := prompt.Build(assignment, level)
	turns := []llm.Message{{Role: llm.RoleUser, Content: prompt.OpeningInstruction(assignment)}}
	return g.complete(ctx, system, turns, level)
}

func (g *Gateway) complete(ctx context.Context, system string, turns []llm.Message, level string) (string, bool) {
	if g.p.Contextual != nil {
		prior, latest := splitLatestUser(turns)
		req := llm.Request{
			System:      prompt.RenderHistory(system, prior),
			Messages:    []llm.Message{latest},
			MaxTokens:   contextualMaxTokens,
			Temperature: temperature,
		}
		text, err := g.generate(ctx, g.p.Contextual, req)
		if err == nil {
			return text, true
		}
		g.log.WithError(err).Warn("Contextual provider failed, falling back")
	}

	req := chatRequest(system, turns, level)
	for _, p := range []llm.Provider{g.p.General, g.p.Backup} {
		if p == nil {
			continue
		}
		text, err := g.generate(ctx, p, req)
		if err == nil {
			return text, true
		}
		g.log.WithError(err).WithField("model", p.ModelID()).Warn("Chat provider failed")
	}

	g.log.Error("All chat providers failed")
	return "", false
}

func (g *Gateway) generate(ctx context.Context, p llm.Provider, req llm.Request) (string, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	resp, err := p.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &llm.ErrInvalidResponse{Content: resp.Text, Err: errors.New("empty completion")}
	}
	return text, nil
}

// chatRequest builds the full-history request; the transcript travels as
// messages so the placeholder is dropped from the system prompt. The
// advanced family gets longer replies and stronger penalties against
// repetition.
func chatRequest(system string, turns []llm.Message, level string) llm.Request {
	req := llm.Request{
		System:           prompt.RenderHistory(system, nil),
		Messages:         turns,
		MaxTokens:        150,
		Temperature:      temperature,
		PresencePenalty:  0.3,
		FrequencyPenalty: 0.2,
	}
	if prompt.IsAdvanced(level) {
		req.MaxTokens = 250
		req.PresencePenalty = 0.6
		req.FrequencyPenalty = 0.3
	}
	return req
}

// splitLatestUser separates the most recent user turn from the turns
// before it. Later bot turns stay in the transcript.
func splitLatestUser(turns []llm.Message) ([]llm.Message, llm.Message) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == llm.RoleUser {
			prior := make([]llm.Message, 0, len(turns)-1)
			prior = append(prior, turns[:i]...)
			prior = append(prior, turns[i+1:]...)
			return prior, turns[i]
		}
	}
	return turns, llm.Message{Role: llm.RoleUser, Content: "Hola"}
}

// SynthesizeSpeech speaks text in the level's voice, trying the primary
// then the fallback provider.
func (g *Gateway) SynthesizeSpeech(ctx context.Context, text, level string, speed float64) ([]byte, error) {
	voices := prompt.Resolve(level).Voices

	var errs []error
	for _, s := range []audio.Synthesizer{g.p.Speech, g.p.SpeechBkp} {
		if s == nil {
			continue
		}
		cctx, cancel := g.bound(ctx)
		data, err := s.Synthesize(cctx, text, voices, speed)
		cancel()
		if err == nil {
			return data, nil
		}
		g.log.WithError(err).WithField("provider", s.Name()).Warn("Speech synthesis failed")
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrNoSpeech
	}
	return nil, fmt.Errorf("all speech providers failed: %w", errors.Join(errs...))
}

// Transcribe converts a Spanish recording to text
func (g *Gateway) Transcribe(ctx context.Context, recording []byte) (string, error) {
	if g.p.Transcriber == nil {
		return "", ErrNoTranscription
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.p.Transcriber.Transcribe(ctx, recording)
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func modelOf(p llm.Provider) string {
	if p == nil {
		return "-"
	}
	return p.ModelID()
}

func nameOf(s audio.Synthesizer) string {
	if s == nil {
		return "-"
	}
	return s.Name()
}
