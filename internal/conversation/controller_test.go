package conversation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaflow/internal/gateway"
	"vocaflow/internal/llm"
	"vocaflow/internal/logger"
	"vocaflow/internal/prompt"
)

type fakeSpeech struct {
	data []byte
	err  error
}

func (f *fakeSpeech) Name() string { return "fake" }

func (f *fakeSpeech) Synthesize(context.Context, string, prompt.Voices, float64) ([]byte, error) {
	return f.data, f.err
}

type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) Transcribe(context.Context, []byte) (string, error) {
	return f.text, f.err
}

func newController(p gateway.Providers, setupWait time.Duration) *Controller {
	gw := gateway.New(p, time.Second, logger.Discard())
	return NewController(gw, NewFilter(nil), Options{
		SetupWait:      setupWait,
		DefaultLevel:   "intermediate_mid",
		MaxMessageSize: 1 << 20,
	}, logger.Discard())
}

func dial(t *testing.T, ctrl *Controller, level string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ctrl.Serve(context.Background(), conn, strings.TrimPrefix(r.URL.Path, "/ws/"))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + level
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestServeRejectsWithoutProviders(t *testing.T) {
	conn := dial(t, newController(gateway.Providers{}, 10*time.Millisecond), "novice_mid")

	msg := read(t, conn)
	assert.True(t, strings.HasPrefix(msg, "Error: "), msg)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestServePracticeMode(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Text: "Muy bien"})
	conn := dial(t, newController(gateway.Providers{General: general}, 20*time.Millisecond), "beginner")

	opening := read(t, conn)
	require.True(t, strings.HasPrefix(opening, BotPrefix), opening)
	icebreaker := strings.TrimPrefix(opening, BotPrefix)
	assert.Contains(t, prompt.Resolve("novice_mid").Icebreakers, icebreaker)

	send(t, conn, `{"type":"text","content":"Hola"}`)
	assert.Equal(t, "bot:Muy bien", read(t, conn))

	req, ok := general.LastCall()
	require.True(t, ok)
	assert.Equal(t, prompt.RenderHistory(prompt.Build(nil, "novice_mid"), nil), req.System)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleAssistant, Content: icebreaker},
		{Role: llm.RoleUser, Content: "Hola"},
	}, req.Messages)
}

func TestServeUnknownLevelUsesDefault(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Text: "Vale"})
	conn := dial(t, newController(gateway.Providers{General: general}, 10*time.Millisecond), "klingon")

	opening := strings.TrimPrefix(read(t, conn), BotPrefix)
	assert.Contains(t, prompt.Resolve("intermediate_mid").Icebreakers, opening)
}

func TestServeAssignmentSetup(t *testing.T) {
	contextual := llm.NewMockProvider(llm.MockResponse{Text: "Buenas noches, ¿qué va a pedir?"})
	general := llm.NewMockProvider(llm.MockResponse{Text: "Claro, enseguida."})
	conn := dial(t, newController(gateway.Providers{Contextual: contextual, General: general}, 2*time.Second), "novice_mid")

	send(t, conn, `{"type":"assignment_setup","assignment":{"id":"a1","title":"En el restaurante","level":"advanced_low","avatar_role":"camarero"}}`)
	assert.Equal(t, "bot:Buenas noches, ¿qué va a pedir?", read(t, conn))

	req, ok := contextual.LastCall()
	require.True(t, ok)
	assert.Contains(t, req.System, "En el restaurante")

	// the contextual queue is now empty so the turn falls through
	send(t, conn, `{"type":"text","content":"Quiero la paella"}`)
	assert.Equal(t, "bot:Claro, enseguida.", read(t, conn))

	req, ok = general.LastCall()
	require.True(t, ok)
	assert.Equal(t, 250, req.MaxTokens)
	assert.Contains(t, req.System, "En el restaurante")
	assert.Equal(t, "Buenas noches, ¿qué va a pedir?", req.Messages[0].Content)
}

func TestServeAssignmentOpeningFallsBackToIcebreaker(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Err: errors.New("down")})
	conn := dial(t, newController(gateway.Providers{General: general}, 2*time.Second), "novice_mid")

	send(t, conn, `{"type":"assignment_setup","assignment":{"title":"Debate","level":"advanced_high"}}`)

	opening := strings.TrimPrefix(read(t, conn), BotPrefix)
	assert.Contains(t, prompt.Resolve("advanced_high").Icebreakers, opening)
}

func TestServeFrameDuringSetupWaitIsFirstTurn(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Text: "¡Hola! ¿Qué tal?"})
	conn := dial(t, newController(gateway.Providers{General: general}, 5*time.Second), "novice_mid")

	start := time.Now()
	send(t, conn, "user:Hola")

	assert.True(t, strings.HasPrefix(read(t, conn), BotPrefix))
	assert.Equal(t, "bot:¡Hola! ¿Qué tal?", read(t, conn))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestServeFiltersReplies(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Text: "Me encanta la cerveza fría."})
	conn := dial(t, newController(gateway.Providers{General: general}, 10*time.Millisecond), "novice_mid")
	read(t, conn)

	send(t, conn, `{"type":"text","content":"¿Qué bebes?"}`)
	assert.Equal(t, BotPrefix+Redirect, read(t, conn))
}

func TestServeSkipsMalformedFrames(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Text: "Perfecto"})
	conn := dial(t, newController(gateway.Providers{General: general}, 10*time.Millisecond), "novice_mid")
	read(t, conn)

	send(t, conn, `not json`)
	send(t, conn, `{"type":"dance"}`)
	send(t, conn, `{"type":"text","content":"   "}`)
	send(t, conn, `{"type":"text","content":"Hola"}`)

	assert.Equal(t, "bot:Perfecto", read(t, conn))
	assert.Equal(t, 1, general.CallCount())
}

func TestServeVoiceTurn(t *testing.T) {
	general := llm.NewMockProvider(llm.MockResponse{Text: "¡Qué bien!"})
	p := gateway.Providers{
		General:     general,
		Speech:      &fakeSpeech{data: []byte("mp3-bytes")},
		Transcriber: &fakeSTT{text: " Fui a la playa "},
	}
	conn := dial(t, newController(p, 10*time.Millisecond), "novice_mid")
	read(t, conn)

	send(t, conn, `{"type":"voice","audio":"`+base64.StdEncoding.EncodeToString([]byte("webm"))+`"}`)

	var resp struct {
		Type          string `json:"type"`
		Text          string `json:"text"`
		Audio         string `json:"audio"`
		Transcription string `json:"transcription"`
	}
	require.NoError(t, json.Unmarshal([]byte(read(t, conn)), &resp))
	assert.Equal(t, FrameVoiceResponse, resp.Type)
	assert.Equal(t, "¡Qué bien!", resp.Text)
	assert.Equal(t, "Fui a la playa", resp.Transcription)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")), resp.Audio)
}

func TestServeVoiceFailures(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("webm"))

	t.Run("synthesis failure still delivers text", func(t *testing.T) {
		p := gateway.Providers{
			General:     llm.NewMockProvider(llm.MockResponse{Text: "Entiendo"}),
			Speech:      &fakeSpeech{err: errors.New("quota")},
			Transcriber: &fakeSTT{text: "hola"},
		}
		conn := dial(t, newController(p, 10*time.Millisecond), "novice_mid")
		read(t, conn)

		send(t, conn, `{"type":"voice","audio":"`+audio+`"}`)
		assert.JSONEq(t, `{"type":"error","content":"`+errSynthesize+`"}`, read(t, conn))
		assert.Equal(t, "bot:Entiendo", read(t, conn))
	})

	t.Run("empty transcription keeps the loop alive", func(t *testing.T) {
		general := llm.NewMockProvider(llm.MockResponse{Text: "Sigo aquí"})
		p := gateway.Providers{General: general, Transcriber: &fakeSTT{text: "  "}}
		conn := dial(t, newController(p, 10*time.Millisecond), "novice_mid")
		read(t, conn)

		send(t, conn, `{"type":"voice","audio":"`+audio+`"}`)
		assert.JSONEq(t, `{"type":"error","content":"`+errNoSpeech+`"}`, read(t, conn))

		send(t, conn, `{"type":"text","content":"¿Hola?"}`)
		assert.Equal(t, "bot:Sigo aquí", read(t, conn))
		assert.Equal(t, 1, general.CallCount())
	})

	t.Run("transcription error", func(t *testing.T) {
		p := gateway.Providers{
			General:     llm.NewMockProvider(),
			Transcriber: &fakeSTT{err: errors.New("whisper down")},
		}
		conn := dial(t, newController(p, 10*time.Millisecond), "novice_mid")
		read(t, conn)

		send(t, conn, `{"type":"voice","audio":"`+audio+`"}`)
		assert.JSONEq(t, `{"type":"error","content":"`+errTranscribe+`"}`, read(t, conn))
	})

	t.Run("undecodable audio", func(t *testing.T) {
		conn := dial(t, newController(gateway.Providers{General: llm.NewMockProvider()}, 10*time.Millisecond), "novice_mid")
		read(t, conn)

		send(t, conn, `{"type":"voice","audio":"***"}`)
		assert.JSONEq(t, `{"type":"error","content":"`+errNoAudio+`"}`, read(t, conn))
	})
}

func TestServeUnknownAssignmentLevelKeepsURLLevel(t *testing.T) {
	general := llm.NewMockProvider(
		llm.MockResponse{Text: "¡Bienvenido al debate!"},
		llm.MockResponse{Text: "Interesante punto de vista."},
	)
	conn := dial(t, newController(gateway.Providers{General: general}, 2*time.Second), "advanced_high")

	send(t, conn, `{"type":"assignment_setup","assignment":{"title":"Debate","level":"superior"}}`)
	assert.Equal(t, "bot:¡Bienvenido al debate!", read(t, conn))

	send(t, conn, `{"type":"text","content":"Creo que sí"}`)
	assert.Equal(t, "bot:Interesante punto de vista.", read(t, conn))

	req, ok := general.LastCall()
	require.True(t, ok)
	advanced := prompt.Resolve("advanced_high")
	fallback := prompt.Resolve(prompt.DefaultLevel)
	assert.Equal(t, 250, req.MaxTokens)
	assert.Contains(t, req.System, advanced.Name)
	assert.Contains(t, req.System, "CEFR "+advanced.CEFR)
	assert.NotContains(t, req.System, fallback.Name+" level")
}

func TestServeAllProvidersFailSendsApology(t *testing.T) {
	contextual := llm.NewMockProvider(
		llm.MockResponse{Err: errors.New("gemini down")},
		llm.MockResponse{Err: errors.New("gemini down")},
	)
	general := llm.NewMockProvider(
		llm.MockResponse{Err: errors.New("openai down")},
		llm.MockResponse{Text: "Ya estoy de vuelta."},
	)
	p := gateway.Providers{Contextual: contextual, General: general}
	conn := dial(t, newController(p, 10*time.Millisecond), "novice_mid")
	icebreaker := strings.TrimPrefix(read(t, conn), BotPrefix)

	send(t, conn, `{"type":"text","content":"Hola"}`)
	assert.Equal(t, BotPrefix+gateway.Apology, read(t, conn))

	send(t, conn, `{"type":"text","content":"¿Estás ahí?"}`)
	assert.Equal(t, "bot:Ya estoy de vuelta.", read(t, conn))

	// the apology stays in the transcript as an ordinary tutor turn
	req, ok := general.LastCall()
	require.True(t, ok)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleAssistant, Content: icebreaker},
		{Role: llm.RoleUser, Content: "Hola"},
		{Role: llm.RoleAssistant, Content: gateway.Apology},
		{Role: llm.RoleUser, Content: "¿Estás ahí?"},
	}, req.Messages)
}
