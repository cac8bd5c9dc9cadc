package conversation

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"vocaflow/internal/models"
)

// Frame types exchanged over /ws/{level}
const (
	FrameAssignmentSetup = "assignment_setup"
	FrameText            = "text"
	FrameVoice           = "voice"
	FrameVoiceResponse   = "voice_response"
	FrameError           = "error"

	// BotPrefix marks a plain-text tutor reply
	BotPrefix = "bot:"

	legacyUserPrefix = "user:"
)

var ErrMalformedFrame = errors.New("malformed frame")

const frameSchemaURL = "schema://vocaflow/frame.json"

const frameSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["assignment_setup", "text", "voice"]}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "text"}}},
      "then": {
        "required": ["content"],
        "properties": {"content": {"type": "string"}}
      }
    },
    {
      "if": {"properties": {"type": {"const": "voice"}}},
      "then": {
        "required": ["audio"],
        "properties": {"audio": {"type": "string", "minLength": 1}}
      }
    },
    {
      "if": {"properties": {"type": {"const": "assignment_setup"}}},
      "then": {
        "required": ["assignment"],
        "properties": {"assignment": {"$ref": "#/$defs/assignment"}}
      }
    }
  ],
  "$defs": {
    "assignment": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "classroom_id": {"type": "string"},
        "title": {"type": "string"},
        "description": {"type": "string"},
        "instructions": {"type": "string"},
        "level": {"type": "string"},
        "prompt": {"type": "string"},
        "vocab": {"type": "array", "items": {"type": "string"}},
        "min_vocab_words": {"type": "integer", "minimum": 0},
        "duration": {"type": "integer", "minimum": 0},
        "avatar_role": {"type": "string"},
        "avatar_characteristics": {"type": "string"},
        "voice_speed": {"type": "number", "minimum": 0.5, "maximum": 2.0}
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(frameSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse frame schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(frameSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add frame schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(frameSchemaURL)
	})
	return compiledSchema, compileErr
}

// Frame is one decoded client message
type Frame struct {
	Type       string
	Content    string
	Audio      string
	Assignment *models.Assignment
}

type wireFrame struct {
	Type       string           `json:"type"`
	Content    string           `json:"content"`
	Audio      string           `json:"audio"`
	Assignment *setupAssignment `json:"assignment"`
}

type setupAssignment struct {
	ID                    string   `json:"id"`
	ClassroomID           string   `json:"classroom_id"`
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	Instructions          string   `json:"instructions"`
	Level                 string   `json:"level"`
	Prompt                string   `json:"prompt"`
	Vocab                 []string `json:"vocab"`
	MinVocabWords         int      `json:"min_vocab_words"`
	Duration              int      `json:"duration"`
	AvatarRole            string   `json:"avatar_role"`
	AvatarCharacteristics string   `json:"avatar_characteristics"`
	VoiceSpeed            float64  `json:"voice_speed"`
}

func (s *setupAssignment) model() *models.Assignment {
	return &models.Assignment{
		ID:                    s.ID,
		ClassroomID:           s.ClassroomID,
		Title:                 s.Title,
		Description:           s.Description,
		Instructions:          s.Instructions,
		Level:                 s.Level,
		Prompt:                s.Prompt,
		Vocab:                 s.Vocab,
		MinVocabWords:         s.MinVocabWords,
		Duration:              s.Duration,
		AvatarRole:            s.AvatarRole,
		AvatarCharacteristics: s.AvatarCharacteristics,
		VoiceSpeed:            s.VoiceSpeed,
		IsActive:              true,
	}
}

// ParseFrame decodes a client frame. Besides the JSON frames it accepts
// the legacy "user:<text>" form as a text frame.
func ParseFrame(data []byte) (Frame, error) {
	if bytes.HasPrefix(data, []byte(legacyUserPrefix)) {
		return Frame{Type: FrameText, Content: string(data[len(legacyUserPrefix):])}, nil
	}

	sch, err := schema()
	if err != nil {
		return Frame{}, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := sch.Validate(doc); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var wire wireFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	frame := Frame{Type: wire.Type, Content: wire.Content, Audio: wire.Audio}
	if wire.Assignment != nil {
		frame.Assignment = wire.Assignment.model()
	}
	return frame, nil
}

// DecodeAudio decodes a base64 voice payload. A data URL prefix
// ("data:audio/webm;base64,") is accepted.
func DecodeAudio(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio payload")
	}
	return data, nil
}

type voiceResponse struct {
	Type          string `json:"type"`
	Text          string `json:"text"`
	Audio         string `json:"audio"`
	Transcription string `json:"transcription"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func encodeVoiceResponse(text string, audio []byte, transcription string) ([]byte, error) {
	return json.Marshal(voiceResponse{
		Type:          FrameVoiceResponse,
		Text:          text,
		Audio:         base64.StdEncoding.EncodeToString(audio),
		Transcription: transcription,
	})
}

func encodeError(content string) ([]byte, error) {
	return json.Marshal(errorEvent{Type: FrameError, Content: content})
}
