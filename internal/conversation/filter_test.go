package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"vocaflow/internal/logger"
)

type staticWords struct {
	words []string
	err   error
}

func (s staticWords) ProhibitedWords() ([]string, error) { return s.words, s.err }

func TestFilterApply(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		name    string
		reply   string
		blocked bool
	}{
		{name: "clean reply", reply: "¿Qué comiste hoy?", blocked: false},
		{name: "exact word", reply: "Me gusta la cerveza.", blocked: true},
		{name: "case-insensitive", reply: "El TEQUILA es de México", blocked: true},
		{name: "plural substring", reply: "Dos cervezas, por favor", blocked: true},
		{name: "other inflection", reply: "Estaba borrachísimo", blocked: false},
		{name: "accented term", reply: "Tengo resaca", blocked: true},
		{name: "venir preterite is fine", reply: "Mi amigo vino a la fiesta", blocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, blocked := f.Apply(tt.reply)
			assert.Equal(t, tt.blocked, blocked)
			if tt.blocked {
				assert.Equal(t, Redirect, got)
			} else {
				assert.Equal(t, tt.reply, got)
			}
		})
	}
}

func TestLoadFilter(t *testing.T) {
	custom := LoadFilter(staticWords{words: []string{" Pizza "}}, logger.Discard())
	_, blocked := custom.Apply("Quiero pizza")
	assert.True(t, blocked)
	_, blocked = custom.Apply("Quiero cerveza")
	assert.False(t, blocked)

	fallback := LoadFilter(staticWords{err: errors.New("db down")}, logger.Discard())
	_, blocked = fallback.Apply("Quiero cerveza")
	assert.True(t, blocked)

	empty := LoadFilter(staticWords{}, logger.Discard())
	_, blocked = empty.Apply("un vodka")
	assert.True(t, blocked)
}
