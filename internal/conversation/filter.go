package conversation

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Redirect replaces any reply that mentions a prohibited word.
const Redirect = "Hablemos de otro tema. ¿Qué te gusta hacer en tu tiempo libre?"

// DefaultProhibitedWords seeds the prohibited_words table and backs the
// filter when the table is empty.
var DefaultProhibitedWords = []string{
	"alcohol",
	"alcohólica",
	"alcohólico",
	"borracha",
	"borracho",
	"emborrachar",
	"cerveza",
	"vino tinto",
	"vino blanco",
	"sangría",
	"tequila",
	"mezcal",
	"vodka",
	"whisky",
	"licor",
	"champán",
	"cóctel",
	"resaca",
	"beer",
	"wine",
	"drunk",
	"hangover",
}

// WordSource lists the words the filter blocks
type WordSource interface {
	ProhibitedWords() ([]string, error)
}

// Filter replaces bot replies that contain a prohibited word
type Filter struct {
	words []string
}

// NewFilter builds a filter over words, falling back to
// DefaultProhibitedWords when words is empty
func NewFilter(words []string) *Filter {
	if len(words) == 0 {
		words = DefaultProhibitedWords
	}
	f := &Filter{words: make([]string, 0, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words = append(f.words, w)
		}
	}
	return f
}

// LoadFilter reads the word list from src. A read failure is logged and the
// built-in list is used.
func LoadFilter(src WordSource, log logrus.FieldLogger) *Filter {
	words, err := src.ProhibitedWords()
	if err != nil {
		log.WithError(err).Warn("Failed to load prohibited words, using built-in list")
		return NewFilter(nil)
	}
	log.WithField("words", len(words)).Debug("Loaded prohibited words")
	return NewFilter(words)
}

// Apply returns Redirect and true when reply contains a prohibited word
// (case-insensitive substring match), otherwise reply unchanged.
func (f *Filter) Apply(reply string) (string, bool) {
	lower := strings.ToLower(reply)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return Redirect, true
		}
	}
	return reply, false
}
