package prompt

import (
	"fmt"
	"strings"

	"vocaflow/internal/llm"
	"vocaflow/internal/models"
)

// HistoryPlaceholder marks where RenderHistory inserts the transcript
const HistoryPlaceholder = "{conversation_history}"

const (
	defaultPersona = "friendly conversation partner"
	defaultAct     = "practice Spanish conversation"
	historyHeader  = "Conversation so far:"
)

// Build returns the system prompt for a conversation. Without an assignment
// it is the level's guidance verbatim; with one it is a PARTS prompt
// (Persona, Act, Recipient, Theme, Structure). The assignment's own level
// wins over level when it names a known level.
func Build(assignment *models.Assignment, level string) string {
	if assignment == nil {
		return Resolve(level).Guidance
	}
	if l, ok := Lookup(assignment.Level); ok {
		level = l.Key
	}
	lvl := Resolve(level)

	var b strings.Builder

	persona := strings.TrimSpace(assignment.AvatarRole)
	if persona == "" {
		persona = defaultPersona
	}
	fmt.Fprintf(&b, "PERSONA: You are a %s.", persona)
	if traits := strings.TrimSpace(assignment.AvatarCharacteristics); traits != "" {
		fmt.Fprintf(&b, " Personality and traits: %s", traits)
	}
	b.WriteString("\n\n")

	b.WriteString("ACT: ")
	act := joinNonEmpty(assignment.Title, assignment.Description)
	if act == "" {
		act = defaultAct
	}
	b.WriteString(act)
	if instructions := strings.TrimSpace(assignment.Instructions); instructions != "" {
		fmt.Fprintf(&b, " Instructions for the student: %s", instructions)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "RECIPIENT: A student of Spanish at the %s level (CEFR %s). Level guidance: %s\n\n",
		lvl.Name, lvl.CEFR, lvl.Guidance)

	b.WriteString("THEME: ")
	if theme := strings.TrimSpace(assignment.Prompt); theme != "" {
		b.WriteString(theme)
	} else {
		b.WriteString(act)
	}
	b.WriteString("\n\n")

	b.WriteString("STRUCTURE: Stay in character and reply ONLY in Spanish. Keep each reply to one to three short sentences " +
		"and end with a question that moves the scenario forward. Never greet more than once.")
	if assignment.Duration > 0 {
		fmt.Fprintf(&b, " The conversation should last about %d minutes.", assignment.Duration)
	}
	if assignment.MinVocabWords > 0 {
		fmt.Fprintf(&b, " Encourage the student to use at least %d of the target words.", assignment.MinVocabWords)
	}

	if words := uniqueWords(assignment.Vocab); len(words) > 0 {
		fmt.Fprintf(&b, " Work these vocabulary words naturally into the conversation: %s.", strings.Join(words, ", "))
	}

	b.WriteString("\n\n")
	b.WriteString(historyHeader)
	b.WriteString("\n")
	b.WriteString(HistoryPlaceholder)

	return b.String()
}

// uniqueWords trims words and drops blanks and case-insensitive duplicates,
// keeping first occurrences in order
func uniqueWords(vocab []string) []string {
	seen := make(map[string]bool, len(vocab))
	var out []string
	for _, w := range vocab {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, strings.TrimSuffix(p, ".")+".")
		}
	}
	return strings.Join(kept, " ")
}

// RenderHistory substitutes the transcript of turns into template. System
// turns are skipped. With no turns the placeholder and its header are
// removed; a template without a placeholder gets the transcript appended.
func RenderHistory(template string, turns []llm.Message) string {
	var lines []string
	for _, t := range turns {
		switch t.Role {
		case llm.RoleUser:
			lines = append(lines, "Estudiante: "+t.Content)
		case llm.RoleAssistant:
			lines = append(lines, "Tutor: "+t.Content)
		}
	}

	if len(lines) == 0 {
		template = strings.Replace(template, "\n\n"+historyHeader+"\n"+HistoryPlaceholder, "", 1)
		return strings.TrimSpace(strings.Replace(template, HistoryPlaceholder, "", 1))
	}
	transcript := strings.Join(lines, "\n")
	if !strings.Contains(template, HistoryPlaceholder) {
		return template + "\n\n" + historyHeader + "\n" + transcript
	}
	return strings.Replace(template, HistoryPlaceholder, transcript, 1)
}

// OpeningInstruction is the user turn asking the model for a contextual
// first line
func OpeningInstruction(assignment *models.Assignment) string {
	scenario := defaultAct
	if assignment != nil && strings.TrimSpace(assignment.Title) != "" {
		scenario = strings.TrimSpace(assignment.Title)
	}
	return fmt.Sprintf("Start the conversation now. In character and in Spanish, greet the student once and open the scenario %q "+
		"with one or two short sentences ending in a question. Reply with the opening line only.", scenario)
}
