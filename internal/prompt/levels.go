// Package prompt holds the proficiency level tables and assembles the
// system prompts sent to chat providers.
package prompt

import (
	"math/rand/v2"
	"strings"
)

// DefaultLevel is used when a level is empty or unknown
const DefaultLevel = "intermediate_mid"

// Voices names the voice used for a level by each speech provider
type Voices struct {
	ElevenLabs string `json:"elevenlabs"`
	Narakeet   string `json:"narakeet"`
	OpenAI     string `json:"openai"`
}

// Level is one row of the proficiency table
type Level struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	CEFR        string   `json:"cefr"`
	Guidance    string   `json:"-"`
	Icebreakers []string `json:"-"`
	Voices      Voices   `json:"voices"`
}

const noRepeatGreeting = " NO saludes repetidamente, solo saluda una vez al inicio."

var (
	noviceIcebreakers = []string{
		"¡Hola! ¿Cómo te llamas?",
		"¿De dónde eres?",
		"¿Qué te gusta hacer?",
		"¿Tienes hermanos?",
		"¿Cuál es tu color favorito?",
		"¿Qué comida te gusta?",
		"¿Tienes mascotas?",
		"¿Qué música te gusta?",
		"¿Cuál es tu estación del año favorita?",
		"¿Qué deportes te gustan?",
		"¿Cuántos años tienes?",
		"¿Dónde vives?",
	}

	intermediateIcebreakers = []string{
		"¡Hola! ¿Cómo estás hoy?",
		"¿Qué tal tu día hasta ahora?",
		"¿Qué te gustaría hacer hoy?",
		"¿Has practicado español antes?",
		"¿Qué tiempo hace donde estás?",
		"¿Cuál es tu canción favorita ahora?",
		"¿Has visto alguna película buena recientemente?",
		"¿Qué planes tienes para el fin de semana?",
		"¿Has viajado a algún lugar interesante?",
		"¿Qué libro estás leyendo?",
		"¿Cuál es tu videojuego favorito?",
		"¿Has probado algún restaurante nuevo?",
	}

	advancedIcebreakers = []string{
		"¡Hola! ¿Qué opinas sobre la situación actual en tu país?",
		"¿Has leído algo interesante últimamente?",
		"¿Cuál es tu perspectiva sobre el aprendizaje de idiomas?",
		"¿Qué te motivó a aprender español específicamente?",
		"¿Cómo ha influido la tecnología en tu vida diaria?",
		"¿Qué piensas sobre el impacto de las redes sociales en la sociedad?",
		"¿Cómo has percibido la evolución de la música latina globalmente?",
		"¿Qué perspectiva tienes sobre el futuro del trabajo remoto?",
		"¿Qué rol juega el arte en tiempos de crisis?",
		"¿Cómo ha cambiado tu forma de consumir noticias?",
		"¿Qué piensas sobre la sostenibilidad en la moda?",
		"¿Cómo afectan los algoritmos a tus decisiones diarias?",
	}
)

var levelOrder = []string{
	"novice_low", "novice_mid", "novice_high",
	"intermediate_low", "intermediate_mid", "intermediate_high",
	"advanced_low", "advanced_mid", "advanced_high",
}

var levels = map[string]Level{
	"novice_low": {
		Name: "Novice Low", CEFR: "A1",
		Guidance: "Eres un profesor de español muy paciente para principiantes absolutos. Usa palabras sueltas y frases de dos o tres palabras. " +
			"Usa solo el presente. Repite las palabras clave y ofrece opciones de respuesta. Responde SIEMPRE en español neutro." + noRepeatGreeting,
		Icebreakers: noviceIcebreakers,
		Voices:      Voices{ElevenLabs: "21m00Tcm4TlvDq8ikWAM", Narakeet: "Lucia", OpenAI: "nova"},
	},
	"novice_mid": {
		Name: "Novice Mid", CEFR: "A1",
		Guidance: "Eres un profesor de español amigable para principiantes. Usa vocabulario simple y frases cortas. Habla despacio y repite cosas importantes. " +
			"Usa solo presente tense. Responde SIEMPRE en español neutro. Sé muy paciente y anima al estudiante." + noRepeatGreeting,
		Icebreakers: noviceIcebreakers,
		Voices:      Voices{ElevenLabs: "21m00Tcm4TlvDq8ikWAM", Narakeet: "Lucia", OpenAI: "nova"},
	},
	"novice_high": {
		Name: "Novice High", CEFR: "A2",
		Guidance: "Eres un profesor de español amigable para estudiantes principiantes. Usa frases cortas y completas con vocabulario cotidiano. " +
			"Usa principalmente el presente y alguna expresión con ir a + infinitivo. Responde SIEMPRE en español neutro. Anima al estudiante a responder con frases completas." + noRepeatGreeting,
		Icebreakers: noviceIcebreakers,
		Voices:      Voices{ElevenLabs: "EXAVITQu4vr4xnSDxMaL", Narakeet: "Lucia", OpenAI: "shimmer"},
	},
	"intermediate_low": {
		Name: "Intermediate Low", CEFR: "A2",
		Guidance: "Eres un compañero de conversación paciente para practicar español. Usa vocabulario frecuente y frases sencillas pero naturales. " +
			"Puedes usar el pretérito en frases cortas. Responde SIEMPRE en español neutro. Haz una pregunta a la vez." + noRepeatGreeting,
		Icebreakers: intermediateIcebreakers,
		Voices:      Voices{ElevenLabs: "EXAVITQu4vr4xnSDxMaL", Narakeet: "Mateo", OpenAI: "shimmer"},
	},
	"intermediate_mid": {
		Name: "Intermediate Mid", CEFR: "B1",
		Guidance: "Eres un compañero de conversación amigable para practicar español. Usa vocabulario moderado y frases naturales. Puedes usar pretérito y futuro. " +
			"Responde SIEMPRE en español neutro. Mantén tus respuestas naturales, cortas y conversacionales. Haz preguntas de seguimiento para mantener la conversación fluida. " +
			"Sé paciente y educativo." + noRepeatGreeting,
		Icebreakers: intermediateIcebreakers,
		Voices:      Voices{ElevenLabs: "ErXwobaYiN019PkySvjV", Narakeet: "Mateo", OpenAI: "alloy"},
	},
	"intermediate_high": {
		Name: "Intermediate High", CEFR: "B1",
		Guidance: "Eres un compañero de conversación para practicar español. Usa vocabulario variado, conectores y todos los tiempos del indicativo. " +
			"Pide al estudiante que narre y describa con detalle. Responde SIEMPRE en español neutro." + noRepeatGreeting,
		Icebreakers: intermediateIcebreakers,
		Voices:      Voices{ElevenLabs: "ErXwobaYiN019PkySvjV", Narakeet: "Mateo", OpenAI: "alloy"},
	},
	"advanced_low": {
		Name: "Advanced Low", CEFR: "B2",
		Guidance: "Eres un conversador nativo español. Usa vocabulario rico y estructuras variadas, incluido el subjuntivo en contextos frecuentes. " +
			"Pide opiniones y justificaciones. Responde SIEMPRE en español neutro." + noRepeatGreeting,
		Icebreakers: advancedIcebreakers,
		Voices:      Voices{ElevenLabs: "pNInz6obpgDQGcFmaJgB", Narakeet: "Alvaro", OpenAI: "echo"},
	},
	"advanced_mid": {
		Name: "Advanced Mid", CEFR: "B2",
		Guidance: "Eres un conversador nativo español educado. Usa vocabulario rico, expresiones idiomáticas, y estructuras complejas. " +
			"Puedes discutir temas abstractos y usar subjuntivo. Responde SIEMPRE en español neutro. Mantén la conversación interesante y desafiante. " +
			"Corrige sutilmente errores gramaticales si es apropiado." + noRepeatGreeting,
		Icebreakers: advancedIcebreakers,
		Voices:      Voices{ElevenLabs: "pNInz6obpgDQGcFmaJgB", Narakeet: "Alvaro", OpenAI: "onyx"},
	},
	"advanced_high": {
		Name: "Advanced High", CEFR: "C1",
		Guidance: "Eres un interlocutor nativo culto. Usa registro formal e informal, expresiones idiomáticas y argumentación matizada. " +
			"Debate temas abstractos y corrige con sutileza. Responde SIEMPRE en español neutro." + noRepeatGreeting,
		Icebreakers: advancedIcebreakers,
		Voices:      Voices{ElevenLabs: "TxGEqnHWrfWFTfGW9XjX", Narakeet: "Alvaro", OpenAI: "onyx"},
	},
}

// aliases maps the original three-level keys onto the ACTFL table
var aliases = map[string]string{
	"beginner":     "novice_mid",
	"intermediate": "intermediate_mid",
	"advanced":     "advanced_mid",
}

func init() {
	for key, level := range levels {
		level.Key = key
		levels[key] = level
	}
}

func normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

// Lookup returns the level for key or an alias of it
func Lookup(key string) (Level, bool) {
	level, ok := levels[normalize(key)]
	return level, ok
}

// Resolve returns the level for key, falling back to DefaultLevel
func Resolve(key string) Level {
	if level, ok := Lookup(key); ok {
		return level
	}
	return levels[DefaultLevel]
}

// IsAdvanced reports whether key resolves to the advanced family
func IsAdvanced(key string) bool {
	return strings.HasPrefix(Resolve(key).Key, "advanced")
}

// Levels returns the table in proficiency order
func Levels() []Level {
	out := make([]Level, 0, len(levelOrder))
	for _, key := range levelOrder {
		out = append(out, levels[key])
	}
	return out
}

// RandomIcebreaker picks an opening line for the level
func RandomIcebreaker(key string) string {
	icebreakers := Resolve(key).Icebreakers
	return icebreakers[rand.IntN(len(icebreakers))]
}
