package mood

import "strings"

// Mood 表示面板回复附带的情绪标签，决定展示哪一张 ASCII 表情。
type Mood string

const (
	Thinking  Mood = "thinking"
	Amused    Mood = "amused"
	Concerned Mood = "concerned"
	Shocked   Mood = "shocked"
	Neutral   Mood = "neutral"
)

// All lists the moods a persona may report, in prompt order.
var All = []Mood{Thinking, Amused, Concerned, Shocked, Neutral}

// Parse 将模型返回的情绪字符串映射为合法标签。
func Parse(raw string) (Mood, bool) {
	switch Mood(strings.ToLower(strings.TrimSpace(raw))) {
	case Thinking:
		return Thinking, true
	case Amused:
		return Amused, true
	case Concerned:
		return Concerned, true
	case Shocked:
		return Shocked, true
	case Neutral:
		return Neutral, true
	default:
		return "", false
	}
}

// Coerce returns the parsed mood, or Neutral when raw is empty or unknown.
func Coerce(raw string) Mood {
	if m, ok := Parse(raw); ok {
		return m
	}
	return Neutral
}

// Choices renders the enumeration as "thinking | amused | ..." for prompts.
func Choices() string {
	names := make([]string, len(All))
	for i, m := range All {
		names[i] = string(m)
	}
	return strings.Join(names, " | ")
}

var defaultFaces = map[Mood]string{
	Thinking:  "    .---.\n   / o o \\\n   |  ~  |\n   \\ === /\n    '---'\n  *thinking*",
	Amused:    "    .---.\n   / ^ ^ \\\n   |  v  |\n   \\ === /\n    '---'\n  *hehe*",
	Concerned: "    .---.\n   / o o \\\n   |  n  |\n   \\ === /\n    '---'\n  *hmm...*",
	Shocked:   "    .---.\n   / O O \\\n   |  O  |\n   \\ === /\n    '---'\n  *gasp!*",
	Neutral:   "    .---.\n   / - - \\\n   |  _  |\n   \\ === /\n    '---'\n  *listening*",
}

// Asset picks the presentation asset for m. Lookup order: the persona's own
// asset for m, the persona's neutral asset, the built-in face for m, the
// built-in neutral face.
func Asset(assets map[string]string, m Mood) string {
	if art := assets[string(m)]; art != "" {
		return art
	}
	if art := assets[string(Neutral)]; art != "" {
		return art
	}
	if art, ok := defaultFaces[m]; ok {
		return art
	}
	return defaultFaces[Neutral]
}
