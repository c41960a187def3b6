package panel

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/zhouzirui/z-panel/backend/internal/analysis/mood"
)

var errNoJSONObject = errors.New("missing json object")

// extractObject decodes the span between the first '{' and the last '}' of raw
// and returns that span.
func extractObject(raw string, v any) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", errNoJSONObject
	}
	span := raw[start : end+1]
	return span, json.Unmarshal([]byte(span), v)
}

type personaReply struct {
	Response *string `json:"response"`
	Mood     string  `json:"mood"`
}

// ParseReply pulls the response text and mood out of a persona's raw output.
// Undecodable output is used verbatim with a neutral mood; an object without
// a response field is used as the text itself.
func ParseReply(raw string) (string, mood.Mood) {
	raw = strings.TrimSpace(raw)

	var reply personaReply
	span, err := extractObject(raw, &reply)
	if err != nil {
		return raw, mood.Neutral
	}

	text := span
	if reply.Response != nil {
		text = strings.TrimSpace(*reply.Response)
	}
	return text, mood.Coerce(reply.Mood)
}

type summaryReply struct {
	Summary     *string  `json:"summary"`
	KeyInsights []string `json:"key_insights"`
}

// parseSummary returns the summary text and its insights. ok is false when
// raw carried no decodable object.
func parseSummary(raw string) (summary string, insights []string, ok bool) {
	raw = strings.TrimSpace(raw)

	var reply summaryReply
	if _, err := extractObject(raw, &reply); err != nil {
		return raw, nil, false
	}

	summary = raw
	if reply.Summary != nil {
		summary = strings.TrimSpace(*reply.Summary)
	}
	for _, insight := range reply.KeyInsights {
		if insight = strings.TrimSpace(insight); insight != "" {
			insights = append(insights, insight)
		}
	}
	return summary, insights, true
}

// renderInsights appends a numbered "Key Insights" section to summary.
func renderInsights(summary string, insights []string) string {
	if len(insights) == 0 {
		return summary
	}
	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nKey Insights:\n")
	for i, insight := range insights {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(insight)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	insightsHeader = regexp.MustCompile(`(?i)\bkey insights\b`)
	numberedLine   = regexp.MustCompile(`^\s*\d+\.\s+(.*?)\s*$`)
)

// ParseKeyInsights recovers the numbered lines that follow a "Key Insights"
// header in free text.
func ParseKeyInsights(text string) []string {
	var insights []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		if insightsHeader.MatchString(line) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if m := numberedLine.FindStringSubmatch(line); m != nil && m[1] != "" {
			insights = append(insights, m[1])
		}
	}
	return insights
}

var codeFence = regexp.MustCompile("(?s)```.*?```")

func stripCodeFences(text string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
}
