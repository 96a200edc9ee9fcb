package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

var (
	scoreNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)
	highlightRe   = regexp.MustCompile(`\[HIGHLIGHT\](.+?)\[/HIGHLIGHT\](?:[ \t]*=>[ \t]*([^\n]+))?`)
)

/*
ParseValidation reads the line protocol of a validation reply:

	Score: 72
	Status: PASS
	Analysis: one line
	Feedback: first line
	...every following non-blank line belongs to feedback

A reply without a Score line is malformed. Scores are clamped to 0..100.
*/
func ParseValidation(text string) (*ValidationResult, error) {
	out := &ValidationResult{Raw: text, Status: "FAIL"}

	var (
		haveScore       bool
		feedbackStarted bool
		feedbackLines   []string
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !feedbackStarted && hasLabel(trimmed, "Score:"):
			num := scoreNumberRe.FindString(afterLabel(trimmed, "Score:"))
			if num == "" {
				continue
			}
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				continue
			}
			out.Score = clampScore(f)
			haveScore = true
		case !feedbackStarted && hasLabel(trimmed, "Status:"):
			out.Status = strings.ToUpper(strings.TrimSpace(afterLabel(trimmed, "Status:")))
		case !feedbackStarted && hasLabel(trimmed, "Analysis:"):
			out.Analysis = strings.TrimSpace(afterLabel(trimmed, "Analysis:"))
		case !feedbackStarted && hasLabel(trimmed, "Feedback:"):
			feedbackStarted = true
			if first := strings.TrimSpace(afterLabel(trimmed, "Feedback:")); first != "" {
				feedbackLines = append(feedbackLines, first)
			}
		case feedbackStarted && trimmed != "":
			feedbackLines = append(feedbackLines, strings.TrimRight(line, " \t\r"))
		}
	}

	if !haveScore {
		return nil, fmt.Errorf("%w: missing score line", ErrMalformedResponse)
	}
	out.Feedback = strings.Join(feedbackLines, "\n")
	return out, nil
}

func hasLabel(line, label string) bool {
	return len(line) >= len(label) && strings.EqualFold(line[:len(label)], label)
}

func afterLabel(line, label string) string {
	return line[len(label):]
}

func clampScore(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

// ExtractHighlights collects [HIGHLIGHT]x[/HIGHLIGHT] => y pairs.
func ExtractHighlights(text, kind string) []model.Highlight {
	out := []model.Highlight{}
	for _, m := range highlightRe.FindAllStringSubmatch(text, -1) {
		word := strings.TrimSpace(m[1])
		if word == "" {
			continue
		}
		out = append(out, model.Highlight{
			Word:    word,
			Type:    kind,
			Message: strings.TrimSpace(m[2]),
		})
	}
	return out
}
