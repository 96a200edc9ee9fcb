package service

import (
	"math"
	"regexp"
	"sort"
	"strings"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

/* =========================================================
   PROGRESS EVALUATOR (heuristic, analytics only)
   rounds 1-2 : mechanics  (grammar, spelling, punctuation)
   rounds 3-4 : style      (vocabulary, sentence variety)
   rounds 5-6 : structure  (structure, content depth)
========================================================= */

type requirement struct {
	Type        string
	Description string
	Target      int
	Weight      float64
	Keywords    []string
	// counts changes between the before and after text
	Delta func(before, after string) int
}

var requirementSets = map[int][]requirement{
	1: {
		{Type: "grammar_fixes", Description: "Fix grammar errors", Target: 5, Weight: 0.4,
			Keywords: []string{"grammar", "grammatical", "tense", "subject-verb", "agreement"},
			Delta:    wordCountDelta},
		{Type: "spelling_fixes", Description: "Correct spelling mistakes", Target: 3, Weight: 0.3,
			Keywords: []string{"spelling", "misspelled", "spell", "typo"},
			Delta:    spellingCorrections},
		{Type: "punctuation_fixes", Description: "Improve punctuation", Target: 2, Weight: 0.3,
			Keywords: []string{"punctuation", "comma", "period", "semicolon", "colon"},
			Delta:    punctuationDelta},
	},
	2: {
		{Type: "vocabulary_improvements", Description: "Enhance vocabulary choices", Target: 4, Weight: 0.5,
			Keywords: []string{"vocabulary", "word choice", "synonym", "precise", "specific", "advanced"},
			Delta:    vocabularyUpgrades},
		{Type: "sentence_variety", Description: "Improve sentence structure variety", Target: 3, Weight: 0.5,
			Keywords: []string{"sentence", "variety", "structure", "complex", "compound", "flow"},
			Delta:    sentenceVariety},
	},
	3: {
		{Type: "structure_improvements", Description: "Strengthen essay structure", Target: 2, Weight: 0.6,
			Keywords: []string{"structure", "organization", "paragraph", "transition", "thesis", "conclusion"},
			Delta:    structuralChanges},
		{Type: "content_depth", Description: "Deepen content analysis", Target: 1, Weight: 0.4,
			Keywords: []string{"analysis", "evidence", "support", "detail", "example", "depth", "argument"},
			Delta:    evidenceAdded},
	},
}

// Evaluation is the outcome of one heuristic pass.
type Evaluation struct {
	Round           int
	Score           float64
	Requirements    []model.RequirementResult
	MatchedKeywords []string
}

// levelOfRound maps rounds onto the three requirement sets.
func levelOfRound(round int) int {
	return (round + 1) / 2
}

// ScoreImprovement scores how far the revision moved toward the round's
// requirements. Keyword mentions in the round's feedback and measured text
// changes both count; the larger wins per requirement.
func ScoreImprovement(round int, feedback, before, after string) Evaluation {
	ev := Evaluation{Round: round, Requirements: []model.RequirementResult{}, MatchedKeywords: []string{}}
	reqs, ok := requirementSets[levelOfRound(round)]
	if !ok {
		return ev
	}

	lowerFeedback := strings.ToLower(feedback)
	matched := map[string]struct{}{}
	changed := strings.TrimSpace(after) != "" && after != before

	var total float64
	for _, r := range reqs {
		count := 0
		for _, kw := range r.Keywords {
			n := strings.Count(lowerFeedback, kw)
			if n > 0 {
				matched[kw] = struct{}{}
				count += n
			}
		}
		if changed {
			if d := r.Delta(before, after); d > count {
				count = d
			}
		}

		ratio := 0.0
		if r.Target > 0 {
			ratio = math.Min(1, float64(count)/float64(r.Target))
		}
		total += r.Weight * ratio

		ev.Requirements = append(ev.Requirements, model.RequirementResult{
			Type:        r.Type,
			Description: r.Description,
			Count:       count,
			Target:      r.Target,
			Weight:      r.Weight,
			Completed:   count >= r.Target,
		})
	}

	for kw := range matched {
		ev.MatchedKeywords = append(ev.MatchedKeywords, kw)
	}
	sort.Strings(ev.MatchedKeywords)

	ev.Score = math.Round(math.Min(100, total*100)*100) / 100
	return ev
}

/* ---------- text deltas ---------- */

var (
	punctRe     = regexp.MustCompile(`[.,;:!?]`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
)

var transitions = []string{"however", "furthermore", "moreover", "therefore", "consequently", "in addition"}

var evidenceWords = []string{"evidence", "example", "data", "research", "study", "shows", "demonstrates"}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func wordCountDelta(before, after string) int {
	return abs(len(strings.Fields(after)) - len(strings.Fields(before)))
}

// same-position words that changed by at most two characters
func spellingCorrections(before, after string) int {
	b := strings.Fields(strings.ToLower(before))
	a := strings.Fields(strings.ToLower(after))
	n := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] && abs(len(a[i])-len(b[i])) <= 2 {
			n++
		}
	}
	return n
}

func punctuationDelta(before, after string) int {
	return abs(len(punctRe.FindAllStringIndex(after, -1)) - len(punctRe.FindAllStringIndex(before, -1)))
}

// same-position words replaced by longer ones
func vocabularyUpgrades(before, after string) int {
	b := strings.Fields(strings.ToLower(before))
	a := strings.Fields(strings.ToLower(after))
	n := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] && len(a[i]) > len(b[i]) {
			n++
		}
	}
	return n
}

func sentenceVariety(before, after string) int {
	bs := sentenceRe.Split(before, -1)
	as := sentenceRe.Split(after, -1)
	countDiff := abs(len(as) - len(bs))

	avg := func(parts []string) float64 {
		total := 0
		for _, p := range parts {
			total += len(p)
		}
		return float64(total) / float64(len(parts))
	}
	lengthDiff := int(math.Abs(avg(as)-avg(bs)) / 10)
	if lengthDiff > countDiff {
		return lengthDiff
	}
	return countDiff
}

func structuralChanges(before, after string) int {
	n := abs(len(paragraphRe.Split(after, -1)) - len(paragraphRe.Split(before, -1)))
	n += addedOccurrences(before, after, transitions)
	return n
}

func evidenceAdded(before, after string) int {
	return addedOccurrences(before, after, evidenceWords)
}

func addedOccurrences(before, after string, words []string) int {
	lb, la := strings.ToLower(before), strings.ToLower(after)
	n := 0
	for _, w := range words {
		if d := strings.Count(la, w) - strings.Count(lb, w); d > 0 {
			n += d
		}
	}
	return n
}
