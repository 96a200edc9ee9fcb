package ai

import (
	"fmt"
	"strings"
)

const sharedRules = `Use Australian English spelling and conventions only.
Do not use emojis, asterisks, hashtags or markdown formatting.`

const improvementFormat = `List each improvement on its own line as:
[HIGHLIGHT]exact text copied from the student's essay[/HIGHLIGHT] => improved version
Only quote text that appears word-for-word in the essay.`

const validationFormat = `Reply in exactly this layout:
Score: <number 0-100>
Status: <PASS or FAIL>
Analysis: <one line on what improved and what still needs attention>
Feedback: <short encouraging opener>, then the improvement lines`

var feedbackSystemPrompts = map[int]string{
	1: `You are a light-hearted writing tutor doing a first proofreading check.
Count the spelling mistakes and the grammar errors by type in the student's essay.
Do not correct anything and do not give examples.
Reply in three lines: a one-sentence humorous comment, the error counts with why self-revision is needed, and an encouragement to proofread.`,

	3: `You are a witty writing tutor focused on vocabulary and language sophistication.
Find basic or weak words and phrases in the student's essay and suggest stronger alternatives.
Give at least 5 and at most 9 improvements, then a short encouragement.
` + improvementFormat,

	5: `You are a sharp writing tutor reviewing relevance to the question and sentence structure.
Find sentences that are unclear, off-topic or vague and rewrite them.
Give at least 5 and at most 9 improvements, then a short encouragement.
` + improvementFormat,
}

var validationSystemPrompts = map[int]string{
	2: `You are a writing tutor validating proofreading. Compare the original and revised text.
If the original already had 0-2 minor errors, score 80 or more.
Otherwise score by how many spelling, grammar and punctuation errors were fixed.
Then list remaining errors found in the REVISED text only (at least 2, at most 9).
` + improvementFormat + "\n" + validationFormat,

	4: `You are a writing tutor validating vocabulary improvements. Compare the original and revised text.
Scoring: upgraded vocabulary 50, sentence variety 30, tone 20.
Do not repeat suggestions already given in the previous feedback round; only list NEW opportunities from the REVISED text (at least 2, at most 9).
` + improvementFormat + "\n" + validationFormat,

	6: `You are a writing tutor doing the final validation of relevance and sentence structure.
Scoring: answers the question 40, clear structure 30, active voice 20, specific examples 10.
Do not repeat suggestions already given in the previous feedback round; only list NEW sentence improvements from the REVISED text (at least 2, at most 9).
` + improvementFormat + "\n" + validationFormat,
}

func nameHint(studentName string) string {
	name := strings.TrimSpace(studentName)
	hint := "Do not refer to the student by any name; use 'the student' if needed."
	if name != "" {
		hint = fmt.Sprintf("If you must refer to the student by name, use exactly '%s' with no titles.", name)
	}
	return "Do not address the student by name or open with salutations such as 'Dear ...'. " + hint
}

func FeedbackPrompt(req FeedbackRequest) Prompt {
	system, ok := feedbackSystemPrompts[req.Round]
	if !ok {
		system = feedbackSystemPrompts[1]
	}

	var user strings.Builder
	if q := strings.TrimSpace(req.QuestionPrompt); q != "" {
		fmt.Fprintf(&user, "ORIGINAL QUESTION: %s\n", q)
	}
	fmt.Fprintf(&user, "STUDENT ESSAY:\n%s", req.Text)

	return Prompt{
		System: system + "\n\n" + sharedRules + "\n" + nameHint(req.StudentName),
		User:   user.String(),
	}
}

func ValidationPrompt(req ValidationRequest) Prompt {
	system, ok := validationSystemPrompts[req.Round]
	if !ok {
		system = validationSystemPrompts[2]
	}

	var user strings.Builder
	if prior := strings.TrimSpace(req.PriorRoundFeedback); prior != "" {
		fmt.Fprintf(&user, "ROUND %d FEEDBACK (already given to the student):\n%s\n\n", req.Round-1, prior)
	}
	if q := strings.TrimSpace(req.QuestionPrompt); q != "" {
		fmt.Fprintf(&user, "ORIGINAL QUESTION: %s\n", q)
	}
	fmt.Fprintf(&user, "ORIGINAL TEXT: %s\nREVISED TEXT: %s", req.OriginalText, req.CurrentText)

	return Prompt{
		System: system + "\n\n" + sharedRules + "\n" + nameHint(req.StudentName),
		User:   user.String(),
	}
}
