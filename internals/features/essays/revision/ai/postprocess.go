package ai

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type spellingRule struct {
	re   *regexp.Regexp
	repl string
}

// US -> AU spellings. Only unambiguous families; practice/practise and
// similar noun/verb pairs are left alone.
var auSpellingRules = []spellingRule{
	{regexp.MustCompile(`(?i)\bcolor(s|ed|ing)?\b`), "colour$1"},
	{regexp.MustCompile(`(?i)\bfavorite(s)?\b`), "favourite$1"},
	{regexp.MustCompile(`(?i)\bfavor(s|ed|ing)?\b`), "favour$1"},
	{regexp.MustCompile(`(?i)\borganize(d|s|r|rs)?\b`), "organise$1"},
	{regexp.MustCompile(`(?i)\borganizing\b`), "organising"},
	{regexp.MustCompile(`(?i)\borganization(s)?\b`), "organisation$1"},
	{regexp.MustCompile(`(?i)\brecognize(d|s)?\b`), "recognise$1"},
	{regexp.MustCompile(`(?i)\brecognizing\b`), "recognising"},
	{regexp.MustCompile(`(?i)\banalyze(d|s)?\b`), "analyse$1"},
	{regexp.MustCompile(`(?i)\banalyzing\b`), "analysing"},
	{regexp.MustCompile(`(?i)\banalyzer(s)?\b`), "analyser$1"},
	{regexp.MustCompile(`(?i)\bcenter(s)?\b`), "centre$1"},
	{regexp.MustCompile(`(?i)\bcentered\b`), "centred"},
	{regexp.MustCompile(`(?i)\bcentering\b`), "centring"},
	{regexp.MustCompile(`(?i)\bbehavior(s)?\b`), "behaviour$1"},
	{regexp.MustCompile(`(?i)\bhonor(s|ed|ing)?\b`), "honour$1"},
	{regexp.MustCompile(`(?i)\blabor(s|ed|ing)?\b`), "labour$1"},
	{regexp.MustCompile(`(?i)\bcanceled\b`), "cancelled"},
	{regexp.MustCompile(`(?i)\bcanceling\b`), "cancelling"},
	{regexp.MustCompile(`(?i)\btraveled\b`), "travelled"},
	{regexp.MustCompile(`(?i)\btraveling\b`), "travelling"},
	{regexp.MustCompile(`(?i)\btheater(s)?\b`), "theatre$1"},
	{regexp.MustCompile(`(?i)\bgray\b`), "grey"},
	{regexp.MustCompile(`(?i)\bjewelry\b`), "jewellery"},
	{regexp.MustCompile(`(?i)\bdefense\b`), "defence"},
	{regexp.MustCompile(`(?i)\boffense\b`), "offence"},
}

// EnforceAUEnglish rewrites generated text only, never student text.
// A capitalised source word keeps its leading capital.
func EnforceAUEnglish(text string) string {
	for _, rule := range auSpellingRules {
		text = rule.re.ReplaceAllStringFunc(text, func(match string) string {
			out := rule.re.ReplaceAllString(match, rule.repl)
			return matchLeadingCase(match, out)
		})
	}
	return text
}

func matchLeadingCase(src, dst string) string {
	r, _ := utf8.DecodeRuneInString(src)
	if !unicode.IsUpper(r) {
		return dst
	}
	if strings.ToUpper(src) == src && len(src) > 1 {
		return strings.ToUpper(dst)
	}
	d, size := utf8.DecodeRuneInString(dst)
	return string(unicode.ToUpper(d)) + dst[size:]
}

var (
	salutationRe   = regexp.MustCompile(`(?mi)^[ \t]*(Dear|Hi|Hello|Hey)[ \t]+[^,\n]{1,60},[ \t]*`)
	placeholderRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[(student\s*name|name)\]`),
		regexp.MustCompile(`(?i)\{\s*student(_?name)?\s*\}`),
		regexp.MustCompile(`(?i)<\s*student\s*>`),
	}
)

// EnforceNamePolicy strips named salutations and fills name placeholders
// with the real first name, or "the student" when none is known.
func EnforceNamePolicy(text, studentName string) string {
	out := salutationRe.ReplaceAllString(text, "Hello, ")

	name := strings.TrimSpace(studentName)
	if name == "" {
		name = "the student"
	}
	for _, re := range placeholderRes {
		out = re.ReplaceAllLiteralString(out, name)
	}
	return out
}
