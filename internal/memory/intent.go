package memory

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// deletionRegex matches explicit requests to drop remembered facts, in
// English and Spanish, plus the usual ways of saying a pet is gone. Spanish
// verbs only match imperative or infinitive forms: "olvidé" and "borró"
// report the past, they do not ask for anything.
var deletionRegex = regexp.MustCompile(`(?i)\b(?:` +
	`delete|remove|forget|erase|no\s+longer\s+have|passed\s+away|` +
	`b[oó]rr(?:a|á|en|ar)(?:l[oa]s?|me)?|` +
	`elim[ií]n(?:a|á|en|ar)(?:l[oa]s?|me)?|` +
	`olv[ií]d(?:a|á|en|ar)(?:te|l[oa]s?|me)?|olv[ií]date|` +
	`ya\s+no\s+(?:tengo|tenemos)|falleci\p{L}*|muri[óo]` +
	`)(?:\P{L}|$)`)

// forgotRegex matches "se me olvidó" style phrases: the speaker forgot to
// say something, which usually comes right before a new fact.
var forgotRegex = regexp.MustCompile(`(?i)\bse\s+(?:me|te|le|nos|les)\s+(?:hab[ií]a\s+|ha\s+)?olvid\p{L}*`)

// DetectDeletionIntent reports whether text asks to remove information.
func DetectDeletionIntent(text string) bool {
	return deletionRegex.MatchString(forgotRegex.ReplaceAllString(text, " "))
}

// mentions reports whether text names the record as a whole word.
func mentions(text, name string) bool {
	text, name = strings.ToLower(text), strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}

	for start := 0; ; {
		i := strings.Index(text[start:], name)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(name)
		if !wordRuneBefore(text, i) && !wordRuneAfter(text, end) {
			return true
		}
		start = i + 1
	}
}

func wordRuneBefore(s string, i int) bool {
	r, size := utf8.DecodeLastRuneInString(s[:i])
	return size > 0 && isWordRune(r)
}

func wordRuneAfter(s string, i int) bool {
	r, size := utf8.DecodeRuneInString(s[i:])
	return size > 0 && isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
