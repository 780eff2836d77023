package chat

import "strings"

// ParseVerdict reads the leading CORRECT or INCORRECT marker of an
// evaluation reply. Markdown emphasis and punctuation around the marker
// are ignored. Without a marker the verdict is VerdictUnknown and the
// whole reply is the feedback.
func ParseVerdict(text string) (Verdict, string) {
	trimmed := strings.TrimLeft(strings.TrimSpace(text), "*_#> ")
	upper := strings.ToUpper(trimmed)

	var v Verdict
	var rest string
	switch {
	case strings.HasPrefix(upper, "INCORRECT"):
		v, rest = VerdictIncorrect, trimmed[len("INCORRECT"):]
	case strings.HasPrefix(upper, "CORRECT"):
		v, rest = VerdictCorrect, trimmed[len("CORRECT"):]
	default:
		return VerdictUnknown, strings.TrimSpace(text)
	}

	// "CORRECTLY" is prose, not a marker.
	if rest != "" && isLetter(rest[0]) {
		return VerdictUnknown, strings.TrimSpace(text)
	}
	return v, strings.TrimSpace(strings.TrimLeft(rest, "*_!.:;,- \n"))
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
