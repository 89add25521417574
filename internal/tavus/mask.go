package tavus

import "strings"

// Mask hides all but the first and last two characters of s.
// Values of six characters or fewer are fully hidden.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= 6 {
		return "***"
	}
	return string(r[:2]) + "***" + string(r[len(r)-2:])
}

// maskAll replaces every occurrence of each secret in text with its masked form.
func maskAll(text string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		text = strings.ReplaceAll(text, s, Mask(s))
	}
	return text
}
