package cw

import "strings"

// Decode converts a raw symbol buffer into text.
// Separators are trimmed from both ends only. Words are split on the word
// separator and characters on the character separator, and every group,
// including an empty one left behind by a dropped press, goes through Lookup.
// Unknown or empty groups become Placeholder, so Decode always returns a
// result with at least one rune per group.
func Decode(raw string) string {
	raw = strings.Trim(raw, " ")
	if raw == "" {
		return ""
	}

	fragments := strings.Split(raw, WordSeparator)
	words := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		var b strings.Builder
		for _, group := range strings.Split(fragment, CharSeparator) {
			b.WriteRune(Lookup(group))
		}
		words = append(words, b.String())
	}
	return strings.Join(words, " ")
}

// Transcript accumulates decoded text for the life of the process.
// It is not safe for concurrent use; the classifier owns it.
type Transcript struct {
	text string
}

// Append adds the words of text to the end of the transcript.
func (t *Transcript) Append(text string) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	if t.text == "" {
		t.text = text
		return
	}
	t.text += " " + text
}

// String returns the whole transcript.
func (t *Transcript) String() string {
	return t.text
}
