// Package cw turns key timings into Morse symbols and Morse symbols into text.
package cw

import (
	"strings"
	"unicode"
)

// Placeholder is substituted for any symbol group the table does not know.
const Placeholder = '?'

// Separators as they appear in the raw symbol buffer.
const (
	CharSeparator = " "
	WordSeparator = "   "
)

// codes is the fixed Morse table. It never changes after init.
var codes = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '/': "-..-.", '=': "-...-", '+': ".-.-.",
	'-': "-....-", '@': ".--.-.",
}

// morseTree is the binary-tree form of codes used for lookup.
// Index 1 is the root, a dot moves to 2i and a dash to 2i+1, so every group of
// up to six elements has a unique slot. Zero means no character.
var morseTree [128]rune

func init() {
	for r, code := range codes {
		morseTree[treeIndex(code)] = r
	}
}

// treeIndex returns the tree slot for group, or 0 when group is not a valid
// sequence of at most six elements.
func treeIndex(group string) int {
	idx := 1
	for _, el := range group {
		switch el {
		case '.':
			idx *= 2
		case '-':
			idx = idx*2 + 1
		default:
			return 0
		}
		if idx >= len(morseTree) {
			return 0
		}
	}
	return idx
}

// Lookup maps one symbol group to its character, or Placeholder on a miss.
func Lookup(group string) rune {
	idx := treeIndex(group)
	if idx <= 1 || morseTree[idx] == 0 {
		return Placeholder
	}
	return morseTree[idx]
}

// Code returns the symbol group for r. Letters are case-insensitive.
func Code(r rune) (string, bool) {
	code, ok := codes[unicode.ToUpper(r)]
	return code, ok
}

// Table returns a copy of the character to symbol-group mapping.
func Table() map[rune]string {
	out := make(map[rune]string, len(codes))
	for r, code := range codes {
		out[r] = code
	}
	return out
}

// Encode renders text in raw buffer syntax: groups separated by one space,
// words by three. Characters without a code are skipped.
func Encode(text string) string {
	var words []string
	for _, word := range strings.Fields(text) {
		var groups []string
		for _, r := range word {
			if code, ok := Code(r); ok {
				groups = append(groups, code)
			}
		}
		if len(groups) > 0 {
			words = append(words, strings.Join(groups, CharSeparator))
		}
	}
	return strings.Join(words, WordSeparator)
}
