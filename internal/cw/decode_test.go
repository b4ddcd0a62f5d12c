package cw

import (
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"single word", ".- -... -.-.", "ABC"},
		{"two words", ".-   -...", "A B"},
		{"leading and trailing gaps", "   ... --- ...   ", "SOS"},
		{"unknown group", ".- ...... -...", "A?B"},
		{"unknown only", "........", "?"},
		{"empty", "", ""},
		{"separators only", "      ", ""},
		{"dropped press between char gaps", ".-  -...", "A?B"},
		{"dropped press after word gap", ".-    -...", "A ?B"},
		{"double word gap", ".-      -...", "A ? B"},
		{"digits", ".---- ..--- ...--", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.raw); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecode_OneRunePerGroup(t *testing.T) {
	inputs := []string{".- -... -.-.", ".-  -...", ".-   -...", ".-    -...", "...... -", ".-      -..."}
	for _, in := range inputs {
		trimmed := strings.Trim(in, " ")
		groups := 0
		for _, word := range strings.Split(trimmed, WordSeparator) {
			groups += len(strings.Split(word, CharSeparator))
		}
		got := Decode(in)
		if n := len([]rune(strings.ReplaceAll(got, " ", ""))); n != groups {
			t.Errorf("Decode(%q) = %q has %d characters, want %d", in, got, n, groups)
		}
	}
}

func TestDecode_Idempotent(t *testing.T) {
	inputs := []string{".- -... -.-.", ".-   -...", "x..- --", "   "}
	for _, in := range inputs {
		first := Decode(in)
		for i := 0; i < 3; i++ {
			if again := Decode(in); again != first {
				t.Errorf("Decode(%q) = %q then %q", in, first, again)
			}
		}
	}
}

func TestDecode_UnknownGroupOnlyAffectsItsPosition(t *testing.T) {
	known := []string{".-", "-...", "-.-.", "-.."}
	for pos := range known {
		groups := append([]string(nil), known...)
		groups[pos] = "......"
		got := []rune(Decode(strings.Join(groups, CharSeparator)))
		want := []rune("ABCD")
		want[pos] = Placeholder
		if string(got) != string(want) {
			t.Errorf("unknown at %d: Decode = %q, want %q", pos, string(got), string(want))
		}
	}
}

func TestDecode_LengthAtLeastGroupCount(t *testing.T) {
	raw := ".- .-.-.-.- -   ...... .."
	groups := len(strings.Fields(raw))
	got := strings.ReplaceAll(Decode(raw), " ", "")
	if len([]rune(got)) < groups {
		t.Errorf("Decode(%q) produced %d chars for %d groups", raw, len(got), groups)
	}
}

func TestTranscript_Append(t *testing.T) {
	var tr Transcript
	tr.Append("")
	if tr.String() != "" {
		t.Errorf("String() = %q after empty append", tr.String())
	}

	tr.Append("CQ CQ")
	tr.Append("  DE   K1ABC ")
	if got, want := tr.String(), "CQ CQ DE K1ABC"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
