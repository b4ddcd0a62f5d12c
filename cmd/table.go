package cmd

import (
	"fmt"
	"io"
	"sort"
	"unicode"

	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/spf13/cobra"
)

func newTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the Morse table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printTable(cmd.OutOrStdout())
			return nil
		},
	}
}

// printTable lists letters, then digits, then punctuation.
func printTable(w io.Writer) {
	table := cw.Table()
	chars := make([]rune, 0, len(table))
	for r := range table {
		chars = append(chars, r)
	}
	class := func(r rune) int {
		switch {
		case unicode.IsLetter(r):
			return 0
		case unicode.IsDigit(r):
			return 1
		default:
			return 2
		}
	}
	sort.Slice(chars, func(i, j int) bool {
		ci, cj := class(chars[i]), class(chars[j])
		if ci != cj {
			return ci < cj
		}
		return chars[i] < chars[j]
	})
	for _, r := range chars {
		fmt.Fprintf(w, "%c  %s\n", r, table[r])
	}
}
