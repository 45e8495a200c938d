package seq

import (
	"fmt"
	"strings"
)

// Alphabet is the fixed 20-letter amino acid alphabet in canonical order.
// Row indexes in LLR tables and heatmaps follow this ordering.
const Alphabet = "ACDEFGHIKLMNPQRSTVWY"

// AlphabetSize is the number of canonical amino acids.
const AlphabetSize = len(Alphabet)

var alphabetIndex = func() map[rune]int {
	m := make(map[rune]int, AlphabetSize)
	for i, r := range Alphabet {
		m[r] = i
	}
	return m
}()

// ErrUnknownResidue indicates a character outside the canonical alphabet.
type ErrUnknownResidue struct {
	Residue  rune
	Position int // 1-indexed, 0 when not positional
}

func (e *ErrUnknownResidue) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("unrecognized residue %q at position %d", e.Residue, e.Position)
	}
	return fmt.Sprintf("unrecognized residue %q", e.Residue)
}

// Sequence is a validated protein sequence over Alphabet.
type Sequence string

// Parse validates s and returns it as a Sequence. Lowercase input is
// accepted and normalized. Whitespace is rejected, not stripped.
func Parse(s string) (Sequence, error) {
	if s == "" {
		return "", fmt.Errorf("sequence is empty")
	}
	s = strings.ToUpper(s)
	for i, r := range s {
		if _, ok := alphabetIndex[r]; !ok {
			return "", &ErrUnknownResidue{Residue: r, Position: i + 1}
		}
	}
	return Sequence(s), nil
}

// Len returns the number of residues.
func (s Sequence) Len() int {
	return len(s)
}

// At returns the residue at 1-indexed position p.
func (s Sequence) At(p int) byte {
	return s[p-1]
}

func (s Sequence) String() string {
	return string(s)
}

// Index returns the row index of residue r in Alphabet.
func Index(r rune) (int, error) {
	i, ok := alphabetIndex[r]
	if !ok {
		return 0, &ErrUnknownResidue{Residue: r}
	}
	return i, nil
}

// Residue returns the amino acid letter for row index i.
func Residue(i int) byte {
	return Alphabet[i]
}
