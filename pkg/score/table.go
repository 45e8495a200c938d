package score

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mutscan/mutscan/pkg/seq"
)

// Table holds log-likelihood ratios for every single-point substitution
// over a position range. Rows follow seq.Alphabet ordering; column j
// corresponds to sequence position Start+j (1-indexed, inclusive).
type Table struct {
	Sequence seq.Sequence `json:"sequence"`
	Model    string       `json:"model,omitempty"`
	Start    int          `json:"start"`
	End      int          `json:"end"`
	// LLR is indexed [amino acid row][position column].
	LLR [][]float64 `json:"llr"`
}

// NewTable allocates a zeroed table for [start,end]. Callers that
// rebuild persisted scans fill LLR directly.
func NewTable(s seq.Sequence, model string, start, end int) *Table {
	cols := end - start + 1
	llr := make([][]float64, seq.AlphabetSize)
	for i := range llr {
		llr[i] = make([]float64, cols)
	}
	return &Table{
		Sequence: s,
		Model:    model,
		Start:    start,
		End:      end,
		LLR:      llr,
	}
}

// Cols returns the number of position columns.
func (t *Table) Cols() int {
	return t.End - t.Start + 1
}

// Position returns the 1-indexed sequence position of column j.
func (t *Table) Position(j int) int {
	return t.Start + j
}

// WildType returns the original residue at column j.
func (t *Table) WildType(j int) byte {
	return t.Sequence.At(t.Start + j)
}

// PositionLabels returns one label per column, residue letter plus
// position, e.g. "M1" — the heatmap x-axis.
func (t *Table) PositionLabels() []string {
	labels := make([]string, t.Cols())
	for j := range labels {
		labels[j] = fmt.Sprintf("%c%d", t.WildType(j), t.Position(j))
	}
	return labels
}

// WriteCSV writes the table with one row per position: position, wild
// type residue, then one LLR column per amino acid in alphabet order.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, seq.AlphabetSize+2)
	header = append(header, "position", "wt")
	for i := 0; i < seq.AlphabetSize; i++ {
		header = append(header, string(seq.Residue(i)))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for j := 0; j < t.Cols(); j++ {
		row := make([]string, 0, seq.AlphabetSize+2)
		row = append(row, strconv.Itoa(t.Position(j)), string(t.WildType(j)))
		for i := 0; i < seq.AlphabetSize; i++ {
			row = append(row, strconv.FormatFloat(t.LLR[i][j], 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for position %d: %w", t.Position(j), err)
		}
	}

	cw.Flush()
	return cw.Error()
}
