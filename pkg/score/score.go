// Package score computes masked-language-model mutation effect scores.
// For every position in a range and every canonical amino acid it derives
// the log-likelihood ratio between the substitution and the wild type
// residue under the model's predicted distribution at that position.
package score

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/mutscan/mutscan/pkg/model"
	"github.com/mutscan/mutscan/pkg/seq"
)

// ConcurrencyDefault bounds the number of in-flight forward passes.
const ConcurrencyDefault = 4

// RangeError indicates an invalid position range for a sequence.
type RangeError struct {
	Start, End, Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range [%d,%d] for sequence of length %d", e.Start, e.End, e.Len)
}

// Options tune a scan. The zero value is usable.
type Options struct {
	// Model is recorded on the resulting table, not interpreted here.
	Model string
	// Concurrency bounds parallel forward passes; <= 0 means default.
	Concurrency int
}

// Scan scores every single-point substitution for positions [start,end]
// of s (1-indexed, inclusive). An end of 0 defaults to the full sequence
// length. The sequence is tokenized once; each position is scored from
// its own masked copy, so positions are independent and run concurrently.
func Scan(ctx context.Context, m model.Masked, tk model.Tokenizer, s seq.Sequence, start, end int, opts *Options) (*Table, error) {
	if opts == nil {
		opts = &Options{}
	}
	if end == 0 {
		end = s.Len()
	}
	if start < 1 || end > s.Len() || start > end {
		return nil, &RangeError{Start: start, End: end, Len: s.Len()}
	}

	tokens, err := tk.Encode(s.String())
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize sequence: %w", err)
	}

	// Row index -> vocabulary id, resolved once up front so a vocabulary
	// miss fails the whole scan before any inference runs.
	vocabIDs := make([]int, seq.AlphabetSize)
	for i := 0; i < seq.AlphabetSize; i++ {
		id, err := tk.TokenID(seq.Residue(i))
		if err != nil {
			return nil, err
		}
		vocabIDs[i] = id
	}

	table := NewTable(s, opts.Model, start, end)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = ConcurrencyDefault
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for p := start; p <= end; p++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			logProbs, err := MaskedLogProbs(ctx, m, tk, tokens, p)
			if err != nil {
				return fmt.Errorf("position %d: %w", p, err)
			}

			wtID := tokens[p]
			logProbWT := logProbs[wtID]

			// Each goroutine writes only its own column.
			col := p - start
			for i, id := range vocabIDs {
				table.LLR[i][col] = logProbs[id] - logProbWT
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

// MaskedLogProbs masks position p (1-indexed over the sequence, index p
// in the framed token slice), runs one forward pass, and returns the
// log-softmax of the logits at the masked index. The shared token slice
// is never mutated.
func MaskedLogProbs(ctx context.Context, m model.Masked, tk model.Tokenizer, tokens []int, p int) ([]float64, error) {
	masked := make([]int, len(tokens))
	copy(masked, tokens)
	masked[p] = tk.MaskID()

	logits, err := m.Logits(ctx, masked, p)
	if err != nil {
		return nil, err
	}
	if len(logits) < tk.VocabSize() {
		return nil, fmt.Errorf("model returned %d logits, want at least %d", len(logits), tk.VocabSize())
	}
	return logSoftmax(logits), nil
}

// logSoftmax converts raw logits to log-probabilities, shifting by the
// max for numerical stability.
func logSoftmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}

	var sum float64
	for _, l := range logits {
		sum += math.Exp(l - maxLogit)
	}
	logSum := math.Log(sum)

	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = l - maxLogit - logSum
	}
	return out
}
