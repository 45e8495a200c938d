package score

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutscan/mutscan/pkg/model/esm"
	"github.com/mutscan/mutscan/pkg/seq"
)

// fakeModel returns deterministic logits derived from the mask index and
// records every call for inspection.
type fakeModel struct {
	mu    sync.Mutex
	calls [][]int
	masks []int
	err   error
}

func (f *fakeModel) Logits(_ context.Context, tokens []int, maskIndex int) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	f.calls = append(f.calls, append([]int(nil), tokens...))
	f.masks = append(f.masks, maskIndex)
	f.mu.Unlock()

	logits := make([]float64, esm.NewTokenizer().VocabSize())
	for v := range logits {
		logits[v] = 3 * math.Sin(float64(v*31+maskIndex*7))
	}
	return logits, nil
}

func mustSeq(t *testing.T, s string) seq.Sequence {
	t.Helper()
	parsed, err := seq.Parse(s)
	require.NoError(t, err)
	return parsed
}

func TestScan_Shape(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tbl, err := Scan(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, 1, 3, nil)
	require.NoError(t, err)

	assert.Len(t, tbl.LLR, 20)
	assert.Equal(t, 3, tbl.Cols())
	for _, row := range tbl.LLR {
		assert.Len(t, row, 3)
	}
	assert.Equal(t, 1, tbl.Position(0))
	assert.Equal(t, byte('M'), tbl.WildType(0))

	mRow, err := seq.Index('M')
	require.NoError(t, err)
	assert.Zero(t, tbl.LLR[mRow][0])
}

func TestScan_WildTypeZero(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tbl, err := Scan(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, 1, 7, nil)
	require.NoError(t, err)

	for j := 0; j < tbl.Cols(); j++ {
		i, err := seq.Index(rune(tbl.WildType(j)))
		require.NoError(t, err)
		assert.Zero(t, tbl.LLR[i][j], "wild type LLR at column %d", j)
	}
}

func TestScan_Deterministic(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tk := esm.NewTokenizer()

	a, err := Scan(context.Background(), &fakeModel{}, tk, s, 2, 5, nil)
	require.NoError(t, err)
	b, err := Scan(context.Background(), &fakeModel{}, tk, s, 2, 5, nil)
	require.NoError(t, err)

	assert.Equal(t, a.LLR, b.LLR)
}

func TestScan_DefaultEnd(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tbl, err := Scan(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Len(), tbl.Cols())
}

func TestScan_SingleColumn(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tbl, err := Scan(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, 4, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Cols())
	assert.Equal(t, byte('L'), tbl.WildType(0))
}

func TestScan_InvalidRange(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tk := esm.NewTokenizer()

	tests := map[string][2]int{
		"start after end":  {5, 2},
		"start below one":  {0, 3},
		"end past length":  {1, 8},
		"both out of rage": {-2, 100},
	}

	for name, r := range tests {
		_, err := Scan(context.Background(), &fakeModel{}, tk, s, r[0], r[1], nil)
		require.Error(t, err, name)
		var re *RangeError
		assert.True(t, errors.As(err, &re), name)
	}
}

func TestScan_NoCrossContamination(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	tk := esm.NewTokenizer()
	fm := &fakeModel{}

	_, err := Scan(context.Background(), fm, tk, s, 1, 7, &Options{Concurrency: 1})
	require.NoError(t, err)

	baseline, err := tk.Encode(s.String())
	require.NoError(t, err)

	require.Len(t, fm.calls, 7)
	for c, tokens := range fm.calls {
		maskIndex := fm.masks[c]
		require.Len(t, tokens, len(baseline))
		for i, tok := range tokens {
			if i == maskIndex {
				assert.Equal(t, tk.MaskID(), tok)
				continue
			}
			assert.Equal(t, baseline[i], tok, "call %d leaked a mask into index %d", c, i)
		}
	}
}

func TestScan_ModelError(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	fm := &fakeModel{err: errors.New("inference backend down")}
	_, err := Scan(context.Background(), fm, esm.NewTokenizer(), s, 1, 3, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference backend down")
}

func TestScan_Cancelled(t *testing.T) {
	s := mustSeq(t, "MAPLRKT")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, &fakeModel{}, esm.NewTokenizer(), s, 1, 7, nil)
	assert.Error(t, err)
}

func TestLogSoftmax_Normalized(t *testing.T) {
	logits := []float64{-2.5, 0, 1.3, 7.1, -0.04, 3.3}
	logProbs := logSoftmax(logits)

	var sum float64
	for _, lp := range logProbs {
		assert.LessOrEqual(t, lp, 0.0)
		sum += math.Exp(lp)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
