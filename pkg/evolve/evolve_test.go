package evolve

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutscan/mutscan/pkg/model/esm"
	"github.com/mutscan/mutscan/pkg/seq"
)

type fakeModel struct{}

func (f *fakeModel) Logits(_ context.Context, tokens []int, maskIndex int) ([]float64, error) {
	logits := make([]float64, esm.NewTokenizer().VocabSize())
	for v := range logits {
		logits[v] = 2 * math.Sin(float64(v*13+maskIndex*5))
	}
	return logits, nil
}

func testSeq(t *testing.T) seq.Sequence {
	t.Helper()
	s, err := seq.Parse("MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQ")
	require.NoError(t, err)
	return s
}

func TestRun_Reproducible(t *testing.T) {
	s := testSeq(t)
	opts := &Options{Seed: 42, Steps: 50, Chains: 2}

	a, err := Run(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, opts)
	require.NoError(t, err)
	b, err := Run(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, opts)
	require.NoError(t, err)

	require.Equal(t, len(a.Variants), len(b.Variants))
	for i := range a.Variants {
		assert.Equal(t, a.Variants[i], b.Variants[i])
	}
}

func TestRun_SortedByScore(t *testing.T) {
	s := testSeq(t)
	res, err := Run(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, &Options{Seed: 7, Steps: 60})
	require.NoError(t, err)
	require.NotEmpty(t, res.Variants)

	for i := 1; i < len(res.Variants); i++ {
		assert.GreaterOrEqual(t, res.Variants[i-1].Score, res.Variants[i].Score)
	}
}

func TestRun_MutationBudget(t *testing.T) {
	s := testSeq(t)
	res, err := Run(context.Background(), &fakeModel{}, esm.NewTokenizer(), s,
		&Options{Seed: 11, Steps: 200, MaxMutations: 3})
	require.NoError(t, err)

	for _, v := range res.Variants {
		assert.LessOrEqual(t, len(v.Positions), 3)
	}
}

func TestRun_VariantDiffConsistent(t *testing.T) {
	s := testSeq(t)
	res, err := Run(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, &Options{Seed: 3, Steps: 80})
	require.NoError(t, err)
	require.NotEmpty(t, res.Variants)

	for _, v := range res.Variants {
		require.Len(t, v.Source, len(v.Positions))
		require.Len(t, v.Target, len(v.Positions))
		require.Len(t, v.Sequence, s.Len())

		diff := 0
		for i := 0; i < s.Len(); i++ {
			if v.Sequence[i] != s.At(i+1) {
				diff++
			}
		}
		assert.Equal(t, len(v.Positions), diff)

		for k, p := range v.Positions {
			assert.Equal(t, s.At(p), v.Source[k])
			assert.Equal(t, v.Sequence[p-1], v.Target[k])
			assert.NotEqual(t, v.Source[k], v.Target[k])
		}
	}
}

func TestRun_Defaults(t *testing.T) {
	s := testSeq(t)
	res, err := Run(context.Background(), &fakeModel{}, esm.NewTokenizer(), s, nil)
	require.NoError(t, err)

	assert.Equal(t, ChainsDefault, res.Options.Chains)
	assert.Equal(t, StepsDefault, res.Options.Steps)
	assert.Equal(t, MaxMutationsDefault, res.Options.MaxMutations)
	assert.Equal(t, TemperatureDefault, res.Options.Temperature)
	assert.NotZero(t, res.Options.Seed)
}

func TestRun_Cancelled(t *testing.T) {
	s := testSeq(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, &fakeModel{}, esm.NewTokenizer(), s, &Options{Seed: 1})
	assert.Error(t, err)
}
