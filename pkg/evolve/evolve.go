// Package evolve runs a directed evolution search over protein variants.
// Each chain is a Metropolis walk: random single-point mutations are
// proposed and accepted with probability based on the masked-model
// log-likelihood ratio, bounded by a mutation budget against wild type.
package evolve

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mutscan/mutscan/pkg/model"
	"github.com/mutscan/mutscan/pkg/score"
	"github.com/mutscan/mutscan/pkg/seq"
)

const (
	ChainsDefault       = 1
	StepsDefault        = 20
	MaxMutationsDefault = 10
	TemperatureDefault  = 0.95
)

// Options tune the evolution run. Zero values fall back to defaults.
type Options struct {
	Model        string  `json:"model,omitempty"`
	Chains       int     `json:"chains,omitempty"`
	Steps        int     `json:"steps,omitempty"`
	MaxMutations int     `json:"max_mutations,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	// Seed makes the walk reproducible; 0 seeds from the clock.
	Seed int64 `json:"seed,omitempty"`
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.Chains <= 0 {
		out.Chains = ChainsDefault
	}
	if out.Steps <= 0 {
		out.Steps = StepsDefault
	}
	if out.MaxMutations <= 0 {
		out.MaxMutations = MaxMutationsDefault
	}
	if out.Temperature <= 0 {
		out.Temperature = TemperatureDefault
	}
	if out.Seed == 0 {
		out.Seed = time.Now().UnixNano()
	}
	return &out
}

// Variant is one accepted state of a chain, described as a diff against
// the wild type sequence.
type Variant struct {
	Chain     int     `json:"chain"`
	Step      int     `json:"step"`
	Score     float64 `json:"score"`
	Positions []int   `json:"pos"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Sequence  string  `json:"sequence"`
}

// Result holds all accepted variants across chains, best score first.
type Result struct {
	Sequence seq.Sequence `json:"wild_type"`
	Options  *Options     `json:"options"`
	Variants []*Variant   `json:"variants"`
}

// Run evolves s across opts.Chains independent chains and returns every
// accepted variant, sorted by score descending.
func Run(ctx context.Context, m model.Masked, tk model.Tokenizer, s seq.Sequence, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	o := opts.withDefaults()

	perChain := make([][]*Variant, o.Chains)

	g, ctx := errgroup.WithContext(ctx)
	for c := 0; c < o.Chains; c++ {
		g.Go(func() error {
			variants, err := runChain(ctx, m, tk, s, o, c)
			if err != nil {
				return fmt.Errorf("chain %d: %w", c, err)
			}
			perChain[c] = variants
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]*Variant, 0, o.Chains*o.Steps)
	for _, variants := range perChain {
		all = append(all, variants...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	return &Result{Sequence: s, Options: o, Variants: all}, nil
}

func runChain(ctx context.Context, m model.Masked, tk model.Tokenizer, s seq.Sequence, o *Options, chain int) ([]*Variant, error) {
	rng := rand.New(rand.NewSource(o.Seed + int64(chain)))

	current := []byte(s.String())
	tokens, err := tk.Encode(s.String())
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize sequence: %w", err)
	}

	var chainScore float64
	variants := make([]*Variant, 0, o.Steps)

	for step := 1; step <= o.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := rng.Intn(s.Len()) + 1
		proposed := seq.Residue(rng.Intn(seq.AlphabetSize))
		if proposed == current[p-1] {
			continue
		}

		// Accepting a mutation at a so-far-unmutated position must not
		// blow the budget against wild type.
		if current[p-1] == s.At(p) && mutationCount(s, current) >= o.MaxMutations {
			continue
		}

		logProbs, err := score.MaskedLogProbs(ctx, m, tk, tokens, p)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		curID := tokens[p]
		propID, err := tk.TokenID(proposed)
		if err != nil {
			return nil, err
		}

		delta := logProbs[propID] - logProbs[curID]
		if delta < 0 && rng.Float64() >= math.Exp(delta/o.Temperature) {
			continue
		}

		current[p-1] = proposed
		tokens[p] = propID
		chainScore += delta

		variants = append(variants, snapshot(s, current, chain, step, chainScore))
	}

	return variants, nil
}

func mutationCount(wt seq.Sequence, current []byte) int {
	n := 0
	for i := range current {
		if current[i] != wt.At(i+1) {
			n++
		}
	}
	return n
}

// snapshot records the current chain state as a diff against wild type.
func snapshot(wt seq.Sequence, current []byte, chain, step int, chainScore float64) *Variant {
	v := &Variant{
		Chain:    chain,
		Step:     step,
		Score:    chainScore,
		Sequence: string(current),
	}
	for i := range current {
		if current[i] != wt.At(i+1) {
			v.Positions = append(v.Positions, i+1)
			v.Source += string(wt.At(i + 1))
			v.Target += string(current[i])
		}
	}
	return v
}
