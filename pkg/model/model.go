// Package model defines the contracts between the scoring code and a
// masked protein language model. Implementations may run locally or call
// a remote inference service; callers construct one handle per invocation
// and pass it down explicitly.
package model

import "context"

// Tokenizer maps protein sequences to model token ids and back.
type Tokenizer interface {
	// Encode tokenizes a sequence, framing it with the start/end
	// sentinel tokens. Residue position p (1-indexed) lands at slice
	// index p, after the start sentinel.
	Encode(sequence string) ([]int, error)
	// TokenID returns the vocabulary id for a single residue letter.
	TokenID(residue byte) (int, error)
	// MaskID returns the id of the mask token.
	MaskID() int
	// VocabSize returns the size of the model vocabulary.
	VocabSize() int
}

// Masked is a masked language model over the tokenizer's vocabulary.
type Masked interface {
	// Logits runs one forward pass over tokens, which must contain the
	// mask token at maskIndex, and returns the raw (unnormalized) logits
	// over the vocabulary at that index only.
	Logits(ctx context.Context, tokens []int, maskIndex int) ([]float64, error)
}
