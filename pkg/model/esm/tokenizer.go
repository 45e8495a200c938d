package esm

import (
	"fmt"
)

// ESM-2 vocabulary, in checkpoint order. Token ids are positions in this
// slice; ids 0-2 are the framing sentinels, 32 is the mask.
var vocab = []string{
	"<cls>", "<pad>", "<eos>", "<unk>",
	"L", "A", "G", "V", "S", "E", "R", "T", "I", "D", "P", "K",
	"Q", "N", "F", "Y", "M", "H", "W", "C",
	"X", "B", "U", "Z", "O", ".", "-",
	"<null_1>", "<mask>",
}

const (
	clsTokenID  = 0
	eosTokenID  = 2
	maskTokenID = 32
)

// Tokenizer is the ESM-2 tokenizer. The vocabulary is fixed across all
// ESM-2 checkpoints, so no remote lookup is needed.
type Tokenizer struct {
	ids map[byte]int
}

func NewTokenizer() *Tokenizer {
	ids := make(map[byte]int, len(vocab))
	for i, tok := range vocab {
		if len(tok) == 1 {
			ids[tok[0]] = i
		}
	}
	return &Tokenizer{ids: ids}
}

// Encode tokenizes sequence as <cls> residues... <eos>. Residue position
// p (1-indexed) maps to index p in the returned slice.
func (t *Tokenizer) Encode(sequence string) ([]int, error) {
	tokens := make([]int, 0, len(sequence)+2)
	tokens = append(tokens, clsTokenID)
	for i := 0; i < len(sequence); i++ {
		id, ok := t.ids[sequence[i]]
		if !ok {
			return nil, fmt.Errorf("residue %q at position %d has no vocabulary token", sequence[i], i+1)
		}
		tokens = append(tokens, id)
	}
	tokens = append(tokens, eosTokenID)
	return tokens, nil
}

func (t *Tokenizer) TokenID(residue byte) (int, error) {
	id, ok := t.ids[residue]
	if !ok {
		return 0, fmt.Errorf("residue %q has no vocabulary token", residue)
	}
	return id, nil
}

func (t *Tokenizer) MaskID() int {
	return maskTokenID
}

func (t *Tokenizer) VocabSize() int {
	return len(vocab)
}
