package esm

import (
	"fmt"
	"sort"
	"strings"
)

// Checkpoints maps short names to the published ESM-2 checkpoint ids.
var Checkpoints = map[string]string{
	"t48_15B":  "facebook/esm2_t48_15B_UR50D",
	"t36_3B":   "facebook/esm2_t36_3B_UR50D",
	"t33_650M": "facebook/esm2_t33_650M_UR50D",
	"t30_150M": "facebook/esm2_t30_150M_UR50D",
	"t12_35M":  "facebook/esm2_t12_35M_UR50D",
	"t6_8M":    "facebook/esm2_t6_8M_UR50D",
}

// DefaultCheckpoint is the name used when none is specified.
const DefaultCheckpoint = "t30_150M"

// ResolveCheckpoint returns the full checkpoint id for a short name.
// A value already containing a "/" is passed through unchanged.
func ResolveCheckpoint(name string) (string, error) {
	if name == "" {
		name = DefaultCheckpoint
	}
	if strings.Contains(name, "/") {
		return name, nil
	}
	id, ok := Checkpoints[name]
	if !ok {
		return "", fmt.Errorf("unknown checkpoint %q (known: %s)", name, strings.Join(CheckpointNames(), ", "))
	}
	return id, nil
}

// CheckpointNames returns the known short names, sorted.
func CheckpointNames() []string {
	names := make([]string, 0, len(Checkpoints))
	for k := range Checkpoints {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
