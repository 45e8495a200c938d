package data

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mutscan/mutscan/pkg/evolve"
)

const (
	insertVariantSQL = `INSERT INTO variant (created, model, wild_type, chain, step, score, mutations, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectVariantsSQL = `SELECT id, created, model, wild_type, chain, step, score, mutations, sequence
		FROM variant
		WHERE wild_type = COALESCE(?, wild_type)
		ORDER BY score DESC
		LIMIT ?
	`
)

// VariantRow is one persisted evolution variant.
type VariantRow struct {
	ID        int64   `json:"id"`
	Created   string  `json:"created"`
	Model     string  `json:"model,omitempty"`
	WildType  string  `json:"wild_type"`
	Chain     int     `json:"chain"`
	Step      int     `json:"step"`
	Score     float64 `json:"score"`
	Mutations string  `json:"mutations"`
	Sequence  string  `json:"sequence"`
}

// SaveVariants persists all variants of an evolution run in one
// transaction.
func SaveVariants(db *sql.DB, res *evolve.Result) error {
	if db == nil {
		return errDBNotInitialized
	}
	if res == nil {
		return fmt.Errorf("result is required")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(insertVariantSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare variant insert statement: %w", err)
	}

	created := time.Now().UTC().Format(time.RFC3339)
	for _, v := range res.Variants {
		if _, err := stmt.Exec(created, res.Options.Model, res.Sequence.String(),
			v.Chain, v.Step, v.Score, MutationString(v), v.Sequence); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetVariants returns persisted variants, best score first, optionally
// filtered by wild type sequence.
func GetVariants(db *sql.DB, wildType *string, limit int) ([]*VariantRow, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectVariantsSQL, wildType, limit)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to execute variant select statement: %w", err)
	}
	defer rows.Close()

	list := make([]*VariantRow, 0)
	for rows.Next() {
		v := &VariantRow{}
		if err := rows.Scan(&v.ID, &v.Created, &v.Model, &v.WildType, &v.Chain,
			&v.Step, &v.Score, &v.Mutations, &v.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan variant row: %w", err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variant rows: %w", err)
	}

	return list, nil
}

// MutationString renders a variant diff in the usual protein notation,
// e.g. "M1A,K5R".
func MutationString(v *evolve.Variant) string {
	parts := make([]string, len(v.Positions))
	for k, p := range v.Positions {
		parts[k] = fmt.Sprintf("%c%d%c", v.Source[k], p, v.Target[k])
	}
	return strings.Join(parts, ",")
}
