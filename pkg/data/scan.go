package data

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mutscan/mutscan/pkg/score"
	"github.com/mutscan/mutscan/pkg/seq"
)

const (
	insertScanSQL = `INSERT INTO scan (created, model, sequence, start_pos, end_pos)
		VALUES (?, ?, ?, ?, ?)
	`

	insertLLRSQL = `INSERT INTO llr (scan_id, position, wt, residue, llr)
		VALUES (?, ?, ?, ?, ?)
	`

	selectScanSQL = `SELECT id, created, model, sequence, start_pos, end_pos
		FROM scan WHERE id = ?
	`

	selectLLRSQL = `SELECT position, residue, llr
		FROM llr WHERE scan_id = ?
		ORDER BY position, residue
	`
)

// ScanListItem is one persisted scan in list results.
type ScanListItem struct {
	ID       int64  `json:"id"`
	Created  string `json:"created"`
	Model    string `json:"model,omitempty"`
	Sequence string `json:"sequence"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// SaveScan persists the table and all its LLR cells in one transaction
// and returns the new scan id.
func SaveScan(db *sql.DB, t *score.Table) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if t == nil {
		return 0, fmt.Errorf("table is required")
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	created := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(insertScanSQL, created, t.Model, t.Sequence.String(), t.Start, t.End)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to get scan id: %w", err)
	}

	stmt, err := tx.Prepare(insertLLRSQL)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare llr insert statement: %w", err)
	}

	for j := 0; j < t.Cols(); j++ {
		p := t.Position(j)
		wt := string(t.WildType(j))
		for i := 0; i < seq.AlphabetSize; i++ {
			if _, err := stmt.Exec(id, p, wt, string(seq.Residue(i)), t.LLR[i][j]); err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("failed to insert llr for position %d: %w", p, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// GetScan rebuilds the persisted table for a scan id.
func GetScan(db *sql.DB, id int64) (*score.Table, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	var (
		item ScanListItem
		s    string
	)
	row := db.QueryRow(selectScanSQL, id)
	if err := row.Scan(&item.ID, &item.Created, &item.Model, &s, &item.Start, &item.End); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("scan %d not found", id)
		}
		return nil, fmt.Errorf("failed to read scan %d: %w", id, err)
	}

	parsed, err := seq.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("scan %d has invalid sequence: %w", id, err)
	}

	t := score.NewTable(parsed, item.Model, item.Start, item.End)

	rows, err := db.Query(selectLLRSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read llr rows for scan %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       int
			residue string
			v       float64
		)
		if err := rows.Scan(&p, &residue, &v); err != nil {
			return nil, fmt.Errorf("failed to scan llr row: %w", err)
		}
		i, err := seq.Index(rune(residue[0]))
		if err != nil {
			return nil, err
		}
		t.LLR[i][p-item.Start] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate llr rows: %w", err)
	}

	return t, nil
}
