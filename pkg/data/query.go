package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const (
	selectScansSQL = `SELECT id, created, model, sequence, start_pos, end_pos
		FROM scan
		WHERE sequence LIKE COALESCE(?, sequence)
		AND model = COALESCE(?, model)
		ORDER BY id DESC
		LIMIT ?
	`
)

// ScanSearchCriteria filters persisted scans.
type ScanSearchCriteria struct {
	Sequence *string `json:"sequence,omitempty"`
	Model    *string `json:"model,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

func (c ScanSearchCriteria) String() string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

func optionalLike(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := fmt.Sprintf("%%%s%%", *s)
	return &v
}

// SearchScans lists persisted scans matching the criteria, newest first.
func SearchScans(db *sql.DB, q *ScanSearchCriteria) ([]*ScanListItem, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if q == nil {
		q = &ScanSearchCriteria{}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	stmt, err := db.Prepare(selectScansSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare scan search statement: %w", err)
	}

	rows, err := stmt.Query(optionalLike(q.Sequence), q.Model, limit)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to execute scan search statement: %w", err)
	}
	defer rows.Close()

	list := make([]*ScanListItem, 0)
	for rows.Next() {
		item := &ScanListItem{}
		if err := rows.Scan(&item.ID, &item.Created, &item.Model, &item.Sequence, &item.Start, &item.End); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan rows: %w", err)
	}

	return list, nil
}
