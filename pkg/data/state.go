package data

import (
	"database/sql"
	"fmt"
)

var stateQueries = map[string]string{
	"scan":    "SELECT COUNT(*) FROM scan",
	"llr":     "SELECT COUNT(*) FROM llr",
	"variant": "SELECT COUNT(*) FROM variant",
	"model":   "SELECT COUNT(DISTINCT model) FROM scan",
}

// GetDataState returns row counts for the main tables.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64)
	for k, q := range stateQueries {
		var count int64
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to execute state query %s: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}
