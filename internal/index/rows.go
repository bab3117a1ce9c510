package index

import (
	"database/sql"
	"strings"

	"github.com/aidanlsb/wlh/internal/model"
)

// idList expands ids into an IN clause body and its arguments.
// No ids yields "NULL", which matches nothing.
func idList(ids []model.DocID) (string, []any) {
	if len(ids) == 0 {
		return "NULL", nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// collect scans every row with scan and closes rows.
func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]model.DocID, error) {
	return collect(rows, func(rows *sql.Rows) (model.DocID, error) {
		var id int64
		err := rows.Scan(&id)
		return model.DocID(id), err
	})
}
