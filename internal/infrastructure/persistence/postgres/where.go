package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// whereBuilder accumulates AND-ed conditions with positional arguments.
// The first malformed UUID is kept in err and reported by build.
type whereBuilder struct {
	conds []string
	args  []any
	err   error
}

// arg appends a value and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// eq adds "column = value" when value is not empty.
func (w *whereBuilder) eq(column, value string) {
	if value == "" {
		return
	}
	w.conds = append(w.conds, column+" = "+w.arg(value))
}

// neq adds "column <> value" when value is not empty.
func (w *whereBuilder) neq(column, value string) {
	if value == "" {
		return
	}
	w.conds = append(w.conds, column+" <> "+w.arg(value))
}

// anyOf adds "column = ANY(ids)" for a UUID column when ids is not empty.
func (w *whereBuilder) anyOf(column string, ids []string) {
	if len(ids) == 0 {
		return
	}
	parsed, err := parseUUIDs(ids)
	if err != nil {
		if w.err == nil {
			w.err = fmt.Errorf("%s: %w", column, err)
		}
		return
	}
	w.conds = append(w.conds, column+" = ANY("+w.arg(parsed)+")")
}

// since adds "column >= t" when t is set.
func (w *whereBuilder) since(column string, t time.Time) {
	if t.IsZero() {
		return
	}
	w.conds = append(w.conds, column+" >= "+w.arg(t.UTC()))
}

// build appends the WHERE clause to base.
func (w *whereBuilder) build(base string) (string, []any, error) {
	if w.err != nil {
		return "", nil, w.err
	}
	if len(w.conds) == 0 {
		return base, w.args, nil
	}
	return base + " WHERE " + strings.Join(w.conds, " AND "), w.args, nil
}

// parseUUIDs converts string IDs for uuid[] parameters.
func parseUUIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", id, err)
		}
		out[i] = u
	}
	return out, nil
}
