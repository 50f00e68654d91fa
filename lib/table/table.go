// Package table provides a small labeled table: an ordered list of
// named columns over rows of dynamic values. It exists to reshape the
// nested JSON the TopLogger service returns into flat, joinable rows.
// An absent cell is a missing key, a JSON null stays nil.
package table

import (
	"fmt"
	"sort"
)

type Table struct {
	columns []string
	rows    []map[string]any
}

// New returns an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{columns: append([]string{}, columns...)}
}

// FromRecords builds a table from decoded JSON objects. Column order is
// the first-seen order across rows, with each row's previously unseen
// keys added in sorted order (JSON object order does not survive
// decoding, so sorted is the only stable choice).
func FromRecords(records []map[string]any) *Table {
	t := &Table{}
	seen := map[string]bool{}
	for _, rec := range records {
		row := make(map[string]any, len(rec))
		var fresh []string
		for k, v := range rec {
			row[k] = v
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		t.columns = append(t.columns, fresh...)
		t.rows = append(t.rows, row)
	}
	return t
}

// FromAny builds a table from a decoded JSON value, which must be an
// array of objects.
func FromAny(v any) (*Table, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %T", v)
	}
	records := make([]map[string]any, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d: expected a JSON object, got %T", i, item)
		}
		records[i] = rec
	}
	return FromRecords(records), nil
}

func (t *Table) Len() int { return len(t.rows) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string{}, t.columns...)
}

func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Value returns the cell at (row, col) and whether it is present.
func (t *Table) Value(row int, col string) (any, bool) {
	v, ok := t.rows[row][col]
	return v, ok
}

// AddColumn registers a column without touching any row. Cells stay
// absent until written.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
}

// Set writes a cell, registering the column if it is new.
func (t *Table) Set(row int, col string, v any) {
	if !t.HasColumn(col) {
		t.columns = append(t.columns, col)
	}
	t.rows[row][col] = v
}

// Append adds a row. Unknown keys become new columns in sorted order.
func (t *Table) Append(row map[string]any) {
	var fresh []string
	for k := range row {
		if !t.HasColumn(k) {
			fresh = append(fresh, k)
		}
	}
	sort.Strings(fresh)
	t.columns = append(t.columns, fresh...)
	cp := make(map[string]any, len(row))
	for k, v := range row {
		cp[k] = v
	}
	t.rows = append(t.rows, cp)
}

func (t *Table) copyRow(i int) map[string]any {
	cp := make(map[string]any, len(t.rows[i]))
	for k, v := range t.rows[i] {
		cp[k] = v
	}
	return cp
}

// Flatten expands the nested object under col into sibling columns
// named "<col>_<key>" and drops col itself. Rows where the nested
// value is absent or null keep the new columns absent. Row order and
// count are always preserved.
func (t *Table) Flatten(col string) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("flatten: no column named %q", col)
	}

	out := &Table{}
	seen := map[string]bool{}
	for _, c := range t.columns {
		if c != col {
			out.columns = append(out.columns, c)
			// a nested key may flatten onto an existing column name
			// (climb.id -> climb_id); it overwrites in place instead
			// of registering a duplicate column
			seen[c] = true
		}
	}

	out.rows = make([]map[string]any, len(t.rows))
	for i := range t.rows {
		row := t.copyRow(i)
		nested := row[col]
		delete(row, col)

		if obj, ok := nested.(map[string]any); ok {
			var fresh []string
			for k, v := range obj {
				name := col + "_" + k
				row[name] = v
				if !seen[name] {
					seen[name] = true
					fresh = append(fresh, name)
				}
			}
			sort.Strings(fresh)
			out.columns = append(out.columns, fresh...)
		} else if nested != nil {
			return nil, fmt.Errorf("flatten: row %d: column %q holds %T, not an object", i, col, nested)
		}
		out.rows[i] = row
	}
	return out, nil
}

// Explode turns a list-valued column into one row per element. An
// absent, null or empty list yields a single row with the cell absent.
// Non-list cells pass through unchanged.
func (t *Table) Explode(col string) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("explode: no column named %q", col)
	}

	out := &Table{columns: append([]string{}, t.columns...)}
	for i := range t.rows {
		v, present := t.rows[i][col]
		list, isList := v.([]any)
		if !present || v == nil || (isList && len(list) == 0) {
			row := t.copyRow(i)
			delete(row, col)
			out.rows = append(out.rows, row)
			continue
		}
		if !isList {
			out.rows = append(out.rows, t.copyRow(i))
			continue
		}
		for _, elem := range list {
			row := t.copyRow(i)
			row[col] = elem
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Drop removes columns and their cells.
func (t *Table) Drop(cols ...string) *Table {
	dropped := map[string]bool{}
	for _, c := range cols {
		dropped[c] = true
	}

	out := &Table{}
	for _, c := range t.columns {
		if !dropped[c] {
			out.columns = append(out.columns, c)
		}
	}
	out.rows = make([]map[string]any, len(t.rows))
	for i := range t.rows {
		row := t.copyRow(i)
		for c := range dropped {
			delete(row, c)
		}
		out.rows[i] = row
	}
	return out
}

// Rename changes a column name in place within the order.
func (t *Table) Rename(old, new string) *Table {
	out := &Table{columns: append([]string{}, t.columns...)}
	for i, c := range out.columns {
		if c == old {
			out.columns[i] = new
		}
	}
	out.rows = make([]map[string]any, len(t.rows))
	for i := range t.rows {
		row := t.copyRow(i)
		if v, ok := row[old]; ok {
			delete(row, old)
			row[new] = v
		}
		out.rows[i] = row
	}
	return out
}

// FilterRows keeps the rows the predicate accepts, preserving order.
func (t *Table) FilterRows(keep func(row map[string]any) bool) *Table {
	out := &Table{columns: append([]string{}, t.columns...)}
	for i := range t.rows {
		if keep(t.rows[i]) {
			out.rows = append(out.rows, t.copyRow(i))
		}
	}
	return out
}

// SortBy stably reorders rows by the given comparison.
func (t *Table) SortBy(less func(a, b map[string]any) bool) *Table {
	out := &Table{columns: append([]string{}, t.columns...)}
	out.rows = make([]map[string]any, len(t.rows))
	for i := range t.rows {
		out.rows[i] = t.copyRow(i)
	}
	sort.SliceStable(out.rows, func(i, j int) bool {
		return less(out.rows[i], out.rows[j])
	})
	return out
}

// joinKey canonicalizes join values so an int64 id on one side still
// matches the float64 the JSON decoder produced on the other.
func joinKey(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return v
	}
}

// LeftJoin joins right onto t matching leftCol against rightCol. Every
// left row is kept; multiple matches duplicate the left row; no match
// leaves the right side absent. Column name collisions follow the
// _x/_y convention: the left column becomes "<name>_x", the right
// "<name>_y".
func (t *Table) LeftJoin(right *Table, leftCol, rightCol string) (*Table, error) {
	if !t.HasColumn(leftCol) {
		return nil, fmt.Errorf("left join: no column named %q on the left", leftCol)
	}
	if !right.HasColumn(rightCol) {
		return nil, fmt.Errorf("left join: no column named %q on the right", rightCol)
	}

	collide := map[string]bool{}
	for _, c := range right.columns {
		if t.HasColumn(c) {
			collide[c] = true
		}
	}

	out := &Table{}
	leftName := func(c string) string {
		if collide[c] {
			return c + "_x"
		}
		return c
	}
	rightName := func(c string) string {
		if collide[c] {
			return c + "_y"
		}
		return c
	}
	for _, c := range t.columns {
		out.columns = append(out.columns, leftName(c))
	}
	for _, c := range right.columns {
		out.columns = append(out.columns, rightName(c))
	}

	index := map[any][]int{}
	for i := range right.rows {
		v, ok := right.rows[i][rightCol]
		if !ok || v == nil {
			continue
		}
		k := joinKey(v)
		index[k] = append(index[k], i)
	}

	for i := range t.rows {
		base := make(map[string]any, len(t.rows[i]))
		for k, v := range t.rows[i] {
			base[leftName(k)] = v
		}

		var matches []int
		if v, ok := t.rows[i][leftCol]; ok && v != nil {
			matches = index[joinKey(v)]
		}
		if len(matches) == 0 {
			out.rows = append(out.rows, base)
			continue
		}
		for _, m := range matches {
			row := make(map[string]any, len(base)+len(right.rows[m]))
			for k, v := range base {
				row[k] = v
			}
			for k, v := range right.rows[m] {
				row[rightName(k)] = v
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Records returns the rows as plain maps, mostly for rendering and
// tests. The maps are copies.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i := range t.rows {
		out[i] = t.copyRow(i)
	}
	return out
}
