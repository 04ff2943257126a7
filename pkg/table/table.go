// Package table holds the combined tabular form produced by normalisation.
//
// A Row maps column names to one of: nil, string, int64, float64 or time.Time.
// A Table keeps an ordered column list and guarantees every row carries every
// column; columns missing from a row are stored as explicit nil.
package table

import "time"

// Row is one flat record.
type Row map[string]any

// Table is an ordered set of rows sharing one column set.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]struct{}
}

// New returns an empty table.
func New() *Table {
	return &Table{index: make(map[string]struct{})}
}

// FromRows builds a table from rows that were produced with a fixed column order.
func FromRows(columns []string, rows []Row) *Table {
	t := New()
	t.Append(columns, rows)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds rows whose column order is given by columns. Columns not yet
// known are added at the end and back-filled with nil on existing rows; known
// columns the incoming rows lack are filled with nil. Keys present in a row but
// not listed in columns are appended too, so no value is ever dropped.
func (t *Table) Append(columns []string, rows []Row) {
	t.ensureIndex()
	var added []string
	addColumn := func(name string) {
		if _, ok := t.index[name]; ok {
			return
		}
		t.index[name] = struct{}{}
		t.Columns = append(t.Columns, name)
		added = append(added, name)
	}
	for _, c := range columns {
		addColumn(c)
	}
	for _, r := range rows {
		for _, c := range sortedExtraKeys(r, t.index) {
			addColumn(c)
		}
	}
	if len(added) > 0 {
		for _, existing := range t.Rows {
			for _, c := range added {
				existing[c] = nil
			}
		}
	}
	for _, r := range rows {
		row := make(Row, len(t.Columns))
		for _, c := range t.Columns {
			row[c] = r[c]
		}
		t.Rows = append(t.Rows, row)
	}
}

// Merge appends every row of other.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	t.Append(other.Columns, other.Rows)
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r[name])
	}
	return out
}

// ColumnType summarises the values of a column for sink type inference.
type ColumnType int

const (
	TypeNull ColumnType = iota
	TypeInt
	TypeFloat
	TypeDate
	TypeText
)

func (c ColumnType) String() string {
	switch c {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeDate:
		return "date"
	case TypeText:
		return "text"
	default:
		return "null"
	}
}

// InferType widens over every non-nil value of a column: int and float give
// float, any mix with text or dates gives text.
func (t *Table) InferType(name string) ColumnType {
	result := TypeNull
	for _, v := range t.Column(name) {
		result = widen(result, typeOf(v))
		if result == TypeText {
			return result
		}
	}
	return result
}

func typeOf(v any) ColumnType {
	switch v.(type) {
	case nil:
		return TypeNull
	case int64, int:
		return TypeInt
	case float64:
		return TypeFloat
	case time.Time:
		return TypeDate
	default:
		return TypeText
	}
}

func widen(a, b ColumnType) ColumnType {
	switch {
	case a == b:
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	case (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt):
		return TypeFloat
	default:
		return TypeText
	}
}

func (t *Table) ensureIndex() {
	if t.index != nil {
		return
	}
	t.index = make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		t.index[c] = struct{}{}
	}
}
