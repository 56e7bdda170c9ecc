package view

import (
	"strings"

	"github.com/JonMunkholm/simroster/internal/roster"
)

// Compare orders a and b by col, ascending, returning -1, 0 or 1.
//
// Text columns treat nil as "" and compare bytewise. Numeric columns sort
// nil before every number and two nils as equal. Unknown columns compare
// equal.
func Compare(a, b roster.Record, col roster.Column) int {
	spec, ok := lookupExact(col)
	if !ok {
		return 0
	}

	if spec.Type == roster.FieldNumeric {
		return compareInts(a.Int(col), b.Int(col))
	}
	return strings.Compare(deref(a.String(col)), deref(b.String(col)))
}

func compareInts(x, y *int) int {
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return -1
	case y == nil:
		return 1
	case *x < *y:
		return -1
	case *x > *y:
		return 1
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func lookupExact(col roster.Column) (roster.ColumnSpec, bool) {
	spec, ok := roster.Lookup(string(col))
	if !ok || spec.Name != col {
		return roster.ColumnSpec{}, false
	}
	return spec, true
}
