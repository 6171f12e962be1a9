// Package predicate composes parameterized WHERE clauses.
//
// Column names are always supplied by code. Values never appear in the SQL text: each
// one is bound through a Binder and referenced by its positional placeholder.
package predicate

import (
	"strconv"
	"strings"
)

// Binder hands out PostgreSQL placeholders ($1, $2, ...) in bind order.
type Binder struct {
	args []any
}

// NewBinder starts numbering after the given pre-bound args.
func NewBinder(args ...any) *Binder {
	return &Binder{args: append([]any(nil), args...)}
}

// Bind records v and returns its placeholder.
func (b *Binder) Bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Args returns the bound values in placeholder order.
func (b *Binder) Args() []any { return b.args }

// Predicate renders one condition. An empty string means the predicate does not apply.
type Predicate func(b *Binder) string

func Eq(col string, v any) Predicate {
	return func(b *Binder) string { return col + " = " + b.Bind(v) }
}

func Gte(col string, v any) Predicate {
	return func(b *Binder) string { return col + " >= " + b.Bind(v) }
}

func Gt(col string, v any) Predicate {
	return func(b *Binder) string { return col + " > " + b.Bind(v) }
}

func Lt(col string, v any) Predicate {
	return func(b *Binder) string { return col + " < " + b.Bind(v) }
}

// Between is inclusive on both ends.
func Between(col string, lo, hi any) Predicate {
	return func(b *Binder) string {
		return col + " BETWEEN " + b.Bind(lo) + " AND " + b.Bind(hi)
	}
}

// In matches any of vs. An empty set matches nothing.
func In(col string, vs []string) Predicate {
	return func(b *Binder) string {
		if len(vs) == 0 {
			return "FALSE"
		}
		if len(vs) == 1 {
			return col + " = " + b.Bind(vs[0])
		}
		return col + " = ANY(" + b.Bind(vs) + ")"
	}
}

// When applies p only if cond holds.
func When(cond bool, p Predicate) Predicate {
	return func(b *Binder) string {
		if !cond {
			return ""
		}
		return p(b)
	}
}

// EqIfSet is Eq for optional string filters: an empty value drops the predicate.
func EqIfSet(col, v string) Predicate {
	return When(v != "", Eq(col, v))
}

// Or joins the applicable predicates with OR.
func Or(ps ...Predicate) Predicate {
	return func(b *Binder) string {
		parts := render(b, ps)
		switch len(parts) {
		case 0:
			return ""
		case 1:
			return parts[0]
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}

// List is a conjunction of predicates.
type List []Predicate

// And renders the conjunction, or TRUE when nothing applies.
func (l List) And(b *Binder) string {
	parts := render(b, l)
	if len(parts) == 0 {
		return "TRUE"
	}
	return strings.Join(parts, " AND ")
}

// Where renders "WHERE ..." or an empty string when nothing applies.
func (l List) Where(b *Binder) string {
	parts := render(b, l)
	if len(parts) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(parts, " AND ")
}

func render(b *Binder, ps []Predicate) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p == nil {
			continue
		}
		if s := p(b); s != "" {
			out = append(out, s)
		}
	}
	return out
}
