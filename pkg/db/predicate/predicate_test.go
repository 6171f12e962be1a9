package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_Where(t *testing.T) {
	tests := []struct {
		name     string
		list     List
		preBound []any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty",
			list:     List{},
			wantSQL:  "",
			wantArgs: nil,
		},
		{
			name:     "single address and range",
			list:     List{In("address", []string{"swth1a"}), Between("day", "2024-01-01", "2024-01-31")},
			wantSQL:  "WHERE address = $1 AND day BETWEEN $2 AND $3",
			wantArgs: []any{"swth1a", "2024-01-01", "2024-01-31"},
		},
		{
			name:     "address set with optional denom unset",
			list:     List{In("address", []string{"a", "b"}), EqIfSet("denom", "")},
			wantSQL:  "WHERE address = ANY($1)",
			wantArgs: []any{[]string{"a", "b"}},
		},
		{
			name:     "continues numbering after pre-bound args",
			list:     List{EqIfSet("market", "cmkt/1")},
			preBound: []any{int64(5)},
			wantSQL:  "WHERE market = $2",
			wantArgs: []any{int64(5), "cmkt/1"},
		},
		{
			name:     "or group",
			list:     List{Or(Eq("maker_address", "a"), Eq("taker_address", "a")), Gte("block_height", int64(10))},
			wantSQL:  "WHERE (maker_address = $1 OR taker_address = $2) AND block_height >= $3",
			wantArgs: []any{"a", "a", int64(10)},
		},
		{
			name:     "empty set matches nothing",
			list:     List{In("address", nil)},
			wantSQL:  "WHERE FALSE",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBinder(tt.preBound...)
			assert.Equal(t, tt.wantSQL, tt.list.Where(b))
			if tt.wantArgs == nil {
				assert.Empty(t, b.Args())
			} else {
				assert.Equal(t, tt.wantArgs, b.Args())
			}
		})
	}
}

func TestList_AndDefaultsToTrue(t *testing.T) {
	b := NewBinder()
	assert.Equal(t, "TRUE", List{When(false, Eq("x", 1))}.And(b))
	assert.Equal(t, "x = $1 AND y < $2", List{Eq("x", 1), nil, Lt("y", 2)}.And(b))
}
