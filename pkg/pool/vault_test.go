package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultAddress(t *testing.T) {
	cases := []struct {
		id, prefix, want string
	}{
		{"1", "swth", "swth1aqdfjk20s9ccknlk4y3ss3lng49fj2gydsll75"},
		{"2", "swth", "swth1cseyz9v4krrajpea33u35gxzxm7gu0ltyvqv8e"},
		{"3", "swth", "swth1nmufdcuw7kurmtwh9zmujkjlp24rv5pwjamtn3"},
		{"1", "tswth", "tswth1aqdfjk20s9ccknlk4y3ss3lng49fj2gyf8w083"},
		{"2", "tswth", "tswth1cseyz9v4krrajpea33u35gxzxm7gu0ltqm3u7u"},
		{"3", "tswth", "tswth1nmufdcuw7kurmtwh9zmujkjlp24rv5pwk22m25"},
	}
	for _, tc := range cases {
		t.Run(tc.prefix+"/"+tc.id, func(t *testing.T) {
			got, err := VaultAddress(tc.prefix, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVaults_Memoizes(t *testing.T) {
	v := NewVaults("swth")

	first, err := v.Address("1")
	require.NoError(t, err)
	second, err := v.Address("1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "swth", v.Prefix())
	cached, ok := v.memo.Load("1")
	assert.True(t, ok)
	assert.Equal(t, first, cached)
}
