package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("INSIGHTS_TEST_INT", "abc")
	t.Setenv("INSIGHTS_TEST_DUR", "90s")
	t.Setenv("INSIGHTS_TEST_LIST", " a, ,b ,")

	assert.Equal(t, "x", Env("INSIGHTS_TEST_MISSING", "x"))
	assert.Equal(t, 7, EnvInt("INSIGHTS_TEST_INT", 7))
	assert.Equal(t, 90*time.Second, EnvDuration("INSIGHTS_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("INSIGHTS_TEST_MISSING", time.Minute))
	assert.Equal(t, []string{"a", "b"}, EnvList("INSIGHTS_TEST_LIST", nil))
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"http://a/", "http://a", "http://b"})
	assert.Equal(t, []string{"http://a", "http://b"}, got)
}
