package utils

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(strings.Repeat("x", 2*maxDrain))}
	require.NoError(t, DrainAndClose(body))
	assert.True(t, body.closed)

	rest, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Len(t, rest, maxDrain)

	assert.NoError(t, DrainAndClose(nil))
}
