package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaxTemp(t *testing.T) {
	data := "PHX,2026-01-15 10:53,62.0\nPHX,2026-01-15 14:53,71.0\nPHX,2026-01-15 18:53,68.0\n"
	max, err := parseMaxTemp("PHX", data)
	require.NoError(t, err)
	assert.Equal(t, 71.0, max)
}

func TestParseMaxTemp_NoObservations(t *testing.T) {
	_, err := parseMaxTemp("PHX", "SFO,2026-01-15 10:53,55.0\n")
	assert.Error(t, err)
}

func TestParseMaxTemp_MalformedLinesIgnored(t *testing.T) {
	data := "PHX,2026-01-15 10:53,M\nPHX,2026-01-15 14:53,71.0\n"
	max, err := parseMaxTemp("PHX", data)
	require.NoError(t, err)
	assert.Equal(t, 71.0, max)
}
