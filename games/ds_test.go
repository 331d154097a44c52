package games

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDSReferenceVector(t *testing.T) {
	ds := GenerateDS(
		"6s25p5ox5y14umn1p61aqyyvbvvl3lrt",
		1700000000,
		"abcdef",
		`{"act_id":"e202102251931481"}`,
		"",
	)
	assert.Equal(t, "1700000000,abcdef,0c355a597b4d795acd2c79e76ee30f1d", ds)
}

func TestGenerateDSDeterministic(t *testing.T) {
	first := GenerateDS("salt", 1700000000, "nonce1", "body", "query")
	second := GenerateDS("salt", 1700000000, "nonce1", "body", "query")
	assert.Equal(t, first, second)

	// any input change must change the hash
	assert.NotEqual(t, first, GenerateDS("salt", 1700000000, "nonce2", "body", "query"))
	assert.NotEqual(t, first, GenerateDS("salt", 1700000000, "nonce1", "other", "query"))
	assert.NotEqual(t, first, GenerateDS("other", 1700000000, "nonce1", "body", "query"))
}

func TestFreshDSFormat(t *testing.T) {
	ds := FreshDS("salt", "body", "")
	parts := strings.Split(ds, ",")
	require.Len(t, parts, 3)
	assert.NotEmpty(t, parts[0])
	assert.Len(t, parts[1], 6)
	assert.Len(t, parts[2], 32)
}
