package pickup_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/pickup"
)

func TestNewGenerator_Digits(t *testing.T) {
	_, err := pickup.NewGenerator(3)
	assert.ErrorIs(t, err, pickup.ErrDigits)
	_, err = pickup.NewGenerator(7)
	assert.ErrorIs(t, err, pickup.ErrDigits)

	for d := pickup.MinDigits; d <= pickup.MaxDigits; d++ {
		g, err := pickup.NewGenerator(d)
		require.NoError(t, err)
		assert.Equal(t, d, g.Digits())
	}
}

func TestGenerate_ShapeAndSpread(t *testing.T) {
	g, err := pickup.NewGenerator(pickup.DefaultDigits)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 4)
		assert.True(t, g.Valid(code), code)
		seen[code] = true
	}
	// 500 draws from 10,000 values; a broken source would repeat heavily.
	assert.Greater(t, len(seen), 400)
}

func TestGenerate_ZeroPadded(t *testing.T) {
	g, err := pickup.NewGeneratorFrom(6, bytes.NewReader(make([]byte, 64)))
	require.NoError(t, err)

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "000000", code)
}

func TestGenerate_SourceFailure(t *testing.T) {
	g, err := pickup.NewGeneratorFrom(4, bytes.NewReader(nil))
	require.NoError(t, err)

	_, err = g.Generate()
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	assert.True(t, pickup.Match("0420", " 0420 "))
	assert.False(t, pickup.Match("0420", "420"))
	assert.False(t, pickup.Match("", ""))
}
