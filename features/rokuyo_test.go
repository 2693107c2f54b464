package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRokuyoKnownValues(t *testing.T) {
	label, err := Rokuyo(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "先勝", label) // (1+1) mod 6 = 2

	label, err = Rokuyo(12, 30)
	require.NoError(t, err)
	assert.Equal(t, "大安", label) // (12+30) mod 6 = 0
}

func TestRokuyoRejectsOutOfRange(t *testing.T) {
	_, err := Rokuyo(0, 1)
	assert.Error(t, err)
	_, err = Rokuyo(13, 1)
	assert.Error(t, err)
	_, err = Rokuyo(1, 0)
	assert.Error(t, err)
	_, err = Rokuyo(1, 31)
	assert.Error(t, err)
}
