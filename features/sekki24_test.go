package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSekkiNameAtKnownDegrees(t *testing.T) {
	name, err := SekkiName(0)
	require.NoError(t, err)
	assert.Equal(t, "春分", name)

	name, err = SekkiName(270)
	require.NoError(t, err)
	assert.Equal(t, "冬至", name)
}

func TestSekkiKindAlternates(t *testing.T) {
	kind, err := SekkiKindFor(0)
	require.NoError(t, err)
	assert.Equal(t, KindChuuki, kind)

	kind, err = SekkiKindFor(15)
	require.NoError(t, err)
	assert.Equal(t, KindSetsu, kind)

	kind, err = SekkiKindFor(270)
	require.NoError(t, err)
	assert.Equal(t, KindChuuki, kind)
}

func TestSekkiNameRejectsOutOfRange(t *testing.T) {
	_, err := SekkiName(360)
	assert.Error(t, err)
	_, err = SekkiName(-1)
	assert.Error(t, err)
}
