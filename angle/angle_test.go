package angle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNorm360(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{359.999, 359.999},
		{360, 0},
		{720.5, 0.5},
		{-1, 359},
		{-361, 359},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, Norm360(c.in), 1e-9)
	}
}

func TestAngDiff180(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{-181, 179},
		{359, -1},
		{-359, 1},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, AngDiff180(c.in), 1e-9)
	}
}

func TestUnwrapMonotoneAcrossSeam(t *testing.T) {
	seq := []float64{350, 355, 359, 2, 6, 10}
	got := Unwrap(seq)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
	assert.InDelta(t, 350, got[0], 1e-9)
	assert.InDelta(t, 370, got[len(got)-1], 1e-9)
}

func TestUnwrapEmpty(t *testing.T) {
	assert.Nil(t, Unwrap(nil))
}
