package usage_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/pipdrain/internal/usage"
	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := usage.NewTracker(3)

	_, ok := tr.Current()
	assert.False(t, ok)
	assert.Zero(t, tr.Average())

	tr.Record(10, nil)
	tr.Record(40, nil)
	tr.Record(0, fmt.Errorf("failed"))
	tr.Record(20, nil)
	tr.Record(30, nil)

	assert.Equal(t, []float64{40, 20, 30}, tr.Samples())
	cur, ok := tr.Current()
	assert.True(t, ok)
	assert.Equal(t, 30.0, cur)
	assert.InDelta(t, 30.0, tr.Average(), 1e-9)
	assert.Equal(t, 40.0, tr.Peak())
	assert.Equal(t, 1, tr.Failures())
}
