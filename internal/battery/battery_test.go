package battery_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/pipdrain/internal/battery"
	"codeberg.org/mutker/pipdrain/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSupply(t *testing.T, root, name, capacity, status string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "capacity"), []byte(capacity+"\n"), 0o644))
	if status != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status+"\n"), 0o644))
	}
}

func TestRead(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", "0", "")
	writeSupply(t, root, "BAT1", "40", "Charging")
	writeSupply(t, root, "BAT0", "87", "Discharging")

	r := battery.NewReader(root)
	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, battery.Reading{Name: "BAT0", Percent: 87, Status: "Discharging"}, got)
	assert.True(t, got.Discharging())
	assert.Zero(t, r.Drained(got))

	writeSupply(t, root, "BAT0", "84", "Discharging")
	got, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, 3, r.Drained(got))
}

func TestReadMissingStatus(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", "50", "")

	got, err := battery.NewReader(root).Read()
	require.NoError(t, err)
	assert.Equal(t, "Unknown", got.Status)
	assert.False(t, got.Discharging())
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name     string
		capacity string
		code     errors.ErrorCode
	}{
		{name: "garbage", capacity: "full", code: battery.ErrInvalidCapacity},
		{name: "out of range", capacity: "140", code: battery.ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeSupply(t, root, "BAT0", tt.capacity, "Full")

			_, err := battery.NewReader(root).Read()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}

	_, err := battery.NewReader(t.TempDir()).Read()
	assert.True(t, errors.HasCode(err, battery.ErrNoBattery))
}
