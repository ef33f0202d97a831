package timesync

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_ToWallClock(t *testing.T) {
	bootTime := time.Unix(1000000000, 0)

	tests := []struct {
		name       string
		fracDigits int
		ticks      int64
		want       time.Time
	}{
		{"zero", 6, 0, bootTime},
		{"microsecond ticks", 6, 1000000050, bootTime.Add(1000*time.Second + 50*time.Microsecond)},
		{"nanosecond ticks", 9, 1_500_000_000, bootTime.Add(1500 * time.Millisecond)},
		{"whole seconds", 0, 42, bootTime.Add(42 * time.Second)},
		{"millisecond ticks", 3, 1234, bootTime.Add(1234 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConverterAt(bootTime, tt.fracDigits)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(c.ToWallClock(tt.ticks)), "got %v, want %v", c.ToWallClock(tt.ticks), tt.want)
		})
	}
}

func TestConverter_Duration(t *testing.T) {
	c, err := NewConverterAt(time.Unix(0, 0), 6)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Microsecond, c.Duration(50))
	assert.Equal(t, -10*time.Microsecond, c.Duration(-10))
	assert.Equal(t, time.Microsecond, c.Unit())
}

func TestUnitForDigits(t *testing.T) {
	unit, err := UnitForDigits(6)
	require.NoError(t, err)
	assert.Equal(t, time.Microsecond, unit)

	unit, err = UnitForDigits(9)
	require.NoError(t, err)
	assert.Equal(t, time.Nanosecond, unit)

	_, err = UnitForDigits(10)
	require.Error(t, err)
	_, err = UnitForDigits(-1)
	require.Error(t, err)
}

func TestNewConverter(t *testing.T) {
	c, err := NewConverter(6)
	require.NoError(t, err)

	assert.False(t, c.BootTime().IsZero())
	assert.True(t, c.BootTime().Before(time.Now()))
}

func TestParseBootTime(t *testing.T) {
	got, err := parseBootTime(strings.NewReader("cpu  1 2 3\nbtime 1700000000\nprocesses 10\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got.Unix())
}

func TestParseBootTime_Missing(t *testing.T) {
	_, err := parseBootTime(strings.NewReader("cpu  1 2 3\n"))
	require.Error(t, err)
}
