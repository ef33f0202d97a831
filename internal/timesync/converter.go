package timesync

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Converter turns trace timestamps (ticks since boot) into wall-clock time.
type Converter struct {
	bootTime time.Time
	unit     time.Duration
}

// NewConverter creates a converter for timestamps with fracDigits digits after
// the decimal point. It reads the system boot time from /proc/stat and falls
// back to one hour ago when that fails.
func NewConverter(fracDigits int) (*Converter, error) {
	unit, err := UnitForDigits(fracDigits)
	if err != nil {
		return nil, err
	}

	bootTime, err := getSystemBootTime()
	if err != nil {
		bootTime = time.Now().Add(-time.Hour)
	}

	return &Converter{
		bootTime: bootTime,
		unit:     unit,
	}, nil
}

// NewConverterAt creates a converter anchored at a known boot time.
func NewConverterAt(bootTime time.Time, fracDigits int) (*Converter, error) {
	unit, err := UnitForDigits(fracDigits)
	if err != nil {
		return nil, err
	}
	return &Converter{bootTime: bootTime, unit: unit}, nil
}

// UnitForDigits returns the duration of one tick for a timestamp printed with
// fracDigits fractional digits.
func UnitForDigits(fracDigits int) (time.Duration, error) {
	if fracDigits < 0 || fracDigits > 9 {
		return 0, fmt.Errorf("unsupported timestamp precision: %d fractional digits", fracDigits)
	}
	unit := time.Second
	for i := 0; i < fracDigits; i++ {
		unit /= 10
	}
	return unit, nil
}

// ToWallClock converts a tick count since boot to wall-clock time.
func (c *Converter) ToWallClock(ticks int64) time.Time {
	return c.bootTime.Add(c.Duration(ticks))
}

// Duration converts a tick count to a time.Duration.
func (c *Converter) Duration(ticks int64) time.Duration {
	return time.Duration(ticks) * c.unit
}

// Unit returns the duration of one tick.
func (c *Converter) Unit() time.Duration {
	return c.unit
}

// BootTime returns the system boot time used for conversions.
func (c *Converter) BootTime() time.Time {
	return c.bootTime
}

// getSystemBootTime reads the system boot time from /proc/stat.
func getSystemBootTime() (time.Time, error) {
	file, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open /proc/stat: %w", err)
	}
	defer func() {
		_ = file.Close() //nolint:errcheck // Read-only file, defer cleanup
	}()

	return parseBootTime(file)
}

func parseBootTime(r io.Reader) (time.Time, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "btime" {
			continue
		}
		sec, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse btime: %w", err)
		}
		return time.Unix(sec, 0), nil
	}

	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("error reading /proc/stat: %w", err)
	}
	return time.Time{}, fmt.Errorf("btime not found in /proc/stat")
}
