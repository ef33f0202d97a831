// Package timesync converts trace-cmd timestamps to wall-clock time.
//
// trace-cmd's default "local" clock counts from boot, so a tick count is turned
// into wall-clock time by adding it to the system boot time read from /proc/stat.
// The tick unit follows the number of fractional digits in the report: 6 digits
// are microseconds, 9 are nanoseconds.
package timesync
