// Package system wraps host concerns the export pipeline depends on:
// process limits, codec availability, memory headroom, and frame buffer
// recycling.
package system

import (
	"fmt"
	"syscall"
)

// RaiseFileLimit lifts the soft open-file limit to n, capped at the hard
// limit. Long exports hold pipes to several ffmpeg processes at once.
// Returns the limit actually in effect.
func RaiseFileLimit(n uint64) (uint64, error) {
	var rl syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("get file limit: %w", err)
	}
	if rl.Cur >= n {
		return rl.Cur, nil
	}
	rl.Cur = n
	if rl.Cur > rl.Max {
		rl.Cur = rl.Max
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("set file limit: %w", err)
	}
	return rl.Cur, nil
}
