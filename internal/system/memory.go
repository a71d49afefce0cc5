package system

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// AvailableMemory returns the bytes of memory the process can claim without
// swapping.
func AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// FrameQueueDepth sizes the export frame queue so queued raw RGBA frames
// claim at most a quarter of available memory, bounded to [2, 8]. The lower
// bound keeps the renderer and encoder overlapped even on tight hosts.
func FrameQueueDepth(width, height int) int {
	const (
		minDepth = 2
		maxDepth = 8
	)
	frameBytes := uint64(width) * uint64(height) * 4
	if frameBytes == 0 {
		return minDepth
	}
	avail, err := AvailableMemory()
	if err != nil {
		return minDepth
	}
	depth := int(avail / 4 / frameBytes)
	if depth < minDepth {
		return minDepth
	}
	if depth > maxDepth {
		return maxDepth
	}
	return depth
}
