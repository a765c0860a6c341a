package renderer

import (
	"github.com/shirou/gopsutil/cpu"
)

// HardwareThreads returns the number of logical CPUs, or 0 if it cannot be determined
func HardwareThreads() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
