package utils

import "github.com/shirou/gopsutil/cpu"

// CheckCPUUsage reports whether the host can accept another job. A sampler
// error counts as "too busy" so a broken probe never floods the box.
func CheckCPUUsage(maxCPUUsage float64) (bool, float64) {
	usage, err := cpu.Percent(0, false)
	if err != nil || len(usage) == 0 {
		return false, 0
	}
	return usage[0] <= maxCPUUsage, usage[0]
}
