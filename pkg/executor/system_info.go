package executor

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/denysvitali/minify-runner/internal/models"
)

// SystemStats returns resource usage of the current process and the disk holding dir
func (e *Executor) SystemStats(dir string) models.SystemResources {
	res := models.SystemResources{CPUCount: runtime.NumCPU()}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		e.logger.Warnf("Failed to get process info: %v", err)
		return res
	}

	if cpuPercent, err := proc.CPUPercent(); err != nil {
		e.logger.Warnf("Failed to get CPU percent: %v", err)
	} else {
		res.CPUPercent = cpuPercent
	}

	if memInfo, err := proc.MemoryInfo(); err != nil {
		e.logger.Warnf("Failed to get memory info: %v", err)
	} else {
		res.MemoryRSS = memInfo.RSS
	}

	if memPercent, err := proc.MemoryPercent(); err != nil {
		e.logger.Warnf("Failed to get memory percent: %v", err)
	} else {
		res.MemoryPercent = memPercent
	}

	if dir == "" {
		dir = "/"
	}
	if usage, err := disk.Usage(dir); err != nil {
		e.logger.Warnf("Failed to get disk usage: %v", err)
	} else {
		res.DiskTotal = usage.Total
		res.DiskUsed = usage.Used
		res.DiskPercent = usage.UsedPercent
	}

	return res
}
