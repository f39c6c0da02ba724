package gateway

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/ipos-browser-go/internal/models"
)

// processStats returns resource usage of the current process using gopsutil.
// Failures are logged and leave the affected fields zero.
func processStats(logger *logrus.Logger) models.ProcessStats {
	pid := int32(os.Getpid())
	stats := models.ProcessStats{PID: pid}

	proc, err := process.NewProcess(pid)
	if err != nil {
		logger.Warnf("Failed to get process info: %v", err)
		return stats
	}

	if cpuPercent, err := proc.CPUPercent(); err != nil {
		logger.Warnf("Failed to get CPU percent: %v", err)
	} else {
		stats.CPUPercent = cpuPercent
	}

	if memInfo, err := proc.MemoryInfo(); err != nil {
		logger.Warnf("Failed to get memory info: %v", err)
	} else {
		stats.Memory.RSS = memInfo.RSS
		stats.Memory.VMS = memInfo.VMS
	}

	if memPercent, err := proc.MemoryPercent(); err != nil {
		logger.Warnf("Failed to get memory percent: %v", err)
	} else {
		stats.Memory.Percent = memPercent
	}

	if threads, err := proc.NumThreads(); err == nil {
		stats.NumThreads = threads
	}

	return stats
}
