package models

// GatewayInfo is served by the gateway's /gateway_info route
type GatewayInfo struct {
	Uptime   float64      `json:"uptime"`
	Endpoint string       `json:"endpoint"`
	State    string       `json:"state"`
	Stale    bool         `json:"stale"`
	Reloads  int64        `json:"reloads"`
	Process  ProcessStats `json:"process"`
}

// ProcessStats represents resource usage of the gateway process
type ProcessStats struct {
	PID        int32       `json:"pid"`
	CPUPercent float64     `json:"cpu_percent"`
	Memory     MemoryStats `json:"memory"`
	NumThreads int32       `json:"num_threads"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	RSS     uint64  `json:"rss"` // Resident Set Size in bytes
	VMS     uint64  `json:"vms"` // Virtual Memory Size in bytes
	Percent float32 `json:"percent"`
}
