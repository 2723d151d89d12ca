package domain

// DeviceInfo describes a device visible to the transport.
type DeviceInfo struct {
	ID             string `json:"id"`
	State          string `json:"state"`
	Model          string `json:"model,omitempty"`
	AndroidVersion string `json:"android_version,omitempty"`
	APILevel       int    `json:"api_level,omitempty"`
}

// IsOnline reports whether the device is attached and responsive.
func (d DeviceInfo) IsOnline() bool {
	return d.State == "device"
}

// MemoryStats holds the parsed memory counters for the monitored app.
type MemoryStats struct {
	TotalPSSKB   int `json:"total_pss_kb"`
	NativeHeapKB int `json:"native_heap_kb,omitempty"`
	DalvikHeapKB int `json:"dalvik_heap_kb,omitempty"`
}
