package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine driving the marionette
type HostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	KernelArch    string `json:"kernel_arch"`
	Uptime        uint64 `json:"uptime"`
	CPUs          int    `json:"cpus"`
	MemoryTotal   uint64 `json:"memory_total"`
	MemoryUsed    uint64 `json:"memory_used"`
}

// GetHostInfo collects host, CPU and memory information
func GetHostInfo(ctx context.Context) (*HostInfo, error) {
	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}
	info := &HostInfo{
		Hostname:      h.Hostname,
		OS:            h.OS,
		Platform:      h.Platform,
		KernelVersion: h.KernelVersion,
		KernelArch:    h.KernelArch,
		Uptime:        h.Uptime,
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
	}
	return info, nil
}
