package source

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Disk kinds reported by DiskInfo.Kind.
const (
	DiskSSD = "SSD"
	DiskHDD = "HDD"
)

// HardwareInfo describes the machine. It changes rarely, so callers cache it.
type HardwareInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	Virtualization  string `json:"virtualization,omitempty"`

	Processor   Processor  `json:"processor"`
	MemoryTotal uint64     `json:"memory_total"`
	Disks       []DiskInfo `json:"disks"`
}

// Processor is the first CPU package. BaseMHz comes from the model name
// and is 0 when the name carries no clock.
type Processor struct {
	Model   string  `json:"model"`
	Vendor  string  `json:"vendor"`
	Cores   int     `json:"cores"`
	Threads int     `json:"threads"`
	BaseMHz float64 `json:"base_mhz"`
	MaxMHz  float64 `json:"max_mhz"`
	CacheKB int32   `json:"cache_kb"`
}

// DiskInfo is one mounted physical partition. Model and Kind are empty
// where the platform does not expose them.
type DiskInfo struct {
	Device     string `json:"device"`
	Mountpoint string `json:"mountpoint"`
	Fstype     string `json:"fstype"`
	Model      string `json:"model,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Total      uint64 `json:"total"`
	Used       uint64 `json:"used"`
}

var clockInName = regexp.MustCompile(`@\s*([0-9]+(?:\.[0-9]+)?)\s*GHz`)

// baseMHzFromModel extracts "@ 2.60GHz" style clocks from a CPU model name.
func baseMHzFromModel(model string) float64 {
	m := clockInName.FindStringSubmatch(model)
	if m == nil {
		return 0
	}
	ghz, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return ghz * 1000
}

// Hardware reads the host, processor, memory and disk description. Only
// the host read is required; the other parts are left zero when they fail.
func (h *Host) Hardware(ctx context.Context) (HardwareInfo, error) {
	var info HardwareInfo

	hi, err := h.hostInfo(ctx)
	if err != nil {
		return info, fmt.Errorf("source: read host info: %w", err)
	}
	info.Hostname = hi.Hostname
	info.OS = hi.OS
	info.Platform = hi.Platform
	info.PlatformVersion = hi.PlatformVersion
	info.KernelVersion = hi.KernelVersion
	info.Arch = hi.KernelArch
	if hi.VirtualizationRole == "guest" {
		info.Virtualization = hi.VirtualizationSystem
	}

	info.Processor = h.processor(ctx)

	if vm, err := h.virtualMemory(ctx); err == nil {
		info.MemoryTotal = vm.Total
	} else {
		h.logger.Debug("source: memory total unavailable", slog.String("error", err.Error()))
	}

	info.Disks = h.disks(ctx)
	return info, nil
}

func (h *Host) processor(ctx context.Context) Processor {
	var p Processor
	if infos, err := h.cpuInfo(ctx); err != nil || len(infos) == 0 {
		h.logger.Debug("source: cpu info unavailable", slog.Any("error", err))
	} else {
		first := infos[0]
		p.Model = strings.TrimSpace(first.ModelName)
		p.Vendor = first.VendorID
		p.MaxMHz = first.Mhz
		p.CacheKB = first.CacheSize
		p.BaseMHz = baseMHzFromModel(p.Model)
	}
	if n, err := h.cpuCounts(ctx, false); err == nil {
		p.Cores = n
	}
	if n, err := h.cpuCounts(ctx, true); err == nil {
		p.Threads = n
	}
	if p.Cores == 0 {
		p.Cores = p.Threads
	}
	return p
}

// disks lists mounted physical partitions, one per device, by mount point.
func (h *Host) disks(ctx context.Context) []DiskInfo {
	parts, err := h.partitions(ctx)
	if err != nil {
		h.logger.Debug("source: partitions unavailable", slog.String("error", err.Error()))
		return nil
	}

	seen := make(map[string]bool, len(parts))
	var out []DiskInfo
	for _, p := range parts {
		if seen[p.Device] {
			continue
		}
		u, err := h.diskUsage(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		seen[p.Device] = true
		d := DiskInfo{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			Total:      u.Total,
			Used:       u.Used,
		}
		d.Model, d.Kind = h.blockInfo(p.Device)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mountpoint < out[j].Mountpoint })
	return out
}
