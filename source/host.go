package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// HostConfig configures a Host.
type HostConfig struct {
	// Interface pins the network interface. Empty picks the busiest one
	// that is up and not loopback.
	Interface string

	// DiskPath is the mount point reported for disk usage. Default "/".
	DiskPath string

	// Matchers override DefaultMatchers.
	Matchers []Matcher
}

// Host reads counters and processes from the local machine with gopsutil.
// It implements CounterSource and EntityLister and is safe for use by the
// network and system loops at the same time.
type Host struct {
	cfg    HostConfig
	logger *slog.Logger

	mu       sync.Mutex
	iface    string
	strategy string

	// Overridable for testing.
	interfaces    func(ctx context.Context) ([]net.InterfaceStat, error)
	netCounters   func(ctx context.Context) ([]net.IOCountersStat, error)
	cpuTimes      func(ctx context.Context) ([]cpu.TimesStat, error)
	diskCounters  func(ctx context.Context) (map[string]disk.IOCountersStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	loadAvg       func(ctx context.Context) (*load.AvgStat, error)
	uptime        func(ctx context.Context) (uint64, error)
	processes     func(ctx context.Context) ([]proc, error)
	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
	cpuInfo       func(ctx context.Context) ([]cpu.InfoStat, error)
	cpuCounts     func(ctx context.Context, logical bool) (int, error)
	partitions    func(ctx context.Context) ([]disk.PartitionStat, error)
	blockInfo     func(device string) (model, kind string)
	now           func() time.Time
}

// proc is the slice of *process.Process that ListEntities needs.
type proc interface {
	PID() int32
	NameWithContext(ctx context.Context) (string, error)
	TimesWithContext(ctx context.Context) (*cpu.TimesStat, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
	NumThreadsWithContext(ctx context.Context) (int32, error)
	StatusWithContext(ctx context.Context) ([]string, error)
}

type gopsProc struct {
	*process.Process
}

func (p gopsProc) PID() int32 { return p.Pid }

// NewHost returns a Host. Nothing is read until the first call.
func NewHost(cfg HostConfig, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	if len(cfg.Matchers) == 0 {
		cfg.Matchers = DefaultMatchers
	}
	return &Host{
		cfg:           cfg,
		logger:        logger,
		interfaces:    func(ctx context.Context) ([]net.InterfaceStat, error) { return net.InterfacesWithContext(ctx) },
		netCounters:   func(ctx context.Context) ([]net.IOCountersStat, error) { return net.IOCountersWithContext(ctx, true) },
		cpuTimes:      func(ctx context.Context) ([]cpu.TimesStat, error) { return cpu.TimesWithContext(ctx, false) },
		diskCounters:  func(ctx context.Context) (map[string]disk.IOCountersStat, error) { return disk.IOCountersWithContext(ctx) },
		diskUsage:     disk.UsageWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		loadAvg:       load.AvgWithContext,
		uptime:        host.UptimeWithContext,
		processes: func(ctx context.Context) ([]proc, error) {
			ps, err := process.ProcessesWithContext(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]proc, len(ps))
			for i, p := range ps {
				out[i] = gopsProc{p}
			}
			return out, nil
		},
		hostInfo:   host.InfoWithContext,
		cpuInfo:    cpu.InfoWithContext,
		cpuCounts:  cpu.CountsWithContext,
		partitions: func(ctx context.Context) ([]disk.PartitionStat, error) { return disk.PartitionsWithContext(ctx, false) },
		blockInfo:  readBlockInfo,
		now:        time.Now,
	}
}

// Interface returns the resolved interface name and the matcher strategy
// that found it. Both are empty before a successful resolution.
func (h *Host) Interface() (name, strategy string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.iface, h.strategy
}

// ResolveInterface picks the interface the byte counters are read from. A
// configured name is resolved first; otherwise the up, non-loopback
// interface with the most bytes received is chosen. The result is matched
// against the per-NIC counter names. Failure wraps ErrNoInterface.
func (h *Host) ResolveInterface(ctx context.Context) (string, error) {
	counters, err := h.netCounters(ctx)
	if err != nil {
		return "", fmt.Errorf("source: read interface counters: %w", err)
	}
	names := make([]string, 0, len(counters))
	for _, c := range counters {
		names = append(names, c.Name)
	}

	want := h.cfg.Interface
	if want == "" {
		want, err = h.busiestInterface(ctx, counters)
		if err != nil {
			return "", err
		}
	}

	got, strategy, err := MatchInterface(want, names, h.cfg.Matchers...)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.iface, h.strategy = got, strategy
	h.mu.Unlock()

	h.logger.Debug("source: resolved interface",
		slog.String("want", want),
		slog.String("interface", got),
		slog.String("strategy", strategy),
	)
	return got, nil
}

func (h *Host) busiestInterface(ctx context.Context, counters []net.IOCountersStat) (string, error) {
	ifs, err := h.interfaces(ctx)
	if err != nil {
		return "", fmt.Errorf("source: list interfaces: %w", err)
	}

	recv := make(map[string]uint64, len(counters))
	for _, c := range counters {
		recv[c.Name] = c.BytesRecv
	}

	var candidates []string
	for _, i := range ifs {
		if !slices.Contains(i.Flags, "up") ||
			slices.Contains(i.Flags, "loopback") ||
			slices.Contains(i.Flags, "pointtopoint") {
			continue
		}
		candidates = append(candidates, i.Name)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("source: no interface is up: %w", ErrNoInterface)
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return recv[candidates[a]] > recv[candidates[b]]
	})
	return candidates[0], nil
}

// ReadCounters implements CounterSource.
func (h *Host) ReadCounters(ctx context.Context) (Counters, error) {
	if err := ctx.Err(); err != nil {
		return Counters{}, err
	}

	c := Counters{TakenAt: h.now()}
	var failed []string

	if err := h.readNet(ctx, &c); err != nil {
		failed = append(failed, "net: "+err.Error())
	}

	if times, err := h.cpuTimes(ctx); err == nil && len(times) > 0 {
		c.CPUBusy, c.CPUTotal = cpuSeconds(times[0])
		c.Valid |= GroupCPU
	} else if err != nil {
		failed = append(failed, "cpu: "+err.Error())
	}

	if dio, err := h.diskCounters(ctx); err == nil {
		c.DiskReadBytes, c.DiskWriteBytes = sumDiskIO(dio)
		c.Valid |= GroupDiskIO
	} else {
		failed = append(failed, "diskio: "+err.Error())
	}

	if u, err := h.diskUsage(ctx, h.cfg.DiskPath); err == nil && u != nil {
		c.DiskUsed, c.DiskTotal = u.Used, u.Total
		c.Valid |= GroupDiskUsage
	} else if err != nil {
		failed = append(failed, "disk: "+err.Error())
	}

	if vm, err := h.virtualMemory(ctx); err == nil && vm != nil {
		c.MemUsed, c.MemTotal = vm.Used, vm.Total
		c.Valid |= GroupMemory
	} else if err != nil {
		failed = append(failed, "memory: "+err.Error())
	}

	if l, err := h.loadAvg(ctx); err == nil && l != nil {
		c.Load1, c.Load5, c.Load15 = l.Load1, l.Load5, l.Load15
		c.Valid |= GroupLoad
	} else if err != nil {
		failed = append(failed, "load: "+err.Error())
	}

	if up, err := h.uptime(ctx); err == nil {
		c.Uptime = time.Duration(up) * time.Second
		c.Valid |= GroupUptime
	} else {
		failed = append(failed, "uptime: "+err.Error())
	}

	if len(failed) > 0 {
		h.logger.Debug("source: partial counter read", slog.String("failed", strings.Join(failed, "; ")))
	}
	if c.Valid == 0 {
		if err := ctx.Err(); err != nil {
			return Counters{}, err
		}
		return Counters{}, fmt.Errorf("source: read counters: %s: %w", strings.Join(failed, "; "), ErrUnavailable)
	}
	return c, nil
}

func (h *Host) readNet(ctx context.Context, c *Counters) error {
	iface, _ := h.Interface()
	if iface == "" {
		var err error
		if iface, err = h.ResolveInterface(ctx); err != nil {
			return err
		}
	}

	counters, err := h.netCounters(ctx)
	if err != nil {
		return err
	}
	for _, nc := range counters {
		if nc.Name == iface {
			c.Interface = iface
			c.BytesRecv, c.BytesSent = nc.BytesRecv, nc.BytesSent
			c.Valid |= GroupNet
			return nil
		}
	}

	// The interface went away; resolve again next poll.
	h.mu.Lock()
	h.iface, h.strategy = "", ""
	h.mu.Unlock()
	return fmt.Errorf("interface %s disappeared: %w", iface, ErrUnavailable)
}

// ListEntities implements EntityLister. Per-process failures are reported
// on the entity, not as an error.
func (h *Host) ListEntities(ctx context.Context) ([]Entity, error) {
	ps, err := h.processes(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("source: list processes: %v: %w", err, ErrUnavailable)
	}

	out := make([]Entity, 0, len(ps))
	for _, p := range ps {
		e := Entity{PID: p.PID()}
		if name, err := p.NameWithContext(ctx); err == nil {
			e.Name = name
		}

		times, err := p.TimesWithContext(ctx)
		if err != nil {
			if errors.Is(err, process.ErrorProcessNotRunning) {
				continue
			}
			e.Err = err
		} else if times != nil {
			e.CPUTime = time.Duration((times.User + times.System) * float64(time.Second))
		}

		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			e.RSS = mi.RSS
		}
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			e.Threads = n
		}
		if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
			e.Status = st[0]
		}
		out = append(out, e)
	}
	return out, nil
}

// LogicalCores returns the logical CPU count, or 0 if it cannot be read.
func LogicalCores(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// InterfaceInfo describes one interface for the -interfaces listing.
type InterfaceInfo struct {
	Name      string   `json:"name"`
	Flags     []string `json:"flags"`
	Addrs     []string `json:"addrs"`
	Kind      string   `json:"kind,omitempty"`
	BytesRecv uint64   `json:"bytes_recv"`
	BytesSent uint64   `json:"bytes_sent"`
}

// ListInterfaces returns every interface with its counters.
func (h *Host) ListInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	ifs, err := h.interfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: list interfaces: %w", err)
	}
	counters, err := h.netCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: read interface counters: %w", err)
	}
	byName := make(map[string]net.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}

	out := make([]InterfaceInfo, 0, len(ifs))
	for _, i := range ifs {
		info := InterfaceInfo{Name: i.Name, Flags: i.Flags, Kind: AdapterKind(i.Name)}
		for _, a := range i.Addrs {
			info.Addrs = append(info.Addrs, a.Addr)
		}
		if c, ok := byName[i.Name]; ok {
			info.BytesRecv, info.BytesSent = c.BytesRecv, c.BytesSent
		}
		out = append(out, info)
	}
	return out, nil
}

// cpuSeconds splits aggregate CPU time into busy and total seconds. Guest
// time is already counted in user on Linux and is left out.
func cpuSeconds(t cpu.TimesStat) (busy, total float64) {
	total = t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	busy = total - t.Idle - t.Iowait
	return busy, total
}

// sumDiskIO adds up whole-disk counters, skipping partitions whose parent
// device is also listed so bytes are not counted twice.
func sumDiskIO(devices map[string]disk.IOCountersStat) (read, write uint64) {
	for name, c := range devices {
		if isPartition(name, devices) {
			continue
		}
		read += c.ReadBytes
		write += c.WriteBytes
	}
	return read, write
}

func isPartition(name string, all map[string]disk.IOCountersStat) bool {
	base := strings.TrimRight(name, "0123456789")
	if base == name || base == "" {
		return false
	}
	if _, ok := all[base]; ok {
		return true
	}
	// nvme0n1p2 -> nvme0n1, mmcblk0p1 -> mmcblk0
	if trimmed := strings.TrimSuffix(base, "p"); trimmed != base {
		_, ok := all[trimmed]
		return ok
	}
	return false
}

// Compile-time interface compliance checks.
var (
	_ CounterSource = (*Host)(nil)
	_ EntityLister  = (*Host)(nil)
)
