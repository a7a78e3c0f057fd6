package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/sysgauge/display/widgets"
	"gitlab.com/tinyland/lab/sysgauge/internal/format"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

// hardwareMsg delivers a hardware read.
type hardwareMsg struct {
	info source.HardwareInfo
	err  error
}

func hardwareCmd(ctx context.Context, b Backend, force bool) tea.Cmd {
	return func() tea.Msg {
		info, err := b.Hardware(ctx, force)
		return hardwareMsg{info: info, err: err}
	}
}

// hardwareState is the Hardware tab's last read.
type hardwareState struct {
	info    source.HardwareInfo
	loaded  bool
	loading bool
	err     error
}

func (m *Model) loadHardware(force bool) tea.Cmd {
	if m.hardware.loading && !force {
		return nil
	}
	m.hardware.loading = true
	return hardwareCmd(m.opts.Context, m.backend, force)
}

func formatMHz(mhz float64) string {
	if mhz <= 0 {
		return "--"
	}
	if mhz >= 1000 {
		return fmt.Sprintf("%.2f GHz", mhz/1000)
	}
	return fmt.Sprintf("%.0f MHz", mhz)
}

// renderHardware renders the Hardware tab: processor, operating system,
// memory and one row per mounted disk.
func (m Model) renderHardware(lc LayoutConfig) string {
	hw := m.hardware
	if !hw.loaded {
		if hw.err != nil {
			return m.styles.danger.Render("Hardware unavailable: " + hw.err.Error())
		}
		return "Reading hardware..."
	}
	info := hw.info
	p := info.Processor

	field := func(label, value string) string {
		return m.styles.label.Render(fmt.Sprintf("%-14s", label+":")) + " " + value
	}
	model := p.Model
	if model == "" {
		model = "unknown"
	}
	osLine := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if osLine == "" {
		osLine = info.OS
	}

	sections := []string{
		sectionTitle("Processor", lc.TableWidth),
		field("Model", model),
		field("Cores", fmt.Sprintf("%d cores, %d threads", p.Cores, p.Threads)),
		field("Speed", "base "+formatMHz(p.BaseMHz)+", max "+formatMHz(p.MaxMHz)),
		field("Architecture", info.Arch),
		"",
		sectionTitle("System", lc.TableWidth),
		field("Host", info.Hostname),
		field("OS", osLine),
		field("Kernel", info.KernelVersion),
		field("Memory", format.FormatBytes(info.MemoryTotal)),
	}
	if info.Virtualization != "" {
		sections = append(sections, field("Virtualized", info.Virtualization))
	}

	sections = append(sections, "", sectionTitle("Disks", lc.TableWidth))
	if len(info.Disks) == 0 {
		sections = append(sections, m.styles.muted.Render("no mounted disks found"))
	} else {
		sections = append(sections, m.diskTable(info.Disks, lc.TableWidth))
	}
	if hw.err != nil {
		sections = append(sections, "", m.styles.danger.Render("last refresh failed: "+hw.err.Error()))
	}
	return strings.Join(sections, "\n")
}

func (m Model) diskTable(disks []source.DiskInfo, width int) string {
	cfg := widgets.DefaultTableConfig()
	cfg.MaxWidth = width
	cfg.HeaderStyle = m.styles.title
	cfg.Columns = []widgets.Column{
		{Title: "Mount"},
		{Title: "Device"},
		{Title: "Model"},
		{Title: "Type"},
		{Title: "FS"},
		{Title: "Size", Align: widgets.AlignRight},
		{Title: "Used", Align: widgets.AlignRight},
	}
	for _, d := range disks {
		kind := d.Kind
		if kind == "" {
			kind = "--"
		}
		used := "--"
		if d.Total > 0 {
			used = strconv.FormatFloat(float64(d.Used)*100/float64(d.Total), 'f', 0, 64) + "%"
		}
		cfg.Rows = append(cfg.Rows, []string{
			d.Mountpoint, d.Device, d.Model, kind, d.Fstype, format.FormatBytes(d.Total), used,
		})
	}
	return widgets.RenderTable(cfg)
}
