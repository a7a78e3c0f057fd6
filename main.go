// sysgauge is a terminal system monitor.
//
// It samples network, disk, CPU and process counters, turns them into live
// rates with adaptive gauge ceilings, and lists services, installed
// packages and login items. The data is shown in an interactive Bubbletea
// dashboard, or persisted by a headless daemon for -status to read.
//
// Usage:
//
//	sysgauge [flags]
//
// Flags:
//
//	-tui              Launch the interactive dashboard (default)
//	-daemon           Run headless and persist snapshots to the cache dir
//	-status           Print the snapshot last persisted by the daemon
//	-json             Output -status, -interfaces or -keys as JSON
//	-interfaces       List network interfaces with their byte counters
//	-keys string      Print keybindings for a mode (all|global|network|processes|startup|confirm)
//	-config string    Path to configuration file (default: ~/.config/sysgauge/config.yaml)
//	-verbose          Enable debug logging
//	-version          Print version and exit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"gitlab.com/tinyland/lab/sysgauge/cache"
	"gitlab.com/tinyland/lab/sysgauge/config"
	"gitlab.com/tinyland/lab/sysgauge/display/tui"
	"gitlab.com/tinyland/lab/sysgauge/display/widgets"
	"gitlab.com/tinyland/lab/sysgauge/internal/format"
	"gitlab.com/tinyland/lab/sysgauge/monitor"
	"gitlab.com/tinyland/lab/sysgauge/source"
)

// defaultStatusWidth is used when stdout is not a terminal.
const defaultStatusWidth = 100

type options struct {
	configPath     string
	runTUI         bool
	runDaemon      bool
	showStatus     bool
	jsonOutput     bool
	listInterfaces bool
	keysMode       string
	verbose        bool
	showVersion    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("sysgauge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to configuration file (default: "+config.DefaultPath()+")")
	fs.BoolVar(&o.runTUI, "tui", false, "Launch the interactive dashboard (default)")
	fs.BoolVar(&o.runDaemon, "daemon", false, "Run headless and persist snapshots to the cache dir")
	fs.BoolVar(&o.showStatus, "status", false, "Print the snapshot last persisted by the daemon")
	fs.BoolVar(&o.jsonOutput, "json", false, "Output -status, -interfaces or -keys as JSON")
	fs.BoolVar(&o.listInterfaces, "interfaces", false, "List network interfaces with their byte counters")
	fs.StringVar(&o.keysMode, "keys", "", "Print keybindings for a mode (all|global|network|processes|startup|confirm)")
	fs.BoolVar(&o.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	modes := 0
	for _, set := range []bool{o.runTUI, o.runDaemon, o.showStatus, o.listInterfaces} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return o, errors.New("-tui, -daemon, -status and -interfaces are mutually exclusive")
	}
	if modes == 0 {
		o.runTUI = true
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "sysgauge: %v\n", err)
		return 2
	}

	// ---------------------------------------------------------------
	// Commands that don't require config
	// ---------------------------------------------------------------

	if opts.showVersion {
		fmt.Fprintln(stdout, versionString())
		return 0
	}

	if opts.keysMode != "" {
		keysFormat := "table"
		if opts.jsonOutput {
			keysFormat = "json"
		}
		if err := runKeysCommand(stdout, opts.keysMode, keysFormat); err != nil {
			fmt.Fprintf(stderr, "sysgauge: %v\n", err)
			return 1
		}
		return 0
	}

	// ---------------------------------------------------------------
	// Load configuration (required for remaining modes)
	// ---------------------------------------------------------------

	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config %s: %v\n", path, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// Read-only modes
	// ---------------------------------------------------------------

	if opts.showStatus {
		store, err := cache.NewStore(cfg.Daemon.CacheDir, nil)
		if err != nil {
			fmt.Fprintf(stderr, "open cache: %v\n", err)
			return 1
		}
		return runStatus(stdout, stderr, store, cfg.SnapshotTTL(), time.Now(), opts.jsonOutput, terminalWidth(os.Stdout))
	}

	if opts.listInterfaces {
		host := source.NewHost(source.HostConfig{Interface: cfg.Network.Interface, DiskPath: cfg.Network.DiskPath}, nil)
		if err := printInterfaces(ctx, stdout, host, opts.jsonOutput, terminalWidth(os.Stdout)); err != nil {
			fmt.Fprintf(stderr, "sysgauge: %v\n", err)
			return 1
		}
		return 0
	}

	// ---------------------------------------------------------------
	// Monitoring modes
	// ---------------------------------------------------------------

	logger, closeLog, err := newLogger(cfg.Daemon.LogFile, cfg.Daemon.LogLevel, opts.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "open log: %v\n", err)
		return 1
	}
	defer closeLog()

	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		fmt.Fprintf(stderr, "open cache: %v\n", err)
		return 1
	}

	mon, err := newMonitor(ctx, cfg, store, logger)
	if err != nil {
		fmt.Fprintf(stderr, "sysgauge: %v\n", err)
		return 1
	}

	if opts.runDaemon {
		logger.Info("starting daemon", "version", version, "cache_dir", cfg.Daemon.CacheDir)
		d := newDaemon(cfg, mon, store, logger)
		if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "daemon: %v\n", err)
			return 1
		}
		return 0
	}

	return runDashboard(ctx, cfg, mon, logger, stderr)
}

// runDashboard runs the TUI until the user quits or a signal arrives.
func runDashboard(ctx context.Context, cfg *config.Config, mon *monitor.Monitor, logger *slog.Logger, stderr io.Writer) (code int) {
	if err := mon.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "start monitor: %v\n", err)
		return 1
	}
	defer mon.Stop()

	defer func() {
		if r := recover(); r != nil {
			// Restore the terminal from the alt screen before printing.
			fmt.Print("\x1b[?1049l\x1b[?25h")
			fmt.Fprintf(stderr, "sysgauge: TUI panic: %v\n", r)
			code = 1
		}
	}()

	model := tui.NewModel(mon, tui.Options{
		Theme:       cfg.Display.Theme,
		EnableMouse: cfg.Display.EnableMouse,
		Top:         cfg.Processes.Top,
		Context:     ctx,
	})
	defer model.Close()

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.Display.EnableMouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}
	if _, err := tea.NewProgram(model, progOpts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("dashboard exited", "error", err)
		fmt.Fprintf(stderr, "sysgauge: %v\n", err)
		return 1
	}
	return 0
}

// newMonitor wires the host readers, the enumerators and the process
// controller into a Monitor.
func newMonitor(ctx context.Context, cfg *config.Config, store *cache.Store, logger *slog.Logger) (*monitor.Monitor, error) {
	if cfg.Processes.CoreCount == 0 {
		// Zero again when gopsutil cannot count; the accountant then uses
		// runtime.NumCPU.
		cfg.Processes.CoreCount = source.LogicalCores(ctx)
	}
	host := source.NewHost(source.HostConfig{
		Interface: cfg.Network.Interface,
		DiskPath:  cfg.Network.DiskPath,
	}, logger)
	startup := source.StartupEnumerator{Dirs: cfg.Enumerations.AutostartDirs}

	return monitor.New(cfg, monitor.Deps{
		Counters:   host,
		Entities:   host,
		Services:   source.ServiceEnumerator{Dirs: cfg.Enumerations.SystemdDirs},
		Programs:   source.ProgramEnumerator{StatusPath: cfg.Enumerations.DpkgStatus},
		Startup:    startup,
		Hardware:   host,
		Resolver:   host,
		Controller: source.NewController(),
		Disabler:   startup,
		Store:      store,
	}, logger)
}

// newLogger opens the configured log file. The dashboard owns the
// terminal, so logs never go to stderr in monitoring modes.
func newLogger(path, level string, verbose bool) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	return logger, func() { f.Close() }, nil
}

// terminalWidth returns the width of f, or defaultStatusWidth when f is
// not a terminal.
func terminalWidth(f *os.File) int {
	if !term.IsTerminal(f.Fd()) {
		return defaultStatusWidth
	}
	w, _, err := term.GetSize(f.Fd())
	if err != nil || w <= 0 {
		return defaultStatusWidth
	}
	return w
}

// interfaceLister is the part of *source.Host -interfaces uses.
type interfaceLister interface {
	ListInterfaces(ctx context.Context) ([]source.InterfaceInfo, error)
	ResolveInterface(ctx context.Context) (string, error)
}

// printInterfaces lists every interface and marks the one the monitor
// would read from.
func printInterfaces(ctx context.Context, w io.Writer, l interfaceLister, jsonOutput bool, width int) error {
	ifs, err := l.ListInterfaces(ctx)
	if err != nil {
		return err
	}
	selected, resolveErr := l.ResolveInterface(ctx)

	if jsonOutput {
		out := struct {
			Selected   string                 `json:"selected,omitempty"`
			Error      string                 `json:"error,omitempty"`
			Interfaces []source.InterfaceInfo `json:"interfaces"`
		}{Selected: selected, Interfaces: ifs}
		if resolveErr != nil {
			out.Error = resolveErr.Error()
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal interfaces: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	cfg := widgets.DefaultTableConfig()
	cfg.MaxWidth = width
	cfg.Columns = []widgets.Column{
		{Title: "", Width: 1},
		{Title: "Interface"},
		{Title: "Kind"},
		{Title: "Received", Align: widgets.AlignRight},
		{Title: "Sent", Align: widgets.AlignRight},
		{Title: "Flags"},
		{Title: "Addresses"},
	}
	for _, i := range ifs {
		mark := ""
		if i.Name == selected {
			mark = "*"
		}
		cfg.Rows = append(cfg.Rows, []string{
			mark, i.Name, i.Kind,
			format.FormatBytes(i.BytesRecv), format.FormatBytes(i.BytesSent),
			strings.Join(i.Flags, ","), strings.Join(i.Addrs, " "),
		})
	}
	fmt.Fprintln(w, widgets.RenderTable(cfg))
	if resolveErr != nil {
		fmt.Fprintf(w, "\nno interface selected: %v\n", resolveErr)
	}
	return nil
}
