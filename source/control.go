package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Priority is a named scheduling priority.
type Priority string

const (
	PriorityIdle        Priority = "idle"
	PriorityBelowNormal Priority = "below-normal"
	PriorityNormal      Priority = "normal"
	PriorityAboveNormal Priority = "above-normal"
	PriorityHigh        Priority = "high"
	PriorityRealtime    Priority = "realtime"
)

// Priorities lists the named levels from lowest to highest.
var Priorities = []Priority{
	PriorityIdle, PriorityBelowNormal, PriorityNormal,
	PriorityAboveNormal, PriorityHigh, PriorityRealtime,
}

// Nice returns the Unix nice value for p. Unknown names map to normal.
func (p Priority) Nice() int {
	switch p {
	case PriorityIdle:
		return 19
	case PriorityBelowNormal:
		return 10
	case PriorityAboveNormal:
		return -5
	case PriorityHigh:
		return -10
	case PriorityRealtime:
		return -20
	default:
		return 0
	}
}

// ParsePriority accepts the names above, case-insensitively, with spaces or
// underscores in place of dashes.
func ParsePriority(s string) (Priority, error) {
	norm := strings.NewReplacer(" ", "-", "_", "-").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Priorities {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("source: unknown priority %q", s)
}

// Action is a process control operation.
type Action string

const (
	ActionTerminate Action = "terminate"
	ActionKill      Action = "kill"
	ActionSuspend   Action = "suspend"
	ActionResume    Action = "resume"
)

// signaler is the part of *process.Process the Controller uses.
type signaler interface {
	TerminateWithContext(ctx context.Context) error
	KillWithContext(ctx context.Context) error
	SuspendWithContext(ctx context.Context) error
	ResumeWithContext(ctx context.Context) error
}

// Controller signals and reprioritizes processes.
type Controller struct {
	lookup      func(ctx context.Context, pid int32) (signaler, error)
	setPriority func(pid int32, nice int) error
}

// NewController returns a Controller acting on real processes.
func NewController() *Controller {
	return &Controller{
		lookup: func(ctx context.Context, pid int32) (signaler, error) {
			p, err := process.NewProcessWithContext(ctx, pid)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		setPriority: setNice,
	}
}

// Do applies action to pid.
func (c *Controller) Do(ctx context.Context, pid int32, action Action) error {
	p, err := c.lookup(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return fmt.Errorf("source: %s %d: %w", action, pid, ErrNotFound)
		}
		return fmt.Errorf("source: %s %d: %w", action, pid, err)
	}

	switch action {
	case ActionTerminate:
		err = p.TerminateWithContext(ctx)
	case ActionKill:
		err = p.KillWithContext(ctx)
	case ActionSuspend:
		err = p.SuspendWithContext(ctx)
	case ActionResume:
		err = p.ResumeWithContext(ctx)
	default:
		return fmt.Errorf("source: unknown action %q", action)
	}
	if err != nil {
		return fmt.Errorf("source: %s %d: %w", action, pid, err)
	}
	return nil
}

// SetPriority renices pid to the level p.
func (c *Controller) SetPriority(pid int32, p Priority) error {
	if err := c.setPriority(pid, p.Nice()); err != nil {
		return fmt.Errorf("source: set priority %s on %d: %w", p, pid, err)
	}
	return nil
}
