package source

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/process"
)

type recordingProc struct {
	calls []string
	err   error
}

func (p *recordingProc) TerminateWithContext(context.Context) error {
	p.calls = append(p.calls, "terminate")
	return p.err
}

func (p *recordingProc) KillWithContext(context.Context) error {
	p.calls = append(p.calls, "kill")
	return p.err
}

func (p *recordingProc) SuspendWithContext(context.Context) error {
	p.calls = append(p.calls, "suspend")
	return p.err
}

func (p *recordingProc) ResumeWithContext(context.Context) error {
	p.calls = append(p.calls, "resume")
	return p.err
}

func TestController_Do(t *testing.T) {
	p := &recordingProc{}
	c := &Controller{lookup: func(context.Context, int32) (signaler, error) { return p, nil }}

	for _, a := range []Action{ActionTerminate, ActionKill, ActionSuspend, ActionResume} {
		if err := c.Do(context.Background(), 42, a); err != nil {
			t.Fatalf("Do(%s): %v", a, err)
		}
	}
	if len(p.calls) != 4 || p.calls[0] != "terminate" || p.calls[3] != "resume" {
		t.Errorf("calls = %v", p.calls)
	}

	if err := c.Do(context.Background(), 42, "reboot"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestController_DoErrors(t *testing.T) {
	gone := &Controller{lookup: func(context.Context, int32) (signaler, error) {
		return nil, process.ErrorProcessNotRunning
	}}
	if err := gone.Do(context.Background(), 1, ActionKill); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	denied := errors.New("operation not permitted")
	p := &recordingProc{err: denied}
	c := &Controller{lookup: func(context.Context, int32) (signaler, error) { return p, nil }}
	if err := c.Do(context.Background(), 1, ActionSuspend); !errors.Is(err, denied) {
		t.Errorf("err = %v, want %v", err, denied)
	}
}

func TestController_SetPriority(t *testing.T) {
	var gotPid int32
	var gotNice int
	c := &Controller{setPriority: func(pid int32, nice int) error {
		gotPid, gotNice = pid, nice
		return nil
	}}
	if err := c.SetPriority(77, PriorityBelowNormal); err != nil {
		t.Fatalf("SetPriority: %v", err)
	}
	if gotPid != 77 || gotNice != 10 {
		t.Errorf("setPriority(%d, %d), want (77, 10)", gotPid, gotNice)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
		nice int
	}{
		{"idle", PriorityIdle, 19},
		{"Below Normal", PriorityBelowNormal, 10},
		{"normal", PriorityNormal, 0},
		{"above_normal", PriorityAboveNormal, -5},
		{" HIGH ", PriorityHigh, -10},
		{"Realtime", PriorityRealtime, -20},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if err != nil {
			t.Errorf("ParsePriority(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want || got.Nice() != tt.nice {
			t.Errorf("ParsePriority(%q) = %s (nice %d), want %s (nice %d)", tt.in, got, got.Nice(), tt.want, tt.nice)
		}
	}
	if _, err := ParsePriority("turbo"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestFakeCountersRepeatsLastStep(t *testing.T) {
	f := NewFakeCounters(
		FakeStep{Counters: Counters{BytesRecv: 1}},
		FakeStep{Err: ErrUnavailable},
		FakeStep{Counters: Counters{BytesRecv: 3}},
	)
	ctx := context.Background()
	var got []uint64
	for i := 0; i < 5; i++ {
		c, err := f.ReadCounters(ctx)
		if err != nil {
			got = append(got, 0)
			continue
		}
		got = append(got, c.BytesRecv)
	}
	want := []uint64{1, 0, 3, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reads = %v, want %v", got, want)
		}
	}
	if f.Reads() != 5 {
		t.Errorf("Reads = %d, want 5", f.Reads())
	}
}
