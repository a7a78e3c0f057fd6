//go:build unix

package source

import "golang.org/x/sys/unix"

// setNice sets the scheduling priority of a single process.
func setNice(pid int32, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, int(pid), nice)
}
