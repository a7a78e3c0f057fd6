//go:build linux

package source

import (
	"os"
	"path/filepath"
	"strings"
)

const sysBlock = "/sys/class/block"

// readBlockInfo returns the model and SSD/HDD kind of the disk holding
// device, read from sysfs.
func readBlockInfo(device string) (model, kind string) {
	return blockInfoFrom(sysBlock, device)
}

func blockInfoFrom(root, device string) (model, kind string) {
	name := filepath.Base(device)
	dir, err := filepath.EvalSymlinks(filepath.Join(root, name))
	if err != nil {
		return "", ""
	}
	// A partition's parent directory is its disk.
	if _, err := os.Stat(filepath.Join(dir, "partition")); err == nil {
		dir = filepath.Dir(dir)
	}

	if b, err := os.ReadFile(filepath.Join(dir, "device", "model")); err == nil {
		model = strings.TrimSpace(string(b))
	}
	if b, err := os.ReadFile(filepath.Join(dir, "queue", "rotational")); err == nil {
		switch strings.TrimSpace(string(b)) {
		case "0":
			kind = DiskSSD
		case "1":
			kind = DiskHDD
		}
	}
	return model, kind
}
