//go:build !linux

package source

// readBlockInfo has no portable source off Linux.
func readBlockInfo(string) (model, kind string) {
	return "", ""
}
