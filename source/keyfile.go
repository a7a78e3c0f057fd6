package source

import (
	"bufio"
	"io"
	"strings"
)

// keyFile is a parsed INI-style file as used by systemd units and XDG
// desktop entries: [Section] headers followed by Key=Value lines. Repeated
// keys keep the last value.
type keyFile map[string]map[string]string

func (k keyFile) get(section, key string) string {
	return k[section][key]
}

func (k keyFile) has(section string) bool {
	_, ok := k[section]
	return ok
}

func parseKeyFile(r io.Reader) (keyFile, error) {
	kf := keyFile{}
	section := ""
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '[' && line[len(line)-1] == ']' {
			section = line[1 : len(line)-1]
			if kf[section] == nil {
				kf[section] = map[string]string{}
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || section == "" {
			continue
		}
		kf[section][strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kf, sc.Err()
}
