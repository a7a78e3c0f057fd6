package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultDpkgStatus is the Debian package database.
const DefaultDpkgStatus = "/var/lib/dpkg/status"

// ProgramEnumerator lists installed packages from a dpkg status file.
type ProgramEnumerator struct {
	StatusPath string
}

// Enumerate implements Enumerator[Program]. Packages that are not fully
// installed are skipped; duplicates (same name, maintainer and version, as
// happens with multi-arch) are collapsed.
func (e ProgramEnumerator) Enumerate(ctx context.Context) ([]Program, error) {
	path := e.StatusPath
	if path == "" {
		path = DefaultDpkgStatus
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %v: %w", path, err, ErrUnavailable)
	}
	defer f.Close()

	progs, err := parseDpkgStatus(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", path, err)
	}
	return progs, nil
}

func parseDpkgStatus(ctx context.Context, r io.Reader) ([]Program, error) {
	type key struct{ name, maintainer, version string }
	seen := map[key]bool{}
	var out []Program

	fields := map[string]string{}
	flush := func() {
		defer clear(fields)
		if !strings.HasSuffix(fields["Status"], " installed") || fields["Package"] == "" {
			return
		}
		p := Program{
			Name:       fields["Package"],
			Version:    fields["Version"],
			Maintainer: fields["Maintainer"],
			Section:    fields["Section"],
		}
		if kb, err := strconv.ParseUint(fields["Installed-Size"], 10, 64); err == nil {
			p.InstalledKB = kb
		}
		k := key{p.Name, p.Maintainer, p.Version}
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, p)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for sc.Scan() {
		if lines++; lines%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Continuation of a multi-line field; only the first line is kept.
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[k] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
