// Package modlist supplies the ordered list of workshop ids the server runs
// with. The list lives in the server's ini file, which is either already on
// disk or fetched from the game host over SFTP first.
package modlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	modsPrefix     = "Mods="
	workshopPrefix = "WorkshopItems="
)

// Source yields the current ordered workshop id list.
type Source interface {
	WorkshopIDs() ([]string, error)
}

// ParseServerINI extracts the enabled mod names and workshop ids from a
// Project Zomboid server ini. Both lists keep the file's semicolon order.
func ParseServerINI(r io.Reader) (mods []string, workshopIDs []string, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, modsPrefix) && len(line) > len(modsPrefix):
			mods = splitList(line[len(modsPrefix):])
		case strings.HasPrefix(line, workshopPrefix) && len(line) > len(workshopPrefix):
			workshopIDs = splitList(line[len(workshopPrefix):])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("modlist: scan ini: %w", err)
	}
	return mods, workshopIDs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FileSource reads the workshop id list from a local server ini.
type FileSource struct {
	Path string
}

func (s FileSource) WorkshopIDs() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("modlist: open %s: %w", s.Path, err)
	}
	defer f.Close()
	_, ids, err := ParseServerINI(f)
	return ids, err
}
