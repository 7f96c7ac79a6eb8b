package modlist

import (
	"fmt"
	"os"
	"strings"

	"pzwatch/internal/steam"
)

const workshopURL = "https://steamcommunity.com/sharedfiles/filedetails/?id="

// WriteDiscordList writes a copy-paste friendly markdown list of workshop
// links, one mod per line, in mod list order.
func WriteDiscordList(path string, order []string, fetched steam.FetchResult) error {
	var b strings.Builder
	total := 0
	for _, id := range order {
		res, ok := fetched[id]
		if !ok || res.Status != steam.StatusOK {
			continue
		}
		name := res.Detail.Title
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "[%s](<%s%s>)\n", name, workshopURL, id)
		total++
	}
	fmt.Fprintf(&b, "\nTotal Mods: %d", total)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("modlist: write discord list %s: %w", path, err)
	}
	return nil
}
