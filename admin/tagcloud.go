package admin

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/message"

	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

// Tag cloud font sizes, in points.
const (
	cloudSmallest = 8.0
	cloudLargest  = 22.0
)

// CloudTag is one link in the tag cloud.
type CloudTag struct {
	Name     string
	ID       string
	URL      string
	Title    string
	FontSize string // e.g. "14.5pt"
}

// BuildTagCloud sizes tags between 8pt and 22pt by count, ordered by name.
// link maps a tag name to its search URL.
func BuildTagCloud(tags pluginsapi.Tags, p *message.Printer, link func(name string) string) []CloudTag {
	if len(tags) == 0 {
		return nil
	}
	sorted := make(pluginsapi.Tags, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	lo, hi := sorted[0].Count, sorted[0].Count
	for _, t := range sorted[1:] {
		lo = min(lo, t.Count)
		hi = max(hi, t.Count)
	}
	spread := float64(hi - lo)
	if spread <= 0 {
		spread = 1
	}
	step := (cloudLargest - cloudSmallest) / spread

	out := make([]CloudTag, 0, len(sorted))
	for _, t := range sorted {
		size := cloudSmallest + float64(t.Count-lo)*step
		size = math.Round(size*1000) / 1000

		title := p.Sprintf("%d plugins", t.Count)
		if t.Count == 1 {
			title = "1 plugin"
		}
		out = append(out, CloudTag{
			Name:     t.Name,
			ID:       titleSlug(t.Name),
			URL:      link(t.Name),
			Title:    title,
			FontSize: strconv.FormatFloat(size, 'f', -1, 64) + "pt",
		})
	}
	return out
}
