package reconcile

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/flexmod/flexmod/internal/event"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/pkg/types"
)

// RenameThreshold is the minimum similarity for a rename suggestion.
const RenameThreshold = 0.6

// SuggestRenames maps each orphaned id in extra to the most similar
// declared marker block id, when one is similar enough. Ids that are still
// declared somewhere are not suggested twice.
func SuggestRenames(extra map[string][]string, doc *types.Document) map[string]string {
	known := doc.MarkerIDs()
	out := make(map[string]string)
	for _, ids := range extra {
		for _, orphan := range ids {
			if _, done := out[orphan]; done {
				continue
			}
			best, score := "", 0.0
			for id := range known {
				s := similarity(strings.ToLower(orphan), strings.ToLower(id))
				if s > score || (s == score && id < best) {
					best, score = id, s
				}
			}
			if score >= RenameThreshold {
				out[orphan] = best
			}
		}
	}
	return out
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(max(len([]rune(a)), len([]rune(b))))
}

// Run performs every check and publishes the summary on bus. A nil bus
// means the default bus.
func Run(doc *types.Document, mod *project.Mod, patterns []string, bus *event.Bus) *types.CheckReport {
	report := &types.CheckReport{
		Missing:     CheckMissing(doc, mod),
		Extra:       CheckExtra(doc, mod, patterns),
		Nonexistent: CheckNonexistent(doc, mod),
	}
	report.Renames = SuggestRenames(report.Extra, doc)

	logging.Info().
		Str("mod", mod.Name).
		Int("missing", countIDs(report.Missing)).
		Int("extra", countIDs(report.Extra)).
		Int("nonexistent", len(report.Nonexistent)).
		Msg("check completed")

	if bus == nil {
		bus = event.Default()
	}
	bus.Publish(event.Event{
		Type: event.CheckCompleted,
		Data: event.CheckCompletedData{
			Mod:         mod.Name,
			Missing:     countIDs(report.Missing),
			Extra:       countIDs(report.Extra),
			Nonexistent: len(report.Nonexistent),
		},
	})
	return report
}

func countIDs(m map[string][]string) int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}
