package apply

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/flexmod/flexmod/internal/fsio"
)

// FileDiff is the pending change of one file in a dry run.
type FileDiff struct {
	Path      string `json:"path" yaml:"path"`
	Diff      string `json:"diff" yaml:"diff"`
	Additions int    `json:"additions" yaml:"additions"`
	Deletions int    `json:"deletions" yaml:"deletions"`
}

func diffChanges(changes []fsio.Change, baseDir string) []FileDiff {
	var out []FileDiff
	for _, c := range changes {
		rel := relativePath(c.Path, baseDir)
		text, add, del := buildDiff(rel, string(c.Before), string(c.After))
		if text == "" {
			continue
		}
		out = append(out, FileDiff{Path: filepath.ToSlash(rel), Diff: text, Additions: add, Deletions: del})
	}
	return out
}

// buildDiff returns a line based patch of before to after with file
// headers, plus the number of added and deleted lines.
func buildDiff(path, before, after string) (string, int, int) {
	if before == after {
		return "", 0, 0
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	additions, deletions := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			deletions += countLines(d.Text)
		}
	}

	patches := dmp.PatchMake(before, diffs)
	diffText := dmp.PatchToText(patches)
	if diffText == "" {
		return "", additions, deletions
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s\n", path))
	builder.WriteString(fmt.Sprintf("+++ %s\n", path))
	builder.WriteString(diffText)
	return builder.String(), additions, deletions
}

func relativePath(path, baseDir string) string {
	if baseDir == "" {
		return path
	}
	if rel, err := filepath.Rel(baseDir, path); err == nil {
		return rel
	}
	return path
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
