package curriculum

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
)

const (
	// DefaultDescription is used when a document has no plain text line.
	DefaultDescription = "Learn about this topic"

	// DefaultEstimatedMinutes applies when no known duration is found.
	DefaultEstimatedMinutes = 180

	// UnorderedIndex sorts files without a numeric prefix last.
	UnorderedIndex = 999

	untitled = "Untitled"
)

// difficultyMarkers is evaluated in order and the first hit wins, so a
// beginner marker anywhere in the text beats an earlier advanced one.
var difficultyMarkers = []struct {
	patterns []string
	tier     catalog.Difficulty
}{
	{[]string{"difficulty**: beginner", "difficulty: beginner"}, catalog.Beginner},
	{[]string{"difficulty**: intermediate", "difficulty: intermediate"}, catalog.Intermediate},
	{[]string{"difficulty**: advanced", "difficulty: advanced"}, catalog.Advanced},
}

// durationMarkers maps literal ranges on the "estimated time" line.
var durationMarkers = []struct {
	literal string
	minutes int
}{
	{"2-3 hours", 180},
	{"3-4 hours", 240},
	{"1-2 hours", 120},
}

// ExtractTitle returns the text of the first "# " heading, cut at the first
// " - ". Without a usable heading the title is derived from fallbackName.
func ExtractTitle(text, fallbackName string) string {
	for _, line := range splitLines(text) {
		if !strings.HasPrefix(line, "# ") {
			continue
		}
		title, _, _ := strings.Cut(line[2:], " - ")
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
		break
	}
	return titleFromFileName(fallbackName)
}

func titleFromFileName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, "-", " "))
	if name == "" {
		return untitled
	}
	return name
}

// ExtractDescription returns the first non-blank line that is not a heading.
func ExtractDescription(text string) string {
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return DefaultDescription
}

// ExtractDifficulty scans case-insensitively for a difficulty marker.
func ExtractDifficulty(text string) catalog.Difficulty {
	folded := cases.Fold().String(text)
	for _, m := range difficultyMarkers {
		for _, p := range m.patterns {
			if strings.Contains(folded, p) {
				return m.tier
			}
		}
	}
	return catalog.Beginner
}

// ExtractEstimatedMinutes reads the first line mentioning "estimated time".
func ExtractEstimatedMinutes(text string) int {
	fold := cases.Fold()
	for _, line := range splitLines(text) {
		if !strings.Contains(fold.String(line), "estimated time") {
			continue
		}
		for _, d := range durationMarkers {
			if strings.Contains(line, d.literal) {
				return d.minutes
			}
		}
		return DefaultEstimatedMinutes
	}
	return DefaultEstimatedMinutes
}

// ExtractOrderIndex parses the numeric prefix of names like "01-variables.md".
func ExtractOrderIndex(fileName string) int {
	prefix, _, _ := strings.Cut(fileName, "-")
	n, err := strconv.ParseInt(prefix, 10, 32)
	if err != nil {
		return UnorderedIndex
	}
	return int(n)
}

// splitLines splits on \n, \r\n and lone \r without keeping terminators.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
