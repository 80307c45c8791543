package curriculum

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtension is the lesson file extension.
const DefaultExtension = ".md"

// Loader discovers lesson files and turns each into a Document.
type Loader struct {
	extension string
}

// NewLoader creates a loader for files ending in extension.
func NewLoader(extension string) *Loader {
	if extension == "" {
		extension = DefaultExtension
	}
	return &Loader{extension: extension}
}

// ResolveDir returns the first candidate that exists.
func (l *Loader) ResolveDir(candidates []string) (string, bool) {
	for _, dir := range candidates {
		if _, err := os.Stat(dir); err == nil {
			return dir, true
		}
	}
	return "", false
}

// List returns the lesson file names in dir, sorted lexicographically.
// Lexical order matches numeric order only for equally padded prefixes;
// Document.OrderIndex carries the numeric order independently.
func (l *Loader) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), l.extension) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Load reads dir/name and extracts its fields and question blocks.
func (l *Loader) Load(dir, name string) (Document, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := Parse(name, string(data))
	doc.Path = path
	return doc, nil
}

// Parse extracts a Document from the text of a file named name.
func Parse(name, content string) Document {
	return Document{
		FileName:         name,
		Path:             name,
		Title:            ExtractTitle(content, name),
		Description:      ExtractDescription(content),
		Difficulty:       ExtractDifficulty(content),
		EstimatedMinutes: ExtractEstimatedMinutes(content),
		OrderIndex:       ExtractOrderIndex(name),
		Content:          content,
		Questions:        SplitQuestions(content),
	}
}
