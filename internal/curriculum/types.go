package curriculum

import (
	"iter"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
)

// Document is one lesson file with every field extracted from it.
type Document struct {
	FileName         string
	Path             string
	Title            string
	Description      string
	Difficulty       catalog.Difficulty
	EstimatedMinutes int
	OrderIndex       int
	Content          string

	// Questions yields the embedded question blocks in source order. It can
	// be ranged over more than once.
	Questions iter.Seq[QuestionBlock]
}

// QuestionBlock is one "#### Q<n>: <title>" section carved out of a body.
type QuestionBlock struct {
	Title       string
	Description string
	Solution    string
	Block       string // trimmed body, prompt and solution together
}

// ModuleSpec describes a module and where its lesson files live.
type ModuleSpec struct {
	Category    catalog.ModuleType `yaml:"category"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Order       int                `yaml:"order"`
	Dir         string             `yaml:"dir"`
}

// DefaultModules is used when no manifest is configured.
var DefaultModules = []ModuleSpec{
	{
		Category:    catalog.ModuleJava,
		Name:        "Java Programming",
		Description: "Master Java programming from fundamentals to advanced concepts",
		Order:       1,
		Dir:         "java",
	},
}
