package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
	"github.com/p-n-ai/pai-catalog/internal/curriculum"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`
modules:
  - category: JAVA
    name: Java Programming
    description: Core language
    order: 1
    dir: java
  - category: SPRING
    name: Spring Framework
    order: 2
    dir: spring
`)

	specs, err := curriculum.ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, curriculum.ModuleSpec{
		Category:    catalog.ModuleJava,
		Name:        "Java Programming",
		Description: "Core language",
		Order:       1,
		Dir:         "java",
	}, specs[0])
	assert.Equal(t, catalog.ModuleSpring, specs[1].Category)
	assert.Empty(t, specs[1].Description)
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"not yaml", "modules: [", "parsing manifest"},
		{"no modules", "modules: []", "invalid manifest"},
		{"unknown category", "modules:\n  - {category: COBOL, name: x, dir: x}", "invalid manifest"},
		{"missing dir", "modules:\n  - {category: JAVA, name: x}", "invalid manifest"},
		{"unknown field", "modules:\n  - {category: JAVA, name: x, dir: x, colour: red}", "invalid manifest"},
		{"negative order", "modules:\n  - {category: JAVA, name: x, dir: x, order: -1}", "invalid manifest"},
		{"duplicate category", "modules:\n  - {category: DSA, name: a, dir: a}\n  - {category: DSA, name: b, dir: b}", "listed twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := curriculum.ParseManifest([]byte(tt.data))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules:\n  - {category: DATABASE, name: Databases, dir: db}\n"), 0o644))

	specs, err := curriculum.LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, catalog.ModuleDatabase, specs[0].Category)

	_, err = curriculum.LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
