package curriculum

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// manifestSchema constrains the module manifest. Categories mirror
// catalog.ModuleTypes.
const manifestSchema = `{
  "type": "object",
  "required": ["modules"],
  "additionalProperties": false,
  "properties": {
    "modules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["category", "name", "dir"],
        "additionalProperties": false,
        "properties": {
          "category":    {"enum": ["JAVA", "SPRING", "DATABASE", "SYSTEM_DESIGN", "DSA"]},
          "name":        {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "order":       {"type": "integer", "minimum": 0},
          "dir":         {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

type manifest struct {
	Modules []ModuleSpec `yaml:"modules"`
}

// LoadManifest reads and validates a YAML module manifest.
func LoadManifest(path string) ([]ModuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) ([]ModuleSpec, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validating manifest: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Modules))
	for _, spec := range m.Modules {
		if seen[string(spec.Category)] {
			return nil, fmt.Errorf("invalid manifest: category %s listed twice", spec.Category)
		}
		seen[string(spec.Category)] = true
	}
	return m.Modules, nil
}
