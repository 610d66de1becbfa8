// Package catalog holds the fixed question catalog and the localized system
// messages spoken by the assistant.
//
// The catalog is loaded from an embedded YAML document at startup; step order
// in the document is collection order.
package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

//go:embed steps.yaml
var stepsYAML []byte

// document mirrors the embedded YAML layout.
type document struct {
	Steps []models.Step `yaml:"steps"`
}

// Catalog is an immutable, ordered sequence of question steps.
type Catalog struct {
	steps []models.Step
}

// Load parses a YAML catalog document and validates every step.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Error("catalog.Load: failed to parse catalog document", "error", err)
		return nil, fmt.Errorf("failed to parse catalog document: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("catalog document contains no steps")
	}
	for i := range doc.Steps {
		if err := doc.Steps[i].Validate(); err != nil {
			slog.Error("catalog.Load: invalid step", "error", err, "index", i, "id", doc.Steps[i].ID)
			return nil, fmt.Errorf("invalid step %q at index %d: %w", doc.Steps[i].ID, i, err)
		}
	}
	slog.Debug("catalog.Load: catalog loaded", "steps", len(doc.Steps))
	return &Catalog{steps: doc.Steps}, nil
}

// Default returns the catalog embedded in the binary. It panics on a
// malformed embedded document since that is a build defect, not a runtime
// condition.
func Default() *Catalog {
	c, err := Load(stepsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded step catalog is invalid: %v", err))
	}
	return c
}

// Len returns the number of steps in the catalog.
func (c *Catalog) Len() int {
	return len(c.steps)
}

// At returns the step at the given index.
func (c *Catalog) At(index int) (models.Step, error) {
	if index < 0 || index >= len(c.steps) {
		return models.Step{}, models.ErrStepOutOfRange
	}
	return c.steps[index], nil
}

// LastIndex returns the index of the final step.
func (c *Catalog) LastIndex() int {
	return len(c.steps) - 1
}

// Steps returns a copy of the ordered step sequence.
func (c *Catalog) Steps() []models.Step {
	out := make([]models.Step, len(c.steps))
	copy(out, c.steps)
	return out
}
