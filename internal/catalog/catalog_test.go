package catalog

import (
	"errors"
	"testing"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Len() != 8 {
		t.Fatalf("Default catalog has %d steps, want 8", c.Len())
	}

	wantFields := []string{
		models.FieldFullName,
		models.FieldAge,
		models.FieldEmploymentStatus,
		models.FieldMonthlyIncome,
		models.FieldMonthlyExpenses,
		models.FieldSavings,
		models.FieldExistingLoans,
		models.FieldAssets,
	}
	for i, field := range wantFields {
		step, err := c.At(i)
		if err != nil {
			t.Fatalf("At(%d) failed: %v", i, err)
		}
		if step.Field != field {
			t.Errorf("step %d field = %q, want %q", i, step.Field, field)
		}
		for _, lang := range models.SupportedLanguages {
			if step.Question[lang] == "" {
				t.Errorf("step %d missing %s question", i, lang)
			}
		}
	}

	if c.LastIndex() != 7 {
		t.Errorf("LastIndex() = %d, want 7", c.LastIndex())
	}
}

func TestCatalogAtOutOfRange(t *testing.T) {
	c := Default()
	for _, index := range []int{-1, c.Len()} {
		if _, err := c.At(index); !errors.Is(err, models.ErrStepOutOfRange) {
			t.Errorf("At(%d) error = %v, want ErrStepOutOfRange", index, err)
		}
	}
}

func TestLoadRejectsIncompleteStep(t *testing.T) {
	doc := []byte(`
steps:
  - id: age
    field: age
    type: number
    question:
      English: "How old are you?"
`)
	if _, err := Load(doc); err == nil {
		t.Fatal("Load accepted a step missing translations")
	}
}

func TestLoadRejectsEmptyDocument(t *testing.T) {
	if _, err := Load([]byte("steps: []")); err == nil {
		t.Fatal("Load accepted an empty catalog")
	}
}

func TestMessageFallbackChain(t *testing.T) {
	// Marathi has no entry for the processing notice; it falls back to Hindi.
	hindi := Message(MessageProcessing, models.LanguageHindi)
	if got := Message(MessageProcessing, models.LanguageMarathi); got != hindi {
		t.Errorf("Marathi processing message = %q, want Hindi fallback %q", got, hindi)
	}

	// The welcome prompt exists only in English; everything falls back to it.
	english := Message(MessageWelcome, models.LanguageEnglish)
	if got := Message(MessageWelcome, models.LanguageUrdu); got != english {
		t.Errorf("Urdu welcome message = %q, want English fallback %q", got, english)
	}
}

func TestMessageUnknownKind(t *testing.T) {
	if got := Message(MessageKind("nonexistent"), models.LanguageEnglish); got != "" {
		t.Errorf("unknown message kind returned %q, want empty", got)
	}
}
