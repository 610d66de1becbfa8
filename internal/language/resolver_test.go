package language

import (
	"testing"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

func TestResolveKeywords(t *testing.T) {
	cases := []struct {
		utterance string
		want      models.Language
	}{
		{"hindi", models.LanguageHindi},
		{"हिंदी", models.LanguageHindi},
		{"English", models.LanguageEnglish},
		{"marathi", models.LanguageMarathi},
		{"मराठी", models.LanguageMarathi},
		{"kannada please", models.LanguageKannada},
		{"ಕನ್ನಡ", models.LanguageKannada},
		{"urdu", models.LanguageUrdu},
		{"اردو", models.LanguageUrdu},
		{"I would like to continue in English", models.LanguageEnglish},
		{"ENGLISH", models.LanguageEnglish},
	}
	for _, c := range cases {
		got, ok := Resolve(c.utterance)
		if !ok {
			t.Errorf("Resolve(%q) did not match, want %s", c.utterance, c.want)
			continue
		}
		if got != c.want {
			t.Errorf("Resolve(%q) = %s, want %s", c.utterance, got, c.want)
		}
	}
}

func TestResolveMiss(t *testing.T) {
	for _, utterance := range []string{"", "french", "bonjour", "tamil"} {
		if got, ok := Resolve(utterance); ok {
			t.Errorf("Resolve(%q) = %s, want miss", utterance, got)
		}
	}
}

func TestResolveOrderPrefersHindi(t *testing.T) {
	got, ok := Resolve("hindi or english, whichever")
	if !ok || got != models.LanguageHindi {
		t.Errorf("Resolve ambiguous utterance = %s (ok=%v), want Hindi", got, ok)
	}
}

func TestRecognitionLocales(t *testing.T) {
	cases := []struct {
		lang models.Language
		want string
	}{
		{models.LanguageEnglish, "en-US"},
		{models.LanguageHindi, "hi-IN"},
		{models.LanguageMarathi, "mr-IN"},
		{models.LanguageKannada, "kn-IN"},
		{models.LanguageUrdu, "ur-IN"},
		{"", "en-US"},
	}
	for _, c := range cases {
		if got := RecognitionLocale(c.lang); got != c.want {
			t.Errorf("RecognitionLocale(%q) = %s, want %s", c.lang, got, c.want)
		}
	}
}

func TestSynthesisLocaleUrduDiffersFromRecognition(t *testing.T) {
	if got := SynthesisLocale(models.LanguageUrdu); got != "ur-PK" {
		t.Errorf("SynthesisLocale(Urdu) = %s, want ur-PK", got)
	}
	if got := SynthesisLocale(models.LanguageHindi); got != "hi-IN" {
		t.Errorf("SynthesisLocale(Hindi) = %s, want hi-IN", got)
	}
}

func TestISOCode(t *testing.T) {
	if got := ISOCode(models.LanguageKannada); got != "kn" {
		t.Errorf("ISOCode(Kannada) = %s, want kn", got)
	}
	if got := ISOCode(""); got != "en" {
		t.Errorf("ISOCode(unset) = %s, want en", got)
	}
}
