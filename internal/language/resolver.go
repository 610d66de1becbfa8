// Package language resolves raw utterances to supported conversation
// languages and maps languages to speech locales.
package language

import (
	"log/slog"
	"strings"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// rule binds a language to the keywords that select it. Latin names match
// case-insensitively; native-script names match by plain substring.
type rule struct {
	lang     models.Language
	keywords []string
}

// rules is evaluated in declaration order; the first match wins. The order
// mirrors models.SupportedLanguages so resolution stays deterministic if the
// catalog is ever extended.
var rules = []rule{
	{models.LanguageHindi, []string{"hindi", "हिंदी"}},
	{models.LanguageEnglish, []string{"english"}},
	{models.LanguageMarathi, []string{"marathi", "मराठी"}},
	{models.LanguageKannada, []string{"kannada", "ಕನ್ನಡ"}},
	{models.LanguageUrdu, []string{"urdu", "اردو"}},
}

// Resolve maps a raw utterance to a supported language. The second return
// value is false when no language was recognized, which is a request for the
// caller to re-prompt, not an error.
func Resolve(utterance string) (models.Language, bool) {
	lower := strings.ToLower(utterance)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				slog.Debug("language.Resolve: matched", "language", r.lang, "keyword", kw)
				return r.lang, true
			}
		}
	}
	slog.Debug("language.Resolve: no match", "utterance", utterance)
	return "", false
}

// recognitionLocales maps languages to speech-recognition locale tags.
var recognitionLocales = map[models.Language]string{
	models.LanguageEnglish: "en-US",
	models.LanguageHindi:   "hi-IN",
	models.LanguageMarathi: "mr-IN",
	models.LanguageKannada: "kn-IN",
	models.LanguageUrdu:    "ur-IN",
}

// synthesisLocales maps languages to speech-synthesis locale tags. Urdu
// synthesis uses ur-PK while recognition uses ur-IN.
var synthesisLocales = map[models.Language]string{
	models.LanguageEnglish: "en-US",
	models.LanguageHindi:   "hi-IN",
	models.LanguageMarathi: "mr-IN",
	models.LanguageKannada: "kn-IN",
	models.LanguageUrdu:    "ur-PK",
}

// isoCodes maps languages to two-letter ISO 639-1 codes used by the
// transcription API.
var isoCodes = map[models.Language]string{
	models.LanguageEnglish: "en",
	models.LanguageHindi:   "hi",
	models.LanguageMarathi: "mr",
	models.LanguageKannada: "kn",
	models.LanguageUrdu:    "ur",
}

// RecognitionLocale returns the recognition locale tag for a language,
// defaulting to en-US.
func RecognitionLocale(lang models.Language) string {
	if loc, ok := recognitionLocales[lang]; ok {
		return loc
	}
	return "en-US"
}

// SynthesisLocale returns the synthesis locale tag for a language,
// defaulting to en-US.
func SynthesisLocale(lang models.Language) string {
	if loc, ok := synthesisLocales[lang]; ok {
		return loc
	}
	return "en-US"
}

// ISOCode returns the ISO 639-1 code for a language, defaulting to "en".
func ISOCode(lang models.Language) string {
	if code, ok := isoCodes[lang]; ok {
		return code
	}
	return "en"
}
