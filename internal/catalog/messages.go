// Package catalog system-message table.
//
// System messages carry English and Hindi translations; lookups for other
// languages fall back to Hindi, then English. Extending coverage is a data
// change only.
package catalog

import "github.com/voicecredit-ai/voicecredit/internal/models"

// MessageKind identifies one of the assistant's fixed system messages.
type MessageKind string

// System message kinds.
const (
	MessageWelcome      MessageKind = "welcome"
	MessageLanguageMiss MessageKind = "language_miss"
	MessageUnderage     MessageKind = "underage_advisory"
	MessageStillHere    MessageKind = "still_here"
	MessageMicDenied    MessageKind = "mic_denied"
	MessageProcessing   MessageKind = "processing"
	MessageDemoWelcome  MessageKind = "demo_welcome"
	MessageDemoReady    MessageKind = "demo_ready"
)

// Narration templates for the finalizer. Approved takes credit score, risk
// level and suggested amount; rejected takes credit score; the reasons
// prefix takes the concatenated reasons.
const (
	TemplateApproved      MessageKind = "approved"
	TemplateRejected      MessageKind = "rejected"
	TemplateReasonsPrefix MessageKind = "reasons_prefix"
)

var messages = map[MessageKind]map[models.Language]string{
	MessageWelcome: {
		models.LanguageEnglish: "Welcome to VoiceCredit AI. Please select your language: Hindi, English, Marathi, Kannada, or Urdu.",
	},
	MessageLanguageMiss: {
		models.LanguageEnglish: "I didn't recognize that language. Please choose from Hindi, English, Marathi, Kannada, or Urdu.",
	},
	MessageUnderage: {
		models.LanguageEnglish: "I noticed you're under 18. Please note that you must be at least 18 to be eligible for a loan, but we can continue the assessment for demonstration purposes.",
		models.LanguageHindi:   "मैंने देखा कि आपकी उम्र 18 वर्ष से कम है। कृपया ध्यान दें कि ऋण के लिए पात्र होने के लिए आपकी आयु कम से कम 18 वर्ष होनी चाहिए, लेकिन हम प्रदर्शन के उद्देश्यों के लिए मूल्यांकन जारी रख सकते हैं।",
	},
	MessageStillHere: {
		models.LanguageEnglish: "I'm still here. Please tell me your answer when you're ready.",
		models.LanguageHindi:   "मैं अभी भी यहीं हूँ। जब आप तैयार हों, तो कृपया मुझे अपना उत्तर बताएं।",
	},
	MessageMicDenied: {
		models.LanguageEnglish: "Microphone access is required. Please check your browser settings.",
		models.LanguageHindi:   "माइक्रोफ़ोन एक्सेस आवश्यक है। कृपया अपनी ब्राउज़र सेटिंग्स जांचें।",
	},
	MessageProcessing: {
		models.LanguageEnglish: "Thank you. Processing your application now.",
		models.LanguageHindi:   "धन्यवाद। अब आपके आवेदन पर कार्रवाई की जा रही है।",
	},
	MessageDemoWelcome: {
		models.LanguageEnglish: "Welcome! Let's run a demo application.",
	},
	MessageDemoReady: {
		models.LanguageEnglish: "I'm ready.",
	},
	TemplateApproved: {
		models.LanguageEnglish: "Congratulations! Your loan is approved. Your credit score is %d, and your risk level is %s. We suggest a loan amount of up to %s.",
		models.LanguageHindi:   "बधाई हो! आपका ऋण स्वीकृत हो गया है। आपका क्रेडिट स्कोर %d है, और आपका जोखिम स्तर %s है। हम %s तक की ऋण राशि का सुझाव देते हैं।",
	},
	TemplateRejected: {
		models.LanguageEnglish: "I'm sorry, your loan application was rejected. Your credit score is %d.",
		models.LanguageHindi:   "क्षमा करें, आपका ऋण आवेदन अस्वीकार कर दिया गया था। आपका क्रेडिट स्कोर %d है।",
	},
	TemplateReasonsPrefix: {
		models.LanguageEnglish: "The reasons for rejection are:",
		models.LanguageHindi:   "अस्वीकृति के कारण हैं:",
	},
}

// Message returns the system message of the given kind localized for the
// given language, following the requested → Hindi → English fallback chain.
func Message(kind MessageKind, lang models.Language) string {
	byLang, ok := messages[kind]
	if !ok {
		return ""
	}
	if text, ok := byLang[lang]; ok {
		return text
	}
	if text, ok := byLang[models.LanguageHindi]; ok {
		return text
	}
	return byLang[models.LanguageEnglish]
}
