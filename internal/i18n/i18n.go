// Package i18n holds the bot's dialog texts for every supported language.
package i18n

import "strings"

// Supported language codes. These are the codes stored on profiles and
// articles, not ISO 639-1 ("ua" rather than "uk").
const (
	EN = "en"
	UA = "ua"
	RU = "ru"
)

// DefaultLang is used when a language is unknown or a key is missing.
const DefaultLang = EN

// Message keys.
const (
	Start          = "start"
	Intro          = "intro"
	AskLang        = "ask_lang"
	ChooseLang     = "choose_lang"
	AskName        = "ask_name"
	AskPetName     = "ask_pet_name"
	WrongName      = "wrong_name"
	Search         = "search"
	Found          = "found"
	Personal       = "personal"
	Busy           = "busy"
	NoArticles     = "no_articles"
	OutOfService   = "out_of_service"
	UnknownCommand = "unknown_command"
)

// Option is a selectable language shown on the language-choice keyboard.
type Option struct {
	Code  string
	Label string
}

// Options lists the language-choice buttons in display order.
var Options = []Option{
	{Code: UA, Label: "Українська"},
	{Code: RU, Label: "Русский"},
	{Code: EN, Label: "English"},
}

// Supported reports whether code is one of the bot's languages.
func Supported(code string) bool {
	_, ok := dialogs[code]
	return ok
}

// FromLocale maps a platform locale ("uk", "ru-RU", "en_US") to a supported
// language code. The second result is false when the locale is not supported.
func FromLocale(locale string) (string, bool) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "uk" {
		locale = UA
	}
	if Supported(locale) {
		return locale, true
	}
	return "", false
}

// MatchLabel matches user input against the language labels, ignoring
// surrounding whitespace and case.
func MatchLabel(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, o := range Options {
		if strings.EqualFold(text, o.Label) {
			return o.Code, true
		}
	}
	return "", false
}

// Labels returns the option labels in display order.
func Labels() []string {
	labels := make([]string, len(Options))
	for i, o := range Options {
		labels[i] = o.Label
	}
	return labels
}

// Text returns the message for key in lang. It falls back to DefaultLang when
// the language or the key is missing, and to the key itself as a last resort.
func Text(lang, key string) string {
	if msgs, ok := dialogs[lang]; ok {
		if s, ok := msgs[key]; ok {
			return s
		}
	}
	if s, ok := dialogs[DefaultLang][key]; ok {
		return s
	}
	return key
}
