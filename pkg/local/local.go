package local

import (
	"fmt"

	"golang.org/x/text/language"
)

type Language string

const (
	Eng = Language("en")
	Rus = Language("ru")
)

type Localization struct {
	language Language
	text     string
}

// TextSet is a user-facing message with optional translations.
type TextSet struct {
	Default          string
	translationsText map[Language]string
}

func NewTrans(language Language, text string) Localization {
	return Localization{
		language: language,
		text:     text,
	}
}

func NewSet(defaultText string, localizations ...Localization) TextSet {
	set := TextSet{
		Default:          defaultText,
		translationsText: make(map[Language]string),
	}
	for _, localization := range localizations {
		set.translationsText[localization.language] = localization.text
	}
	return set
}

func (l TextSet) Text(language Language) string {
	if text, ok := l.translationsText[language]; ok {
		return text
	}
	return l.Default
}

func (l TextSet) DefaultFormat(a ...any) string {
	return fmt.Sprintf(l.Default, a...)
}

func (l TextSet) Format(language Language, a ...any) string {
	if text, ok := l.translationsText[language]; ok {
		return fmt.Sprintf(text, a...)
	}
	return l.DefaultFormat(a...)
}

var (
	supportedTags = []language.Tag{language.English, language.Russian}
	supported     = []Language{Eng, Rus}
	matcher       = language.NewMatcher(supportedTags)
)

// ParseAcceptLanguage picks the best supported language for an
// Accept-Language header value. Unknown or malformed values fall back to Eng.
func ParseAcceptLanguage(header string) Language {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Eng
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Eng
	}
	return supported[index]
}
