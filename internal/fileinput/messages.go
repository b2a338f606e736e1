package fileinput

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var defaultLanguage = language.English

var translations = map[language.Tag]map[string]string{
	language.English: {
		"unsupportedCharset":       `Unsupported charset "%s"`,
		"illegalCharset":           `Illegal charset name "%s"`,
		"readerBufferSizeTooSmall": "Reader buffer size too small: %s",
		"readerIntervalTooSmall":   "Reader interval too small: %s",
		"invalidPattern":           "Invalid content splitter pattern: %s",
		"missingPattern":           "Missing content splitter pattern",
	},
	language.German: {
		"unsupportedCharset":       `Nicht unterstützter Zeichensatz "%s"`,
		"illegalCharset":           `Ungültiger Zeichensatzname "%s"`,
		"readerBufferSizeTooSmall": "Lesepuffer zu klein: %s",
		"readerIntervalTooSmall":   "Leseintervall zu klein: %s",
		"invalidPattern":           "Ungültiges Trennmuster: %s",
		"missingPattern":           "Trennmuster fehlt",
	},
}

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(defaultLanguage))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Render formats a violation in the requested language, falling back to English.
func Render(v Violation, tag language.Tag) string {
	p := message.NewPrinter(tag, message.Catalog(messages))
	if v.Value == nil {
		return p.Sprintf(v.MessageKey())
	}
	return p.Sprintf(v.MessageKey(), *v.Value)
}
