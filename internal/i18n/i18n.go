package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.toml
var localeFS embed.FS

// Locale files bundled into the binary
var localeFiles = []string{"active.en.toml", "active.zh.toml"}

// bundle holds all translation files
var bundle *i18n.Bundle

func init() {
	b, err := loadBundle()
	if err != nil {
		panic(err)
	}
	bundle = b
}

func loadBundle() (*i18n.Bundle, error) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, name := range localeFiles {
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := b.ParseMessageFileBytes(data, name); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return b, nil
}

// Localizer wraps go-i18n localizer with convenience methods
type Localizer struct {
	localizer *i18n.Localizer
	lang      language.Tag
}

// NewLocalizer creates a new localizer for the given locale.
// Supported locales: "en" (English), "zh" (Chinese Simplified); anything else falls back to English.
func NewLocalizer(locale string) *Localizer {
	lang := language.English
	switch locale {
	case "zh", "zh-CN", "zh_CN", "zh-Hans":
		lang = language.Chinese
	}

	return &Localizer{
		localizer: i18n.NewLocalizer(bundle, lang.String()),
		lang:      lang,
	}
}

// Language returns the resolved language tag
func (l *Localizer) Language() language.Tag {
	return l.lang
}

// T translates a message ID, returning the ID itself when it is unknown
func (l *Localizer) T(messageID string) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// TF translates a message with template data
func (l *Localizer) TF(messageID string, templateData map[string]interface{}) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: templateData,
	})
	if err != nil {
		dataJSON, _ := json.Marshal(templateData)
		return messageID + " " + string(dataJSON)
	}
	return msg
}
