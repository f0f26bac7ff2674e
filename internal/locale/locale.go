package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"log"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Default is the fallback language
var Default = language.Indonesian

// Catalog holds the message bundle for every supported language
type Catalog struct {
	bundle  *goi18n.Bundle
	matcher language.Matcher
	tags    []language.Tag
}

// NewCatalog loads the embedded message files
func NewCatalog() (*Catalog, error) {
	bundle := goi18n.NewBundle(Default)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.Glob(localesFS, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list message files: %w", err)
	}
	for _, name := range files {
		if _, err := bundle.LoadMessageFileFS(localesFS, name); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	// The default language must come first so the matcher falls back to it
	tags := []language.Tag{Default}
	for _, tag := range bundle.LanguageTags() {
		if tag != Default {
			tags = append(tags, tag)
		}
	}

	return &Catalog{
		bundle:  bundle,
		matcher: language.NewMatcher(tags),
		tags:    tags,
	}, nil
}

// Languages returns the supported language tags, default first
func (c *Catalog) Languages() []language.Tag {
	return c.tags
}

// For returns a translator for the first acceptable language. Each argument
// may be a plain tag ("en") or an Accept-Language header value.
func (c *Catalog) For(prefs ...string) *Translator {
	var wanted []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, parsed...)
	}

	_, idx, _ := c.matcher.Match(wanted...)
	tag := c.tags[idx]

	return &Translator{
		tag:       tag,
		localizer: goi18n.NewLocalizer(c.bundle, tag.String()),
		printer:   message.NewPrinter(tag),
	}
}

// Translator resolves message IDs for a single language
type Translator struct {
	tag       language.Tag
	localizer *goi18n.Localizer
	printer   *message.Printer
}

// Tag returns the resolved language
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// Lang returns the resolved language as a BCP 47 string
func (t *Translator) Lang() string {
	return t.tag.String()
}

// T returns the message for id, or id itself when it is missing
func (t *Translator) T(id string) string {
	msg, err := t.localizer.Localize(&goi18n.LocalizeConfig{MessageID: id})
	if err != nil {
		log.Printf("Warning: missing message %q for %s: %v", id, t.tag, err)
		return id
	}
	return msg
}

// Category returns the display label of a BMI category
func (t *Translator) Category(c bmi.Category) string {
	return t.T(c.LabelID())
}

// VisualCategory returns the label of a posture estimate, e.g. "Gemuk (Estimasi Visual)"
func (t *Translator) VisualCategory(c bmi.Category) string {
	return t.Category(c) + " " + t.T("posture.suffix")
}

// Number formats a value with one decimal using the language's separators
func (t *Translator) Number(v float64) string {
	return t.printer.Sprintf("%.1f", v)
}
