// Package localization provides the translated user-facing texts of the
// client (notification summaries and details). Translations are JSON files
// keyed by language code, embedded into the binary.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed translations/*.json
var translationFiles embed.FS

// Localizer manages the translations for the client. It holds a map of
// languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	lang         string
	mu           sync.RWMutex
}

// NewLocalizer loads the embedded translations and selects the given
// language. Unknown languages fall back to English key by key.
func NewLocalizer(lang string) (*Localizer, error) {
	return newFromFS(translationFiles, "translations", lang)
}

func newFromFS(fsys fs.FS, dir, lang string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		lang:         lang,
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("localization: read translations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("localization: read %s: %w", entry.Name(), err)
		}
		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("localization: parse %s: %w", entry.Name(), err)
		}
		l.translations[strings.TrimSuffix(entry.Name(), ".json")] = translations
	}

	return l, nil
}

// T returns the localized string for a key in the selected language. Missing
// keys fall back to English, then to the key itself.
func (l *Localizer) T(key string) string {
	return l.GetString(l.lang, key)
}

// GetString returns the localized string for a given key and language.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if translations, ok := l.translations[lang]; ok {
		if value, ok := translations[key]; ok {
			return value
		}
	}
	if lang != "en" {
		if translations, ok := l.translations["en"]; ok {
			if value, ok := translations[key]; ok {
				return value
			}
		}
	}
	return key
}
