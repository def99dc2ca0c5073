package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// ErrVersionNotFound indicates the requested prompt version directory is
// absent. It is never substituted with another version.
var ErrVersionNotFound = errors.New("prompt version not found")

// ErrPromptNotFound indicates a rubric item or level has no prompt in the
// loaded version.
var ErrPromptNotFound = errors.New("prompt not found")

// rubricItems are the prompt files every version directory must provide.
var rubricItems = []string{
	string(models.SectionIntroduction),
	string(models.SectionBody),
	string(models.SectionConclusion),
	models.RubricItemGrammar,
}

// Loader reads versioned prompt files from disk and serves them from an
// in-memory cache. Entries are immutable once loaded; Reload swaps the whole
// cache atomically under the lock.
type Loader struct {
	dir    string
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]map[string]map[models.Level]string // version -> item -> level -> prompt
}

// NewLoader constructs a loader rooted at dir and eagerly loads the given
// version, failing loudly if any rubric item or level is missing.
func NewLoader(dir, version string, logger zerolog.Logger) (*Loader, error) {
	l := &Loader{
		dir:    dir,
		logger: logger.With().Str("component", "prompt_loader").Logger(),
		cache:  make(map[string]map[string]map[models.Level]string),
	}

	if err := l.loadVersion(version); err != nil {
		return nil, err
	}

	return l, nil
}

// Load returns the prompt text for a rubric item at the given version and
// level. A missing version or level aborts the request rather than falling
// back to another version.
func (l *Loader) Load(item, version string, level models.Level) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items, ok := l.cache[version]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}

	levels, ok := items[item]
	if !ok {
		return "", fmt.Errorf("%w: item %q in version %s", ErrPromptNotFound, item, version)
	}

	text, ok := levels[level]
	if !ok {
		return "", fmt.Errorf("%w: level %q for item %q in version %s", ErrPromptNotFound, level, item, version)
	}

	return text, nil
}

// Reload re-reads every loaded version from disk. On error the previous cache
// is kept untouched.
func (l *Loader) Reload() error {
	l.mu.RLock()
	versions := make([]string, 0, len(l.cache))
	for version := range l.cache {
		versions = append(versions, version)
	}
	l.mu.RUnlock()

	for _, version := range versions {
		if err := l.loadVersion(version); err != nil {
			return err
		}
	}

	l.logger.Info().Strs("versions", versions).Msg("prompts reloaded")
	return nil
}

// Versions returns the versions currently held in the cache.
func (l *Loader) Versions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	versions := make([]string, 0, len(l.cache))
	for version := range l.cache {
		versions = append(versions, version)
	}
	return versions
}

func (l *Loader) loadVersion(version string) error {
	versionDir := filepath.Join(l.dir, version)
	if info, err := os.Stat(versionDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, versionDir)
	}

	loaded := make(map[string]map[models.Level]string, len(rubricItems))
	for _, item := range rubricItems {
		path := filepath.Join(versionDir, item+".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPromptNotFound, path)
		}

		var byLevel map[models.Level]string
		if err := json.Unmarshal(raw, &byLevel); err != nil {
			return fmt.Errorf("parse prompt file %s: %w", path, err)
		}

		for _, level := range models.Levels {
			if _, ok := byLevel[level]; !ok {
				return fmt.Errorf("%w: level %q missing in %s", ErrPromptNotFound, level, path)
			}
		}

		loaded[item] = byLevel
	}

	l.mu.Lock()
	l.cache[version] = loaded
	l.mu.Unlock()

	return nil
}
