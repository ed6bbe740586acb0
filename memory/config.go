package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultExtensions are the document types a store holds when none are
// configured.
var DefaultExtensions = []string{".md", ".txt"}

// Config holds instruction memory settings.
type Config struct {
	// Path is the document root. Empty disables memory.
	Path string `json:"path,omitempty" yaml:"path,omitempty" split_words:"true"`
	// Extensions lists the file types treated as documents.
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty" split_words:"true"`
	// Create makes the root directory when it does not exist.
	Create bool `json:"create,omitempty" yaml:"create,omitempty" split_words:"true"`
}

// DefaultConfig returns a disabled memory configuration.
func DefaultConfig() Config {
	return Config{Extensions: DefaultExtensions}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if len(source.Extensions) > 0 {
		c.Extensions = source.Extensions
	}
	if source.Create {
		c.Create = true
	}
}

// NewStore opens the FileStore described by cfg. A nil Store with a nil
// error means memory is disabled.
func NewStore(cfg *Config) (Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	info, err := os.Stat(cfg.Path)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, cfg.Path)
	case errors.Is(err, fs.ErrNotExist) && cfg.Create:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidRoot, cfg.Path)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	return NewFileStore(cfg.Path, cfg.Extensions...), nil
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
