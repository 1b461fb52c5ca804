// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key and the trimmed
// contents are the value.
//
// Supported keys: api-token (bearer token for the entity API).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// APIToken is the key of the entity API bearer token.
const APIToken = "api-token"

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads every file in dir. A missing directory is not an error and
// yields no secrets. Unreadable files are logged and skipped.
func Load(dir string, log *logger.Logger) (Secrets, error) {
	log = logger.OrNop(log).Component("secrets")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := Secrets{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// ApplyTo fills credentials in cfg that are not already set.
func (s Secrets) ApplyTo(cfg *types.BackendConfig) {
	if cfg.Token == "" {
		cfg.Token = s[APIToken]
	}
}
