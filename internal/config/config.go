// Package config handles binge.toml discovery, parsing, and resolution of
// the install directory, API token, and pipeline concurrency.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConcurrency bounds parallel target pipelines when the config does
// not say otherwise.
const DefaultConcurrency = 4

// Config is the parsed binge.toml. Every field is optional; zero values
// fall back to the resolution rules below.
type Config struct {
	// InstallDir is where binaries are placed. Accepts ~ expansion.
	InstallDir string `toml:"install_dir"`
	// TokenFile points at a file whose trimmed contents are used as the
	// GitHub token when $GITHUB_TOKEN is unset.
	TokenFile string `toml:"token_file"`
	// Concurrency caps parallel target pipelines (1..32).
	Concurrency int `toml:"concurrency"`
}

// FindConfig returns the path to load and whether the file must exist. An
// explicitly requested path (flag or $BINGE_CONFIG) is required; the
// standard XDG location is optional.
func FindConfig(explicitPath string) (path string, required bool, err error) {
	if explicitPath != "" {
		return explicitPath, true, nil
	}
	if env := os.Getenv("BINGE_CONFIG"); env != "" {
		return env, true, nil
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, fmt.Errorf("locating config: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "binge", "binge.toml"), false, nil
}

// Load reads and validates the configuration. A missing file at the
// standard location yields the zero config; a missing explicit path is an
// error.
func Load(explicitPath string) (*Config, error) {
	path, required, err := FindConfig(explicitPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var c Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parsing config %s:%d:%d: %s", path, row, col, derr.Error())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("parsing config %s: unknown keys:\n%s", path, serr.String())
		}
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := Validate(&c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

// ResolveInstallDir returns the directory binaries are installed into. An
// explicit install_dir wins. Otherwise the first $PATH entry whose last
// two components are .local/bin is used, then the first existing $PATH
// directory under $HOME.
func (c *Config) ResolveInstallDir() (string, error) {
	if c.InstallDir != "" {
		return expandTilde(c.InstallDir)
	}

	entries := filepath.SplitList(os.Getenv("PATH"))
	for _, dir := range entries {
		if filepath.Base(dir) == "bin" && filepath.Base(filepath.Dir(dir)) == ".local" {
			return dir, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		prefix := home + string(os.PathSeparator)
		for _, dir := range entries {
			if !strings.HasPrefix(dir, prefix) {
				continue
			}
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir, nil
			}
		}
	}

	return "", errors.New("no suitable install directory found in $PATH; create ~/.local/bin and add it to $PATH, or set install_dir in binge.toml")
}

// ResolveToken returns the GitHub API token, if any. $GITHUB_TOKEN wins
// over token_file. Having neither is not an error, only a lower rate
// limit.
func (c *Config) ResolveToken() (string, error) {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok, nil
	}
	if c.TokenFile == "" {
		return "", nil
	}

	path, err := expandTilde(c.TokenFile)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token_file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ResolveConcurrency returns the configured pipeline parallelism or the
// default.
func (c *Config) ResolveConcurrency() int {
	if c.Concurrency == 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

func expandTilde(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", p, err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}
