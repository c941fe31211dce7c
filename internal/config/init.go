package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the config file written by Init.
const DefaultFileName = ".autodocs.yaml"

// ErrConfigExists is returned by Init when a config file is already present.
var ErrConfigExists = errors.New("configuration file already exists")

// Init writes the default configuration into dir and lists it in the
// directory's .gitignore, since the file may later hold an API key. An
// existing file is only replaced when force is set.
func Init(dir string, force bool) (string, error) {
	path := filepath.Join(dir, DefaultFileName)
	if !force {
		if existing := discover(dir); existing != "" {
			return existing, ErrConfigExists
		}
	}

	if err := Save(path, Default()); err != nil {
		return "", err
	}
	if err := ensureIgnored(filepath.Join(dir, ".gitignore"), DefaultFileName); err != nil {
		return path, fmt.Errorf("updating .gitignore: %w", err)
	}
	return path, nil
}

func ensureIgnored(gitignore, entry string) error {
	data, err := os.ReadFile(gitignore)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(gitignore, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + entry + "\n")
	return err
}
