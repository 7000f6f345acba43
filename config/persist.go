package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/propscout/propscout/errors"
)

// Output formats for Render.
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render encodes the effective settings as nested TOML, JSON or YAML.
func (r *Result) Render(format string) ([]byte, error) {
	settings := r.Viper.AllSettings()
	switch strings.ToLower(format) {
	case "", FormatTOML:
		return toml.Marshal(settings)
	case FormatJSON:
		return json.MarshalIndent(settings, "", "  ")
	case FormatYAML:
		return yaml.Marshal(settings)
	default:
		return nil, errors.Newf("unknown format %q (valid: toml, json, yaml)", format)
	}
}

// Set writes one dotted key into the TOML file at path, creating the file
// and its directory when needed. The previous file is kept as rotating
// backups (.back1 to .back3). The result is validated before it is written.
func Set(path, key string, value interface{}) error {
	if !isKnownKey(key) {
		return errors.WithHint(errors.Newf("unknown config key %q", key),
			"run 'propscout config show --sources' to list keys")
	}

	doc := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	setNested(doc, strings.Split(key, "."), value)

	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	tmp, err := os.CreateTemp("", "propscout-*.toml")
	if err != nil {
		return errors.Wrap(err, "failed to stage config")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to stage config")
	}
	tmp.Close()
	cfg, err := LoadFromFile(tmp.Name())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "refusing to write %s", key)
	}

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if w := GlobalWatcher(); w != nil {
		w.MarkOwnWrite()
	}
	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func setNested(doc map[string]interface{}, parts []string, value interface{}) {
	for _, p := range parts[:len(parts)-1] {
		next, ok := doc[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			doc[p] = next
		}
		doc = next
	}
	doc[parts[len(parts)-1]] = value
}

func isKnownKey(key string) bool {
	v := viper.New()
	SetDefaults(v)
	return v.IsSet(strings.ToLower(key))
}

// ParseValue converts a command-line string to the TOML type it looks like.
func ParseValue(raw string) interface{} {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// createBackup rotates .back1 -> .back2 -> .back3 and copies the current file
// to .back1.
func createBackup(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	back1, back2, back3 := path+".back1", path+".back2", path+".back3"
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete old backup %s", back3)
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".back1" || ext == ".back2" || ext == ".back3"
}
