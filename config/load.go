package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/propscout/propscout/errors"
)

// Options control where Load looks for files. Zero values use the process
// environment.
type Options struct {
	// ConfigFile is an explicit file (--config); it has the highest file precedence.
	ConfigFile string
	HomeDir    string
	WorkDir    string
}

// Result is a loaded configuration together with its provenance.
type Result struct {
	Config *Config
	Viper  *viper.Viper
	// Files lists the merged files, lowest precedence first.
	Files   []string
	Sources map[string]SourceInfo
}

// Load reads configuration in precedence order:
// defaults < ~/.propscout/config.toml < propscout.toml (searched upward) <
// --config file < PROPSCOUT_* environment variables.
func Load(opts Options) (*Result, error) {
	opts = opts.withDefaults()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	res := &Result{Viper: v, Sources: make(map[string]SourceInfo)}
	for _, key := range v.AllKeys() {
		res.Sources[key] = SourceInfo{Source: SourceDefault}
	}

	candidates := []struct {
		path     string
		source   Source
		required bool
	}{
		{userConfigPath(opts.HomeDir), SourceUser, false},
		{findProjectConfig(opts.WorkDir), SourceProject, false},
		{opts.ConfigFile, SourceFile, true},
	}
	for _, c := range candidates {
		if c.path == "" {
			continue
		}
		if _, err := os.Stat(c.path); err != nil {
			if c.required {
				return nil, errors.WithHint(errors.Wrapf(err, "config file %s", c.path),
					"check the --config path")
			}
			continue
		}
		if err := mergeFile(v, c.path, c.source, res.Sources); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, c.path)
	}

	for _, key := range v.AllKeys() {
		name := EnvName(key)
		if _, ok := os.LookupEnv(name); ok {
			res.Sources[key] = SourceInfo{Source: SourceEnvironment, Path: name}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(err, "run 'propscout config where' to see which files are loaded")
	}
	res.Config = &cfg
	return res, nil
}

// LoadFromFile loads defaults plus a single file, ignoring the cascade and
// environment.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", path)
	}
	return &cfg, nil
}

// EnvName returns the environment variable for a dotted key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// UserDir returns ~/.propscout, or "" when the home directory is unknown.
func UserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".propscout")
}

// UserFile returns ~/.propscout/config.toml, or "" when the home directory
// is unknown.
func UserFile() string {
	home, _ := os.UserHomeDir()
	return userConfigPath(home)
}

// ProjectFile returns the nearest propscout.toml above dir, or "".
func ProjectFile(dir string) string {
	return findProjectConfig(dir)
}

// Keys returns every known key in sorted order.
func (r *Result) Keys() []string {
	keys := r.Viper.AllKeys()
	sort.Strings(keys)
	return keys
}

func (o Options) withDefaults() Options {
	if o.HomeDir == "" {
		o.HomeDir, _ = os.UserHomeDir()
	}
	if o.WorkDir == "" {
		o.WorkDir, _ = os.Getwd()
	}
	return o
}

func userConfigPath(home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".propscout", "config.toml")
}

// mergeFile merges one TOML file below the environment layer and records
// which keys it set.
func mergeFile(v *viper.Viper, path string, source Source, sources map[string]SourceInfo) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open config file %s", path)
	}
	defer f.Close()

	tmp := viper.New()
	tmp.SetConfigType("toml")
	if err := tmp.ReadConfig(f); err != nil {
		return errors.WithHint(errors.Wrapf(err, "failed to parse config file %s", path),
			"the file must be valid TOML")
	}
	if err := v.MergeConfigMap(tmp.AllSettings()); err != nil {
		return errors.Wrapf(err, "failed to merge config file %s", path)
	}
	for _, key := range tmp.AllKeys() {
		sources[key] = SourceInfo{Source: source, Path: path}
	}
	return nil
}

// findProjectConfig walks up from dir looking for propscout.toml.
func findProjectConfig(dir string) string {
	if dir == "" {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
