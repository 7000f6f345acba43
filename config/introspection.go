package config

import "fmt"

// Source is where a configuration value came from.
type Source string

const (
	SourceDefault     Source = "default"
	SourceUser        Source = "user"        // ~/.propscout/config.toml
	SourceProject     Source = "project"     // propscout.toml
	SourceFile        Source = "file"        // --config
	SourceEnvironment Source = "environment" // PROPSCOUT_*
)

// SourceInfo records the origin of one key.
type SourceInfo struct {
	Source Source `json:"source" yaml:"source"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"` // file path or env var name
}

// SettingInfo is one effective setting with its origin.
type SettingInfo struct {
	Key        string      `json:"key" yaml:"key"`
	Value      interface{} `json:"value" yaml:"value"`
	Source     Source      `json:"source" yaml:"source"`
	SourcePath string      `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// Settings lists every effective setting, sorted by key.
func (r *Result) Settings() []SettingInfo {
	out := make([]SettingInfo, 0, len(r.Sources))
	for _, key := range r.Keys() {
		src, ok := r.Sources[key]
		if !ok {
			src = SourceInfo{Source: SourceDefault}
		}
		out = append(out, SettingInfo{
			Key:        key,
			Value:      r.Viper.Get(key),
			Source:     src.Source,
			SourcePath: src.Path,
		})
	}
	return out
}

// Get returns one effective value and whether the key exists.
func (r *Result) Get(key string) (interface{}, bool) {
	if !r.Viper.IsSet(key) {
		return nil, false
	}
	return r.Viper.Get(key), true
}

// Describe formats where key came from, e.g. "project (/src/propscout.toml)".
func (r *Result) Describe(key string) string {
	src, ok := r.Sources[key]
	if !ok {
		return string(SourceDefault)
	}
	if src.Path == "" {
		return string(src.Source)
	}
	return fmt.Sprintf("%s (%s)", src.Source, src.Path)
}
