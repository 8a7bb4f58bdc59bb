// Package config loads waitmate's YAML configuration file and overlays
// it with WAITMATE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every setting waitmate's CLI and coordinator need.
type Config struct {
	DataDir   string `yaml:"dataDir"`
	Ephemeral bool   `yaml:"ephemeral"`
	ZMQListen string `yaml:"zmqListen"`
	ZMQConnect string `yaml:"zmqConnect"`
	HTTPListen string `yaml:"httpListen"`
	LogLevel  string `yaml:"logLevel"`
	LogJSON   bool   `yaml:"logJSON"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads path (if non-empty) as YAML into a Config seeded from
// Default, then overlays any matching WAITMATE_* environment variables.
// An empty path is not an error; only read and parse failures are, and a
// non-empty path naming a file that does not exist is a read failure.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	overlayEnv(&cfg, "WAITMATE_")
	return cfg, nil
}

// overlayEnv walks cfg's exported fields and, for each one whose yaml tag
// (or field name) has a matching WAITMATE_<NAME> environment variable set,
// overwrites the field with the parsed environment value. This is the
// reflection-based stand-in for a prefix-scoped environment merge.
func overlayEnv(cfg *Config, prefix string) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.ToUpper(field.Tag.Get("yaml"))
		if name == "" {
			name = strings.ToUpper(field.Name)
		}

		raw, ok := os.LookupEnv(prefix + name)
		if !ok {
			continue
		}

		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.String:
			fv.SetString(raw)
		case reflect.Bool:
			if b, err := strconv.ParseBool(raw); err == nil {
				fv.SetBool(b)
			}
		}
	}
}
