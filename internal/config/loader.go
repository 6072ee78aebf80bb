package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names probed in the working directory when no explicit path
// is given.
const (
	ConfigFileName    = "bdc.yaml"
	ConfigFileNameAlt = "bdc.yml"
)

// findConfigFile picks the config file to use.
// Priority: explicit path > bdc.yaml > bdc.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, when present.
	fileUsed := findConfigFile(cfgFile)
	if fileUsed != "" {
		if err := k.Load(file.Provider(fileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", fileUsed, err)
		}
	}

	// 3. Environment variables with the BDC_ prefix.
	// BDC_LISTEN_ADDR -> listen_addr; a double underscore nests, so
	// BDC_OPENAI__API_KEY -> openai.api_key.
	if err := k.Load(env.Provider("BDC_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "BDC_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, highest priority. Only flags the user actually set are
	// loaded; kebab-case names map to snake_case keys.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// Short flag names bridge to their nested or longer config keys.
			switch key {
			case "addr":
				key = "listen_addr"
			case "db":
				key = "warehouse.path"
			case "history":
				key = "history_path"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = fileUsed

	// Secrets may be written as ${VAR} references; resolve them and blank
	// out anything that stayed unresolved so a template never leaks into a
	// connection string or auth header.
	cfg.OpenAI.APIKey = expandSecret(cfg.OpenAI.APIKey)
	cfg.Warehouse.MotherDuckToken = expandSecret(cfg.Warehouse.MotherDuckToken)
	cfg.Warehouse.DSN = expandEnvVars(cfg.Warehouse.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values,
// leaving unknown references untouched.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// expandSecret expands ${VAR} references and maps a value that is still a
// bare unresolved reference to empty.
func expandSecret(s string) string {
	expanded := expandEnvVars(s)
	if envVarPattern.MatchString(expanded) {
		return ""
	}
	return expanded
}
