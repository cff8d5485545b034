// Package config loads the runtime's configuration: environment variables
// as the primary source, with defaults for everything, and an optional
// config.yaml overlay. It also derives the host instance id that feeds the
// Application IRI.
package config

import (
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nrua/urdf-core/internal/urdferr"
)

// Graph ids for the five named graphs (§3 "Lifecycle").
const (
	DefaultOntologyGraph    = "urn:nrua:ontology"
	DefaultRulesGraph       = "urn:nrua:rules"
	DefaultApplicationGraph = "urn:nrua:application"
	DefaultEnvironmentGraph = "urn:nrua:environment"
	DefaultInferredGraph    = "urn:nrua:inferred"
)

// instanceNamespace seeds the UUIDv5 fallback for the host instance id, so
// a deployment that never sets NRUA_INSTANCE_ID still gets a stable,
// working-directory-derived Application IRI across restarts.
var instanceNamespace = uuid.MustParse("6f5e3b0a-6d1a-4e7a-9f3e-2a6c9b6e6a10")

// Config is the fully resolved runtime configuration.
type Config struct {
	DictionaryPath string `yaml:"dictionaryPath"`
	OntologyPath   string `yaml:"ontologyPath"`
	RulesPath      string `yaml:"rulesPath"`

	OntologyGraph    string `yaml:"ontologyGraph"`
	RulesGraph       string `yaml:"rulesGraph"`
	ApplicationGraph string `yaml:"applicationGraph"`
	EnvironmentGraph string `yaml:"environmentGraph"`
	InferredGraph    string `yaml:"inferredGraph"`

	InstanceID string `yaml:"instanceId"`

	DebounceWindow time.Duration `yaml:"debounceWindow"`
	AdminRetries   int           `yaml:"adminRetries"`
	AdminRetryWait time.Duration `yaml:"adminRetryWait"`

	HTTPAddr      string `yaml:"httpAddr"`
	HostAdminURL  string `yaml:"hostAdminUrl"`
	Verbose       bool   `yaml:"verbose"`
}

// Default returns the configuration every field falls back to absent any
// environment variable or config.yaml override.
func Default() *Config {
	return &Config{
		OntologyGraph:    DefaultOntologyGraph,
		RulesGraph:       DefaultRulesGraph,
		ApplicationGraph: DefaultApplicationGraph,
		EnvironmentGraph: DefaultEnvironmentGraph,
		InferredGraph:    DefaultInferredGraph,
		DebounceWindow:   250 * time.Millisecond,
		AdminRetries:     30,
		AdminRetryWait:   time.Second,
		HTTPAddr:         ":1880",
		HostAdminURL:     "http://127.0.0.1:1880",
	}
}

// Load builds the Config: defaults, overlaid by yamlPath (if it exists),
// overlaid by environment variables (the primary source per §6
// "Configuration (environment variables)"). A missing yamlPath is skipped;
// a malformed one makes Load return a ConfigError, which cmd/urdfd treats
// as fatal.
func Load(yamlPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if raw, err := os.ReadFile(yamlPath); err == nil {
			if yerr := yaml.Unmarshal(raw, cfg); yerr != nil {
				return cfg, urdferr.Wrap(urdferr.KindConfig, "malformed config.yaml at "+yamlPath, yerr)
			}
		}
	}

	applyEnv(cfg)

	if cfg.InstanceID == "" {
		cfg.InstanceID = deriveInstanceID()
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("NRUA_DICTIONARY_PATH", &cfg.DictionaryPath)
	str("NRUA_ONTOLOGY_PATH", &cfg.OntologyPath)
	str("NRUA_RULES_PATH", &cfg.RulesPath)
	str("NRUA_ONTOLOGY_GRAPH", &cfg.OntologyGraph)
	str("NRUA_RULES_GRAPH", &cfg.RulesGraph)
	str("NRUA_APPLICATION_GRAPH", &cfg.ApplicationGraph)
	str("NRUA_ENVIRONMENT_GRAPH", &cfg.EnvironmentGraph)
	str("NRUA_INFERRED_GRAPH", &cfg.InferredGraph)
	str("NRUA_INSTANCE_ID", &cfg.InstanceID)
	str("NRUA_HTTP_ADDR", &cfg.HTTPAddr)
	str("NRUA_HOST_ADMIN_URL", &cfg.HostAdminURL)
	dur("NRUA_DEBOUNCE_WINDOW", &cfg.DebounceWindow)
	dur("NRUA_ADMIN_RETRY_WAIT", &cfg.AdminRetryWait)

	if os.Getenv("NRUA_VERBOSE") != "" {
		cfg.Verbose = true
	}
}

// deriveInstanceID builds a stable fallback instance id from the process's
// working directory via UUIDv5, so repeated runs against the same
// deployment directory reuse the same Application IRI without operator
// configuration.
func deriveInstanceID() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "unknown"
	}
	return uuid.NewSHA1(instanceNamespace, []byte(wd)).String()
}
