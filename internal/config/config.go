package config

import (
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"transit_feed_proxy/internal/headers"
	"transit_feed_proxy/internal/policy"
	"transit_feed_proxy/internal/runtime"
)

type Config struct {
	ListenAddr         string         `yaml:"listen_addr"`
	PublicRequestorRef string         `yaml:"public_requestor_ref"`
	AllowedHeaders     []string       `yaml:"allowed_headers"`
	Limits             LimitsConfig   `yaml:"limits"`
	Shutdown           ShutdownConfig `yaml:"shutdown"`
	Resources          []Resource     `yaml:"resources"`
}

type Resource struct {
	ID                      string            `yaml:"id"`
	Kind                    string            `yaml:"kind"`
	TargetURL               string            `yaml:"target_url"`
	TTLSeconds              int               `yaml:"ttl_seconds"`
	RequestHeaders          map[string]string `yaml:"request_headers"`
	ResponseHeaderOverrides map[string]string `yaml:"response_header_overrides"`
	RequestorRef            string            `yaml:"requestor_ref"`
}

type LimitsConfig struct {
	MaxHeaderBytes      int `yaml:"max_header_bytes"`
	MaxSiriBodyBytes    int `yaml:"max_siri_body_bytes"`
	ReadHeaderTimeoutMS int `yaml:"read_header_timeout_ms"`
	ReadTimeoutMS       int `yaml:"read_timeout_ms"`
	WriteTimeoutMS      int `yaml:"write_timeout_ms"`
	IdleTimeoutMS       int `yaml:"idle_timeout_ms"`
}

type ShutdownConfig struct {
	DrainMS           int `yaml:"drain_ms"`
	GracefulTimeoutMS int `yaml:"graceful_timeout_ms"`
	ForceCloseMS      int `yaml:"force_close_ms"`
}

func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	if _, err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildSnapshot compiles a validated config into an immutable resolver
// snapshot. Each call mints a fresh version.
func BuildSnapshot(cfg *Config, source string) (*runtime.Snapshot, error) {
	if _, err := Validate(cfg); err != nil {
		return nil, err
	}

	resources := make(map[string]policy.Resource, len(cfg.Resources))
	for _, res := range cfg.Resources {
		resources[res.ID] = policy.Resource{
			ID:                res.ID,
			Kind:              policy.Kind(res.Kind),
			TargetURL:         res.TargetURL,
			RequestHeaders:    headers.FromMap(res.RequestHeaders),
			TTL:               time.Duration(res.TTLSeconds) * time.Second,
			ResponseOverrides: headers.FromMap(res.ResponseHeaderOverrides).Lowercase(),
			RequestorRef:      res.RequestorRef,
		}
	}

	return &runtime.Snapshot{
		Resources: resources,
		Version:   uuid.NewString(),
		CreatedAt: time.Now(),
		Source:    source,
	}, nil
}

// Allowlist returns the configured response header allow-list, falling
// back to the default set.
func (c *Config) Allowlist() map[string]struct{} {
	if c == nil || len(c.AllowedHeaders) == 0 {
		return headers.DefaultAllowlist()
	}
	return headers.Allowlist(c.AllowedHeaders)
}
