package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"transit_feed_proxy/internal/policy"
)

// Validate checks a parsed config and returns non-fatal warnings alongside
// the first hard error.
func Validate(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	warnings := []string{}
	if err := validateLimits(cfg); err != nil {
		return warnings, err
	}
	if err := validateResources(cfg, &warnings); err != nil {
		return warnings, err
	}
	return warnings, nil
}

func validateLimits(cfg *Config) error {
	if cfg.Limits.MaxHeaderBytes < 0 {
		return errors.New("limits.max_header_bytes must be non-negative")
	}
	if cfg.Limits.MaxSiriBodyBytes < 0 {
		return errors.New("limits.max_siri_body_bytes must be non-negative")
	}
	if cfg.Limits.ReadHeaderTimeoutMS < 0 {
		return errors.New("limits.read_header_timeout_ms must be non-negative")
	}
	return nil
}

func validateResources(cfg *Config, warnings *[]string) error {
	seen := make(map[string]bool, len(cfg.Resources))
	siriConfigured := false
	for _, res := range cfg.Resources {
		id := strings.TrimSpace(res.ID)
		if id == "" {
			return errors.New("resource id must not be empty")
		}
		if seen[id] {
			return fmt.Errorf("resource %q declared more than once", id)
		}
		seen[id] = true

		if err := validateTargetURL(res); err != nil {
			return err
		}

		switch policy.Kind(res.Kind) {
		case policy.KindHTTP:
			if res.TTLSeconds < 0 {
				return fmt.Errorf("resource %q ttl_seconds must be non-negative", id)
			}
			if time.Duration(res.TTLSeconds)*time.Second > time.Hour {
				*warnings = append(*warnings, fmt.Sprintf("resource %q ttl_seconds exceeds 1h", id))
			}
			if res.RequestorRef != "" {
				return fmt.Errorf("resource %q is kind http and must not set requestor_ref", id)
			}
		case policy.KindSIRI:
			siriConfigured = true
			if strings.TrimSpace(res.RequestorRef) == "" {
				return fmt.Errorf("resource %q is kind siri and must set requestor_ref", id)
			}
			if res.TTLSeconds != 0 {
				return fmt.Errorf("resource %q is kind siri and must not set ttl_seconds", id)
			}
			if len(res.ResponseHeaderOverrides) != 0 {
				return fmt.Errorf("resource %q is kind siri and must not set response_header_overrides", id)
			}
		default:
			return fmt.Errorf("resource %q has unknown kind %q", id, res.Kind)
		}
	}

	if siriConfigured && strings.TrimSpace(cfg.PublicRequestorRef) == "" {
		return errors.New("public_requestor_ref required when siri resources are configured")
	}
	return nil
}

func validateTargetURL(res Resource) error {
	target := strings.TrimSpace(res.TargetURL)
	if target == "" {
		return fmt.Errorf("resource %q target_url must not be empty", res.ID)
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("resource %q target_url invalid: %v", res.ID, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("resource %q target_url must be http or https", res.ID)
	}
	if parsed.Host == "" {
		return fmt.Errorf("resource %q target_url missing host", res.ID)
	}
	return nil
}
