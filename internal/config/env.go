package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// envVarPatterns mirrors hector's config/env.go: three forms, most specific
// first so ${VAR:-default} isn't swallowed by the bare ${VAR} pattern.
var envVarPatterns = struct {
	withDefault *regexp.Regexp
	braced      *regexp.Regexp
	simple      *regexp.Regexp
}{
	withDefault: regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`),
}

// expandEnvVars expands ${VAR:-default}, ${VAR} and $VAR references against
// the process environment.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	s = envVarPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.withDefault.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envVarPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.braced.FindStringSubmatch(match)
		if len(parts) != 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
	s = envVarPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.simple.FindStringSubmatch(match)
		if len(parts) != 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
	return s
}

// expandEnvVarsInConfig walks the handful of string fields a Config can
// source secrets into (provider API keys, the controller's JWT secret) and
// expands environment references in place, matching hector's
// ExpandEnvVarsInData but narrowed to Config's known shape rather than a
// generic map[string]interface{} walk over raw YAML.
func expandEnvVarsInConfig(c *Config) {
	for name, p := range c.Providers {
		p.APIKey = expandEnvVars(p.APIKey)
		p.BaseURL = expandEnvVars(p.BaseURL)
		c.Providers[name] = p
	}
	c.Controller.JWTSecret = expandEnvVars(c.Controller.JWTSecret)
	c.Observability.OTLPEndpoint = expandEnvVars(c.Observability.OTLPEndpoint)
}

// LoadEnvFiles loads .env.local then .env into the process environment,
// highest priority first (godotenv.Load never overwrites vars already set),
// matching hector's config/env.go LoadEnvFiles search order.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
