package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	// Note: API key fallbacks are handled in Get...Config() methods

	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv(envPrefix + "_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// secretEnvMarkers flag environment variables whose values are never logged
var secretEnvMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD"}

// logConfigurationSources prints which file and SKILLGAP_ variables shaped the config
func (c *Config) logConfigurationSources(configFileUsed string) {
	source := configFileUsed
	if source == "" {
		source = "none (defaults and environment)"
	}
	log.Printf("[CONFIG] config file: %s", source)

	var envVars []string
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, envPrefix+"_") || value == "" {
			continue
		}
		if isSecretEnv(name) {
			value = "***MASKED***"
		}
		envVars = append(envVars, name+"="+value)
	}
	sort.Strings(envVars)
	if len(envVars) == 0 {
		log.Println("[CONFIG] environment: no SKILLGAP_ variables set")
	}
	for _, env := range envVars {
		log.Printf("[CONFIG] environment: %s", env)
	}

	for _, kv := range c.summary() {
		log.Printf("[CONFIG] %-22s %v", kv[0].(string)+":", kv[1])
	}
}

func isSecretEnv(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range secretEnvMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// summary lists the effective settings worth seeing at startup; secrets appear only as set/unset
func (c *Config) summary() [][2]any {
	return [][2]any{
		{"ai", c.AI.Provider + "/" + c.AI.Model},
		{"ai key", configuredOrNot(c.AI.APIKey)},
		{"refine", c.AI.Refine.Provider + "/" + c.AI.Refine.Model},
		{"coach", c.AI.Coach.Provider + "/" + c.AI.Coach.Model},
		{"postings", c.Data.PostingsFile},
		{"taxonomy", c.Data.TaxonomyFile},
		{"tagger", c.Extraction.Tagger.Enabled},
		{"listen", c.Server.Host + ":" + c.Server.Port},
		{"log level", c.App.LogLevel},
		{"vault", c.Vault.Enabled},
		{"observability", c.Observability.Enabled},
	}
}

func configuredOrNot(secret string) string {
	if secret == "" {
		return "not set"
	}
	return "configured"
}
