package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"skillgap/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets are KVv2 paths. An empty path is skipped.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`   // key "keys", comma-separated server API keys
	GeminiKey string `mapstructure:"geminiKey"` // key "api_key"
	TaggerKey string `mapstructure:"taggerKey"` // key "token", bearer token for the skill tagger
}

// secretReader is the part of the Vault API the loader needs; *api.Logical satisfies it
type secretReader interface {
	Read(path string) (*api.Secret, error)
}

// kvSecret is one KVv2 entry
type kvSecret struct {
	data    map[string]any
	version int64
}

// ApplyVaultSecrets overlays credentials stored in Vault onto config.
// It is a no-op when Vault is disabled.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil
	}

	client, err := connectVault(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client.Logical(), config, logger)
}

func connectVault(cfg VaultConfig, logger *errors.Logger) (*api.Client, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", apiCfg.Address, err)
	}
	if health.Sealed {
		return nil, fmt.Errorf("vault at %s is sealed", apiCfg.Address)
	}

	if logger != nil {
		logger.Info("Connected to Vault",
			"address", apiCfg.Address,
			"namespace", cfg.Namespace,
			"version", health.Version)
	}
	return client, nil
}

// resolveVaultToken prefers the configured token and falls back to the token file
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// secretTarget maps one Vault entry onto the config
type secretTarget struct {
	name  string
	path  string
	key   string
	apply func(config *Config, value string) int
}

func secretTargets(secrets VaultSecrets) []secretTarget {
	return []secretTarget{
		{name: "API keys", path: secrets.APIKeys, key: "keys", apply: applyAPIKeysToConfig},
		{name: "Gemini API key", path: secrets.GeminiKey, key: "api_key", apply: applyGeminiKeyToConfig},
		{name: "tagger token", path: secrets.TaggerKey, key: "token", apply: applyTaggerKeyToConfig},
	}
}

func applySecrets(reader secretReader, config *Config, logger *errors.Logger) error {
	for _, target := range secretTargets(config.Vault.Secrets) {
		if target.path == "" {
			continue
		}

		secret, err := readKV(reader, target.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", target.name, err)
		}
		value, ok := secret.data[target.key].(string)
		if !ok {
			return fmt.Errorf("failed to load %s from vault: key %q missing or not a string at %s",
				target.name, target.key, target.path)
		}

		applied := target.apply(config, value)
		if logger == nil {
			continue
		}
		if applied == 0 {
			logger.Warn("Empty secret found in Vault", "secret", target.name, "path", target.path)
		} else {
			logger.Info("Secret loaded from Vault",
				"secret", target.name,
				"version", secret.version,
				"count", applied)
		}
	}
	return nil
}

// readKV reads a KVv2 entry: the payload lives under "data" and the version under "metadata"
func readKV(reader secretReader, path string) (kvSecret, error) {
	raw, err := reader.Read(path)
	if err != nil {
		return kvSecret{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return kvSecret{}, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := raw.Data["data"].(map[string]any)
	if !ok {
		return kvSecret{}, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	secret := kvSecret{data: data}
	if meta, ok := raw.Data["metadata"].(map[string]any); ok {
		if secret.version, err = kvVersion(meta["version"]); err != nil {
			return kvSecret{}, fmt.Errorf("secret at %s: %w", path, err)
		}
	}
	return secret, nil
}

// kvVersion accepts the numeric encodings the Vault client produces
func kvVersion(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected version type %T", v)
	}
}

// applyAPIKeysToConfig replaces the server API keys with a comma-separated list
func applyAPIKeysToConfig(config *Config, value string) int {
	keys := splitAndTrim(value)
	if len(keys) == 0 {
		return 0
	}
	config.Server.APIKeys = keys
	return len(keys)
}

// applyGeminiKeyToConfig sets the global key and every operation key that is still empty
func applyGeminiKeyToConfig(config *Config, geminiKey string) int {
	geminiKey = strings.TrimSpace(geminiKey)
	if geminiKey == "" {
		return 0
	}
	config.AI.APIKey = geminiKey
	for _, op := range []*OperationAIConfig{&config.AI.Refine, &config.AI.Coach} {
		if op.APIKey == "" {
			op.APIKey = geminiKey
		}
	}
	return 1
}

func applyTaggerKeyToConfig(config *Config, token string) int {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}
	config.Extraction.Tagger.APIKey = token
	return 1
}
