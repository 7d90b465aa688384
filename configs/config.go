package configs

import (
	"os"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chain    ChainConfig
	Sweep    SweepConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string
}

// ChainConfig holds on-chain read configuration. RPCURL empty means
// on-chain balance reads are disabled.
type ChainConfig struct {
	RPCURL     string
	VaultToken string
	LPPools    []string
}

// SweepConfig holds the auto-compound sweep schedule
type SweepConfig struct {
	CronSpec string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Chain: ChainConfig{
			RPCURL:     getEnv("CHAIN_RPC_URL", ""),
			VaultToken: getEnv("VAULT_TOKEN_ADDRESS", ""),
			LPPools:    splitList(getEnv("LP_POOL_ADDRESSES", "")),
		},
		Sweep: SweepConfig{
			CronSpec: getEnv("COMPOUND_CRON", "0 * * * *"),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma-separated env value into trimmed entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
