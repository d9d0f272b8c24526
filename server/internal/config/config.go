package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Cipher CipherConfig
	KDF    KDFConfig
}

// ServerConfig holds gateway configuration
type ServerConfig struct {
	Port int
	Host string
}

// CipherConfig holds the defaults for requests that leave them out
type CipherConfig struct {
	Algorithm string
	Mode      string
	Padding   string
	Workers   int   // 0 means GOMAXPROCS
	MaxBody   int64 // largest request body the gateway accepts
}

// KDFConfig holds passphrase key derivation settings
type KDFConfig struct {
	Iterations int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("GATEWAY_HOST", "0.0.0.0"),
			Port: getEnvInt("GATEWAY_PORT", 8080),
		},
		Cipher: CipherConfig{
			Algorithm: getEnv("CIPHER_ALGORITHM", "RC6"),
			Mode:      getEnv("CIPHER_MODE", "CBC"),
			Padding:   getEnv("CIPHER_PADDING", "PKCS7"),
			Workers:   getEnvInt("CIPHER_WORKERS", 0),
			MaxBody:   int64(getEnvInt("CIPHER_MAX_BODY", 64<<20)),
		},
		KDF: KDFConfig{
			Iterations: getEnvInt("KDF_ITERATIONS", 100000),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`
Server: %s:%d
Cipher: %s/%s/%s workers=%d max_body=%d
KDF: pbkdf2-sha256 iterations=%d`,
		c.Server.Host, c.Server.Port,
		c.Cipher.Algorithm, c.Cipher.Mode, c.Cipher.Padding, c.Cipher.Workers, c.Cipher.MaxBody,
		c.KDF.Iterations,
	)
}
