package server

import (
	"time"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
)

// Config holds server configuration settings
type Config struct {
	Host             string        // Server host address
	Port             int           // Server port
	DataDir          string        // Database data directory
	BufferPoolFrames int           // Buffer pool size in pages
	Compression      string        // Page compression algorithm: none, snappy, zstd, gzip, zlib
	MergeOnClose     bool          // Compact tables when the server shuts down
	ReadTimeout      time.Duration // HTTP read timeout
	WriteTimeout     time.Duration // HTTP write timeout
	IdleTimeout      time.Duration // HTTP idle timeout
	MaxRequestSize   int64         // Maximum request body size in bytes
	EnableLogging    bool          // Enable request logging
	EnableGraphQL    bool          // Enable GraphQL API endpoint

	// Authentication. With an empty AdminUser the server runs open.
	AdminUser     string
	AdminPassword string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:             "localhost",
		Port:             8080,
		DataDir:          "./data",
		BufferPoolFrames: 512,
		Compression:      compression.AlgorithmNone.String(),
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		IdleTimeout:      120 * time.Second,
		MaxRequestSize:   1 * 1024 * 1024, // 1MB; requests carry integer rows
		EnableLogging:    true,
		EnableGraphQL:    false,
	}
}
