package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/server"
)

// fileConfig mirrors the optional YAML configuration file:
//
//	server:
//	  host: localhost
//	  port: 8080
//	  graphql: true
//	storage:
//	  data_dir: ./data
//	  buffer_frames: 512
//	  compression: zstd
//	  merge_on_close: false
//	auth:
//	  admin_user: admin
//	  admin_password: secret
type fileConfig struct {
	Server struct {
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
		GraphQL bool   `mapstructure:"graphql"`
	} `mapstructure:"server"`
	Storage struct {
		DataDir      string `mapstructure:"data_dir"`
		BufferFrames int    `mapstructure:"buffer_frames"`
		Compression  string `mapstructure:"compression"`
		MergeOnClose bool   `mapstructure:"merge_on_close"`
	} `mapstructure:"storage"`
	Auth struct {
		AdminUser     string `mapstructure:"admin_user"`
		AdminPassword string `mapstructure:"admin_password"`
	} `mapstructure:"auth"`
}

func applyConfigFile(config *server.Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.Host != "" {
		config.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		config.Port = cfg.Server.Port
	}
	config.EnableGraphQL = config.EnableGraphQL || cfg.Server.GraphQL
	if cfg.Storage.DataDir != "" {
		config.DataDir = cfg.Storage.DataDir
	}
	if cfg.Storage.BufferFrames != 0 {
		config.BufferPoolFrames = cfg.Storage.BufferFrames
	}
	if cfg.Storage.Compression != "" {
		config.Compression = cfg.Storage.Compression
	}
	config.MergeOnClose = config.MergeOnClose || cfg.Storage.MergeOnClose
	if cfg.Auth.AdminUser != "" {
		config.AdminUser = cfg.Auth.AdminUser
		config.AdminPassword = cfg.Auth.AdminPassword
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to optional YAML configuration file")
	host := flag.String("host", "", "Server host address")
	port := flag.Int("port", 0, "Server port")
	dataDir := flag.String("data-dir", "", "Data directory for page files and metadata")
	bufferFrames := flag.Int("buffer-frames", 0, "Buffer pool size in pages")
	compressionAlg := flag.String("compression", "", "Page compression: none, snappy, zstd, gzip, zlib")
	mergeOnClose := flag.Bool("merge-on-close", false, "Compact tables on shutdown (collapses version history)")
	enableGraphQL := flag.Bool("graphql", false, "Enable the GraphQL endpoint (/graphql)")
	adminUser := flag.String("admin-user", "", "Admin username; empty disables authentication")
	adminPassword := flag.String("admin-password", "", "Admin password")
	flag.Parse()

	config := server.DefaultConfig()
	if *configPath != "" {
		if err := applyConfigFile(config, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	// Command-line flags override the config file.
	if *host != "" {
		config.Host = *host
	}
	if *port != 0 {
		config.Port = *port
	}
	if *dataDir != "" {
		config.DataDir = *dataDir
	}
	if *bufferFrames != 0 {
		config.BufferPoolFrames = *bufferFrames
	}
	if *compressionAlg != "" {
		config.Compression = *compressionAlg
	}
	config.MergeOnClose = config.MergeOnClose || *mergeOnClose
	config.EnableGraphQL = config.EnableGraphQL || *enableGraphQL
	if *adminUser != "" {
		config.AdminUser = *adminUser
		config.AdminPassword = *adminPassword
	}

	srv, err := server.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
