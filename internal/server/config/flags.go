package config

import (
	"fmt"

	"github.com/dmitrijs2005/leftoverchef/internal/flagx"
	"github.com/dmitrijs2005/leftoverchef/internal/timex"
	"github.com/spf13/pflag"
)

// serverFlags lists every flag parseFlags understands, short and long forms.
var serverFlags = []string{
	"-a", "--http-addr",
	"-g", "--grpc-addr",
	"-d", "--database-dsn",
	"-s", "--secret",
	"-t", "--token-ttl",
	"-m", "--ml-url",
	"-u", "--upload-dir",
	"-b", "--storage",
	"-r", "--redis-url",
	"-l", "--log-level",
}

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a, --http-addr     REST API bind address (":5000")
//	-g, --grpc-addr     gRPC health bind address (":50051")
//	-d, --database-dsn  PostgreSQL DSN
//	-s, --secret        JWT HMAC secret
//	-t, --token-ttl     token lifetime ("720h", "30d")
//	-m, --ml-url        inference endpoint; empty keeps the mock
//	-u, --upload-dir    local image directory
//	-b, --storage       image storage backend: disk or s3
//	-r, --redis-url     Redis for login lockout
//	-l, --log-level     debug, info, warn, error
//
// Unknown flags (for example -c) are filtered out first via flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)

	fs.StringVarP(&config.HTTPAddr, "http-addr", "a", config.HTTPAddr, "address and port to run the REST API")
	fs.StringVarP(&config.GRPCAddr, "grpc-addr", "g", config.GRPCAddr, "address and port to run the gRPC health endpoint")
	fs.StringVarP(&config.DatabaseDSN, "database-dsn", "d", config.DatabaseDSN, "database DSN")
	fs.StringVarP(&config.SecretKey, "secret", "s", config.SecretKey, "JWT secret key")
	ttl := fs.StringP("token-ttl", "t", "", "token lifetime")
	fs.StringVarP(&config.MLServiceURL, "ml-url", "m", config.MLServiceURL, "inference service URL")
	fs.StringVarP(&config.UploadDir, "upload-dir", "u", config.UploadDir, "upload directory")
	fs.StringVarP(&config.StorageBackend, "storage", "b", config.StorageBackend, "image storage backend")
	fs.StringVarP(&config.RedisURL, "redis-url", "r", config.RedisURL, "redis URL")
	fs.StringVarP(&config.LogLevel, "log-level", "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return err
	}

	if *ttl != "" {
		d, err := timex.ParseDuration(*ttl)
		if err != nil {
			return fmt.Errorf("token-ttl: %w", err)
		}
		config.TokenTTL = d
	}
	return nil
}
