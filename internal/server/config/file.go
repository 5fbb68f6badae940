package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/leftoverchef/internal/flagx"
	"github.com/dmitrijs2005/leftoverchef/internal/timex"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "15m"/"30d" strings and integer nanoseconds work.
// Zero values leave the current setting alone.
type FileConfig struct {
	HTTPAddr           string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN        string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey          string         `json:"secret_key" yaml:"secret_key"`
	TokenTTL           timex.Duration `json:"token_ttl" yaml:"token_ttl"`
	MLServiceURL       string         `json:"ml_service_url" yaml:"ml_service_url"`
	InferenceTimeout   timex.Duration `json:"inference_timeout" yaml:"inference_timeout"`
	MaxFileSizeMB      int            `json:"max_file_size_mb" yaml:"max_file_size_mb"`
	UploadDir          string         `json:"upload_dir" yaml:"upload_dir"`
	StorageBackend     string         `json:"storage_backend" yaml:"storage_backend"`
	S3Bucket           string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region           string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccessKey        string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	RedisURL           string         `json:"redis_url" yaml:"redis_url"`
	LockoutMaxAttempts int            `json:"lockout_max_attempts" yaml:"lockout_max_attempts"`
	LockoutWindow      timex.Duration `json:"lockout_window" yaml:"lockout_window"`
	AllowedOrigins     []string       `json:"allowed_origins" yaml:"allowed_origins"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	LogFormat          string         `json:"log_format" yaml:"log_format"`
}

// parseFile loads the file named by -c/--config, if any. Files ending in
// .yaml/.yml are YAML; anything else is JSON, with comments and trailing
// commas tolerated.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&config.HTTPAddr, fc.HTTPAddr)
	set(&config.GRPCAddr, fc.GRPCAddr)
	set(&config.DatabaseDSN, fc.DatabaseDSN)
	set(&config.SecretKey, fc.SecretKey)
	set(&config.MLServiceURL, fc.MLServiceURL)
	set(&config.UploadDir, fc.UploadDir)
	set(&config.StorageBackend, fc.StorageBackend)
	set(&config.S3Bucket, fc.S3Bucket)
	set(&config.S3Region, fc.S3Region)
	set(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	set(&config.S3AccessKey, fc.S3AccessKey)
	set(&config.S3SecretKey, fc.S3SecretKey)
	set(&config.RedisURL, fc.RedisURL)
	set(&config.LogLevel, fc.LogLevel)
	set(&config.LogFormat, fc.LogFormat)

	if fc.TokenTTL.Duration > 0 {
		config.TokenTTL = fc.TokenTTL.Duration
	}
	if fc.InferenceTimeout.Duration > 0 {
		config.InferenceTimeout = fc.InferenceTimeout.Duration
	}
	if fc.LockoutWindow.Duration > 0 {
		config.LockoutWindow = fc.LockoutWindow.Duration
	}
	if fc.MaxFileSizeMB > 0 {
		config.MaxFileSizeMB = fc.MaxFileSizeMB
	}
	if fc.LockoutMaxAttempts > 0 {
		config.LockoutMaxAttempts = fc.LockoutMaxAttempts
	}
	if len(fc.AllowedOrigins) > 0 {
		config.AllowedOrigins = fc.AllowedOrigins
	}
}
