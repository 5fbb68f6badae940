package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/timex"
	"github.com/joho/godotenv"
)

// dotenvFile is read (if present) as a fallback for the environment.
// Variables already set in the process win over the file.
var dotenvFile = ".env"

// parseEnv overlays environment variables onto config. Unset variables keep
// the current value; malformed numbers and durations are collected and
// reported together.
func parseEnv(config *Config, env func(string) (string, bool)) error {
	dotenv, err := godotenv.Read(dotenvFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", dotenvFile, err)
		}
		dotenv = map[string]string{}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	var errs []error

	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	dur := func(dst *time.Duration, key string) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := timex.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		config.HTTPAddr = ":" + port
	}
	str(&config.HTTPAddr, "HTTP_ADDR")
	str(&config.GRPCAddr, "GRPC_ADDR")
	str(&config.DatabaseDSN, "DATABASE_URL", "DATABASE_DSN")
	str(&config.SecretKey, "JWT_SECRET")
	dur(&config.TokenTTL, "JWT_EXPIRES_IN")
	str(&config.MLServiceURL, "ML_SERVICE_URL")
	dur(&config.InferenceTimeout, "ML_TIMEOUT")
	num(&config.MaxFileSizeMB, "MAX_FILE_SIZE_MB")
	str(&config.UploadDir, "UPLOAD_DIR")
	str(&config.StorageBackend, "STORAGE_BACKEND")
	str(&config.S3Bucket, "S3_BUCKET")
	str(&config.S3Region, "S3_REGION")
	str(&config.S3BaseEndpoint, "S3_ENDPOINT")
	str(&config.S3AccessKey, "S3_ACCESS_KEY")
	str(&config.S3SecretKey, "S3_SECRET_KEY")
	str(&config.RedisURL, "REDIS_URL")
	num(&config.LockoutMaxAttempts, "LOCKOUT_MAX_ATTEMPTS")
	dur(&config.LockoutWindow, "LOCKOUT_WINDOW")
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = splitList(v)
	}
	str(&config.LogLevel, "LOG_LEVEL")
	str(&config.LogFormat, "LOG_FORMAT")

	return errors.Join(errs...)
}
