package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/labandina/internal/flagx"
	"github.com/dmitrijs2005/labandina/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Interval fields use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
//
// Only fields present in the file override the current Config. Durations are
// pointers so an explicit zero, such as a disabled grace window, still applies.
type FileConfig struct {
	HTTPAddr                     string          `json:"http_addr" yaml:"http_addr"`
	GRPCAddr                     string          `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN                  string          `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string          `json:"secret_key" yaml:"secret_key"`
	PreviousSecretKey            string          `json:"previous_secret_key" yaml:"previous_secret_key"`
	SecretGraceWindow            *timex.Duration `json:"secret_grace_window" yaml:"secret_grace_window"`
	TokenIssuer                  string          `json:"token_issuer" yaml:"token_issuer"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	CORSOrigins                  []string        `json:"cors_origins" yaml:"cors_origins"`
	RedisURL                     string          `json:"redis_url" yaml:"redis_url"`
	S3RootUser                   string          `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string          `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PresignExpiry              *timex.Duration `json:"s3_presign_expiry" yaml:"s3_presign_expiry"`
	LogLevel                     string          `json:"log_level" yaml:"log_level"`
	ShutdownTimeout              *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. A missing flag
// means no file.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	fc := &FileConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, fc); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, fc.HTTPAddr)
	setString(&config.GRPCAddr, fc.GRPCAddr)
	setString(&config.DatabaseDSN, fc.DatabaseDSN)
	setString(&config.SecretKey, fc.SecretKey)
	setString(&config.PreviousSecretKey, fc.PreviousSecretKey)
	setString(&config.TokenIssuer, fc.TokenIssuer)
	setString(&config.RedisURL, fc.RedisURL)
	setString(&config.S3RootUser, fc.S3RootUser)
	setString(&config.S3RootPassword, fc.S3RootPassword)
	setString(&config.S3Bucket, fc.S3Bucket)
	setString(&config.S3Region, fc.S3Region)
	setString(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&config.LogLevel, fc.LogLevel)

	setDuration(&config.SecretGraceWindow, fc.SecretGraceWindow)
	setDuration(&config.AccessTokenValidityDuration, fc.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, fc.RefreshTokenValidityDuration)
	setDuration(&config.S3PresignExpiry, fc.S3PresignExpiry)
	setDuration(&config.ShutdownTimeout, fc.ShutdownTimeout)
	if len(fc.CORSOrigins) > 0 {
		config.CORSOrigins = fc.CORSOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
