package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/clientkeeper/internal/flagx"
	"github.com/dmitrijs2005/clientkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, the fields present in the file are copied into
// the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PublicBaseURL              string         `json:"s3_public_base_url"`
	AdminEmails                  []string       `json:"admin_emails"`
	LogLevel                     string         `json:"log_level"`
	MaxUploadSize                int64          `json:"max_upload_size"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics. Keys absent from the file leave the
// current value in place.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	overlay := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}

	overlay(c.EndpointAddrHTTP, &config.EndpointAddrHTTP)
	overlay(c.DatabaseDSN, &config.DatabaseDSN)
	overlay(c.SecretKey, &config.SecretKey)
	overlay(c.S3RootUser, &config.S3RootUser)
	overlay(c.S3RootPassword, &config.S3RootPassword)
	overlay(c.S3Bucket, &config.S3Bucket)
	overlay(c.S3Region, &config.S3Region)
	overlay(c.S3BaseEndpoint, &config.S3BaseEndpoint)
	overlay(c.S3PublicBaseURL, &config.S3PublicBaseURL)
	overlay(c.LogLevel, &config.LogLevel)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if len(c.AdminEmails) > 0 {
		config.AdminEmails = c.AdminEmails
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
}
