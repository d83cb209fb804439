package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by parseEnv,
// e.g. CLIENTKEEPER_DATABASE_DSN.
const EnvPrefix = "CLIENTKEEPER"

// parseEnv overlays values from the process environment. Variables found in
// dotenvFile are exported first without overriding ones already set; a
// missing file is ignored, an unreadable one panics like the other loaders.
func parseEnv(config *Config, dotenvFile string) {
	if dotenvFile != "" {
		if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	setString := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	setString("http_addr", &config.EndpointAddrHTTP)
	setString("database_dsn", &config.DatabaseDSN)
	setString("secret_key", &config.SecretKey)
	setString("s3_root_user", &config.S3RootUser)
	setString("s3_root_password", &config.S3RootPassword)
	setString("s3_bucket", &config.S3Bucket)
	setString("s3_region", &config.S3Region)
	setString("s3_base_endpoint", &config.S3BaseEndpoint)
	setString("s3_public_base_url", &config.S3PublicBaseURL)
	setString("log_level", &config.LogLevel)

	if d := v.GetDuration("access_token_ttl"); d > 0 {
		config.AccessTokenValidityDuration = d
	}
	if d := v.GetDuration("refresh_token_ttl"); d > 0 {
		config.RefreshTokenValidityDuration = d
	}
	if n := v.GetInt64("max_upload_size"); n > 0 {
		config.MaxUploadSize = n
	}
	if emails := splitList(v.GetString("admin_emails")); len(emails) > 0 {
		config.AdminEmails = emails
	}
}
