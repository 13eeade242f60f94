package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/joaopapereira/crates.io/internal/flagx"
	"github.com/joaopapereira/crates.io/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both strings
// such as "1s" and integer nanoseconds. Absent or zero fields leave the
// current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	IndexPath                   string         `json:"index_path"`
	IndexAuthorName             string         `json:"index_author_name"`
	IndexAuthorEmail            string         `json:"index_author_email"`
	GitHubAPIURL                string         `json:"github_api_url"`
	GitHubToken                 string         `json:"github_token"`
	MaxUploadSize               int64          `json:"max_upload_size"`
	Mirror                      *bool          `json:"mirror"`
	CategoriesPath              string         `json:"categories_path"`
	LogFormat                   string         `json:"log_format"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout"`
	DownloadsWindow             timex.Duration `json:"downloads_window"`
	RollupInterval              timex.Duration `json:"rollup_interval"`
}

// parseJson loads configuration values from the JSON file named by -c,
// -config or $CRATES_CONFIG into config. It panics if the file cannot be
// read or decoded.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFile()

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

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.IndexPath, c.IndexPath)
	setString(&config.IndexAuthorName, c.IndexAuthorName)
	setString(&config.IndexAuthorEmail, c.IndexAuthorEmail)
	setString(&config.GitHubAPIURL, c.GitHubAPIURL)
	setString(&config.GitHubToken, c.GitHubToken)
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if c.Mirror != nil {
		config.Mirror = *c.Mirror
	}
	setString(&config.CategoriesPath, c.CategoriesPath)
	setString(&config.LogFormat, c.LogFormat)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setDuration(&config.DownloadsWindow, c.DownloadsWindow)
	setDuration(&config.RollupInterval, c.RollupInterval)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
