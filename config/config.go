// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

// Version is stamped into upload metadata objects. Overridden at build time
// with -ldflags "-X driftbin/paste-api/config.Version=...".
var Version = "dev"

var (
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"s3", "local"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.log_file", "app_log_file")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.file_url", "host_file_url")
	v.BindEnv("host.html_url", "host_html_url")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.forbidden_extensions", "upload_forbidden_extensions")

	v.BindEnv("storage.type", "storage_type")
	v.BindEnv("storage.workers", "storage_workers")
	v.BindEnv("storage.queue_size", "storage_queue_size")
	v.BindEnv("storage.object_path", "storage_object_path")
	v.BindEnv("storage.html_path", "storage_html_path")

	v.BindEnv("s3.access_key_id", "s3_access_key_id")
	v.BindEnv("s3.secret_access_key", "s3_secret_access_key")
	v.BindEnv("s3.bucket", "s3_bucket")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.endpoint", "s3_endpoint")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.file_url", "http://localhost:8080/dev/object/%s")
	v.SetDefault("host.html_url", "http://localhost:8080/dev/html/%s")

	v.SetDefault("upload.max_size", 10)
	v.SetDefault("upload.forbidden_extensions", []string{})

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.workers", 4)
	v.SetDefault("storage.queue_size", 64)
	v.SetDefault("storage.object_path", "objects")
	v.SetDefault("storage.html_path", "html")

	v.SetDefault("s3.region", "us-east-1")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if strings.Count(v.GetString("host.file_url"), "%s") != 1 {
		return errors.New("host.file_url must contain exactly one %s placeholder")
	}

	if strings.Count(v.GetString("host.html_url"), "%s") != 1 {
		return errors.New("host.html_url must contain exactly one %s placeholder")
	}

	switch v.GetString("storage.type") {
	case "s3":
		{
			if v.GetString("s3.access_key_id") == "" {
				return errors.New("access key id can't be empty")
			}
			if v.GetString("s3.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
			if v.GetString("s3.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
		}
	case "local":
		{
			if v.GetString("storage.object_path") == "" {
				return errors.New("no object path provided")
			}
			if v.GetString("storage.html_path") == "" {
				return errors.New("no html path provided")
			}
		}
	default:
		return errors.New("invalid storage type provided")
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if v.GetInt("storage.workers") <= 0 {
		return errors.New("storage.workers must be bigger than 0")
	}

	if v.GetInt("storage.queue_size") <= 0 {
		return errors.New("storage.queue_size must be bigger than 0")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}

// FileURL returns the public URL of a stored raw object.
func FileURL(name string) string {
	return fmt.Sprintf(v.GetString("host.file_url"), name)
}

// HTMLURL returns the public URL of a stored HTML view.
func HTMLURL(name string) string {
	return fmt.Sprintf(v.GetString("host.html_url"), name)
}
