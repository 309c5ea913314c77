// Package config manages trackd configuration via a viper singleton.
//
// Precedence, highest first: command-line flags (bound by the cobra
// commands), TRACKD_* environment variables, config.yaml, built-in
// defaults.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyDB          = "db"
	KeyListen      = "listen"
	KeyActor       = "actor"
	KeyBusyTimeout = "busy-timeout"
	KeyOtelEnabled = "otel-enabled"
)

var v *viper.Viper

// Initialize builds a fresh viper instance with defaults and environment
// binding. Safe to call more than once; later calls replace the instance,
// which the tests rely on for isolation.
func Initialize() error {
	instance := viper.New()

	instance.SetDefault(KeyDB, "tracker.db")
	instance.SetDefault(KeyListen, "127.0.0.1:8337")
	instance.SetDefault(KeyActor, int64(0))
	instance.SetDefault(KeyBusyTimeout, 30*time.Second)
	instance.SetDefault(KeyOtelEnabled, false)

	instance.SetEnvPrefix("TRACKD")
	instance.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	instance.AutomaticEnv()

	instance.SetConfigName("config")
	instance.SetConfigType("yaml")
	instance.AddConfigPath(".")
	if err := instance.ReadInConfig(); err != nil {
		// A missing config file is the normal case.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	v = instance
	return nil
}

// BindPFlag wires a cobra flag into the config instance so explicit flags
// override env vars and file values.
func BindPFlag(key string, flag *pflag.Flag) error {
	if v == nil {
		return nil
	}
	return v.BindPFlag(key, flag)
}

// GetString returns the string value for key, or "" before Initialize.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt64 returns the int64 value for key, or 0 before Initialize.
func GetInt64(key string) int64 {
	if v == nil {
		return 0
	}
	return v.GetInt64(key)
}

// GetBool returns the bool value for key, or false before Initialize.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration returns the duration value for key, or 0 before Initialize.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a value on the active instance. Primarily for tests.
func Set(key string, value interface{}) {
	if v == nil {
		return
	}
	v.Set(key, value)
}
