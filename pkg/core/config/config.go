//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package config provides configuration management for the authorization
// engine using [Viper] for flexible configuration sources.
//
// Configuration can be provided via:
//   - YAML configuration files
//   - Environment variables with the CEDRUS_ prefix
//   - Programmatic defaults
//
// # Configuration File
//
// By default, the engine looks for cedrus-config.yaml in the current
// directory. Override the location using environment variables:
//
//	CEDRUS_CONFIG_PATH=/etc/cedrus
//	CEDRUS_CONFIG_FILENAME=production-config
//
// Example configuration file:
//
//	log:
//	  level: ".:info"
//	eval:
//	  parallel: true
//	accesslog:
//	  pretty: false
//	audit:
//	  env:
//	    pod: HOSTNAME
//	    region: AWS_REGION
//
// # Environment Variables
//
// All configuration keys can be set via environment variables with the
// CEDRUS_ prefix. Dots in key names become underscores:
//
//	CEDRUS_LOG_LEVEL=.:debug
//	CEDRUS_EVAL_PARALLEL=false
//	CEDRUS_ACCESSLOG_PRETTY=true
//
// # Configuration Keys
//
// Available configuration options:
//   - log.level: Log level configuration (default: ".:info")
//   - eval.parallel: Evaluate permit and forbid policies concurrently (default: true)
//   - accesslog.pretty: Pretty-print JSON access log records (default: false)
//   - audit.env: Map of access log metadata keys to environment variable names
//
// [Viper]: https://github.com/spf13/viper
package config

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/spf13/viper"
)

// Environment variable and default path constants for configuration loading.
const (
	// EnvVarPrefix is the prefix for all engine environment variables.
	// For example, the key "log.level" becomes CEDRUS_LOG_LEVEL.
	EnvVarPrefix string = "CEDRUS"

	// ConfigPathEnv is the environment variable that specifies the directory
	// containing the configuration file.
	ConfigPathEnv string = "CEDRUS_CONFIG_PATH"

	// ConfigFileNameEnv is the environment variable that specifies the
	// configuration file name (without extension).
	ConfigFileNameEnv string = "CEDRUS_CONFIG_FILENAME"

	// ConfigDefaultPath is the default directory to search for config files.
	ConfigDefaultPath string = "."

	// ConfigDefaultFilename is the default configuration file name (without extension).
	ConfigDefaultFilename string = "cedrus-config"
)

// Configuration key constants for use with [VConfig].
const (
	logLevel string = "log.level"

	// EvalParallel controls whether the permit and forbid policy groups are
	// evaluated concurrently. Decisions are identical either way; disabling
	// parallelism can simplify profiling and debugging.
	//
	// Default: true
	// Set via environment: CEDRUS_EVAL_PARALLEL=false
	EvalParallel string = "eval.parallel"

	// AccessLogPretty enables indented JSON output for the default stdout
	// access log stream.
	//
	// Default: false
	// Set via environment: CEDRUS_ACCESSLOG_PRETTY=true
	AccessLogPretty string = "accesslog.pretty"

	// AuditEnv defines a mapping from access log metadata keys to environment
	// variable names. The values of the specified environment variables are
	// included in every access log record.
	//
	// Example config:
	//
	//	audit:
	//	  env:
	//	    pod: HOSTNAME
	//	    region: AWS_REGION
	AuditEnv string = "audit.env"

	// AuditK8sPodinfo is the directory containing Kubernetes Downward API
	// podinfo files ("labels" and "annotations"). When the files exist, their
	// contents are merged into access log metadata under "k8s.label/" and
	// "k8s.annotation/" keys.
	//
	// Default: /etc/podinfo
	// Set via environment: CEDRUS_AUDIT_K8S_PODINFO=/run/podinfo
	AuditK8sPodinfo string = "audit.k8s.podinfo"
)

var (
	once     sync.Once
	loadOnce sync.Once
	loadErr  error

	// VConfig is the global Viper configuration instance for the engine.
	//
	// VConfig provides access to all configuration values. Use the
	// configuration key constants ([EvalParallel], [AccessLogPretty], etc.)
	// to access specific settings:
	//
	//	if config.VConfig.GetBool(config.EvalParallel) {
	//	    // Evaluating policy groups concurrently
	//	}
	//
	// VConfig is initialized automatically when [Load] or [Init] is called.
	// In most cases, applications don't need to access VConfig directly;
	// configuration is handled automatically by [core.NewAuthorizer].
	VConfig *viper.Viper
	logger  = logging.GetLogger("cedrus.config")
)

// Init initializes the configuration system without loading config files.
//
// Init sets up Viper with:
//   - Configuration file paths and names
//   - Environment variable handling (CEDRUS_ prefix)
//   - Default values for all configuration keys
//
// This function is safe to call multiple times; subsequent calls are no-ops.
// Most applications don't need to call Init directly; it's called
// automatically by [Load], which is called by [core.NewAuthorizer].
//
// Call Init explicitly only if you need to set Viper defaults before [Load]
// reads the configuration file.
func Init() {
	once.Do(func() {
		doInitialize()
	})
}

func getConfigPath() string {
	configPath, ok := os.LookupEnv(ConfigPathEnv)
	if ok {
		return configPath
	}

	return ConfigDefaultPath
}

func getConfigFileName() string {
	configName, ok := os.LookupEnv(ConfigFileNameEnv)
	if ok {
		return configName
	}

	return ConfigDefaultFilename
}

func doInitialize() {
	VConfig = viper.New()

	// set up config-file loading:  default is './cedrus-config.yaml' but can be overridden with $(CEDRUS_CONFIG_PATH)/$(CEDRUS_CONFIG_FILENAME).yaml
	VConfig.AddConfigPath(getConfigPath())
	VConfig.SetConfigName(getConfigFileName())
	VConfig.SetConfigType("yaml")

	// set up envvar handling:  keys such as 'log.level' become 'CEDRUS_LOG_LEVEL'
	VConfig.SetEnvPrefix(EnvVarPrefix)
	VConfig.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	VConfig.AutomaticEnv()

	// set up VConfig defaults
	VConfig.SetDefault(logLevel, ".:info")
	VConfig.SetDefault(EvalParallel, true)
	VConfig.SetDefault(AccessLogPretty, false)
	VConfig.SetDefault(AuditK8sPodinfo, "/etc/podinfo")
}

// Load initializes configuration and loads settings from files and environment.
//
// Load performs the following steps:
//  1. Calls [Init] if not already called
//  2. Reads the configuration file (if present; missing files are not an error)
//  3. Applies environment variable overrides
//  4. Updates log levels based on configuration
//
// This function is safe to call concurrently from multiple goroutines.
// Subsequent calls after the first successful load are no-ops that return nil.
//
// Load is called automatically by [core.NewAuthorizer]. Most applications
// don't need to call it directly.
//
// Returns an error if log level configuration is invalid.
func Load() error {
	loadOnce.Do(func() {
		Init()

		// Early log level update from environment variable allows us to debug the config loading.
		earlyLoglevel := os.Getenv("CEDRUS_LOG_LEVEL")
		if earlyLoglevel != "" {
			if err := logging.UpdateLogLevels(earlyLoglevel); err != nil {
				logger.Errorf("Failed updating early log level %s: %+v", earlyLoglevel, err)
				loadErr = err
				return
			}
		}

		logger.Debugf("Loading configuration from %s/%s.yaml", getConfigPath(), getConfigFileName())
		err := VConfig.ReadInConfig()
		if err != nil {
			// Only log if it's an actual error, not just a missing config file
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				logger.Warnf("error reading config; using defaults: %+v", err)
			}
			// fall through to continue loading
			logger.Debugf("No config file found at %s/%s.yaml", getConfigPath(), getConfigFileName())
		}

		// Update log levels based on final configuration
		loglevel := VConfig.GetString(logLevel)
		if err := logging.UpdateLogLevels(loglevel); err != nil {
			logger.Errorf("Failed updating log level %s: %+v", loglevel, err)
			loadErr = err
			return
		}

		if logger.IsDebugEnabled() {
			VConfig.DebugTo(logger.Out())
		}
	})

	return loadErr
}

// ResetConfig clears all configuration and reinitializes with defaults.
//
// WARNING: This function is intended for testing only. It resets the global
// configuration state, which can cause race conditions in concurrent code.
//
// After calling ResetConfig, the configuration system is reinitialized with
// default values. Any previously loaded configuration file or environment
// variable overrides are discarded.
func ResetConfig() {
	VConfig = nil
	once = sync.Once{}     // reset the sync.Once to allow re-initialization
	loadOnce = sync.Once{} // reset the loadOnce to allow re-loading
	loadErr = nil          // reset any previous load error
	Init()
	// ignore any reset errors
	_ = Load()
}

// GetAuditEnv returns resolved audit environment metadata for access log records.
//
// This function reads the audit.env configuration section and resolves each
// configured environment variable to its current value. The result is a map
// suitable for inclusion in access log records as metadata.
//
// Configuration format:
//
//	audit:
//	  env:
//	    pod: HOSTNAME
//	    region: AWS_REGION
//
// With HOSTNAME=pod-123 and AWS_REGION=us-east-1, this returns:
//
//	{"pod": "pod-123", "region": "us-east-1"}
//
// When running in Kubernetes with a Downward API podinfo volume mounted (see
// [AuditK8sPodinfo]), pod labels and annotations are merged into the result
// under "k8s.label/" and "k8s.annotation/" keys.
//
// Environment variables that are not set will have empty string values in the
// result. Returns an empty map if no audit.env configuration is present.
func GetAuditEnv() map[string]string {
	result := make(map[string]string)

	for key, value := range getK8sLabels() {
		result["k8s.label/"+key] = value
	}
	for key, value := range getK8sAnnotations() {
		result["k8s.annotation/"+key] = value
	}

	envConfig := VConfig.GetStringMapString(AuditEnv)
	if envConfig == nil {
		return result
	}

	for key, envVarName := range envConfig {
		result[key] = os.Getenv(envVarName)
	}

	return result
}
