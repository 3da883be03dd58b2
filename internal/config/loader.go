package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ssmParamSuffix marks an environment variable as a pointer to an SSM
// parameter. APP_SECRET_NAME_SSM_PARAM=/prod/demo/secret-name resolves into
// APP_SECRET_NAME.
const ssmParamSuffix = "_SSM_PARAM"

// localEnv is the APP_ENV value that bypasses SSM resolution.
const localEnv = "local"

// ssmResolveTimeout bounds the whole SSM resolution step at startup.
const ssmResolveTimeout = 30 * time.Second

// loaderDeps holds the injectable environment accessors, so tests can run
// without mutating the process environment.
type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
	environ   func() []string
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
	}
}

// LoadConfig loads and validates the configuration.
//
// Steps, in order:
//  1. Set the process timezone to UTC.
//  2. Load a .env file if present (existing variables win).
//  3. Unless APP_ENV is "local" (or unset), resolve *_SSM_PARAM pointers via provider
//     and inject the values into the environment.
//  4. Populate Config from the environment with envconfig.
//  5. Attach linker-injected build metadata.
//  6. Validate the result.
//
// provider may be nil when no *_SSM_PARAM variables are set.
func LoadConfig(provider ParameterProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider ParameterProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv does not override variables that are already set.
	_ = godotenv.Load()

	if environment(deps) != localEnv {
		if err := resolveSSMParams(provider, deps); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// environment returns APP_ENV with the same default envconfig applies, so an
// unset APP_ENV is local here as well as in Config.Environment.
func environment(deps loaderDeps) string {
	if v, ok := deps.lookupEnv("APP_ENV"); ok {
		return v
	}
	return localEnv
}

// ssmBinding ties a target environment variable to the SSM path it is read from.
type ssmBinding struct {
	targetEnvVar string
	ssmPath      string
}

// collectSSMBindings scans the environment for *_SSM_PARAM variables whose
// target is not already set. Bindings are sorted by target name.
func collectSSMBindings(deps loaderDeps) []ssmBinding {
	var bindings []ssmBinding
	for _, entry := range deps.environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasSuffix(key, ssmParamSuffix) || value == "" {
			continue
		}
		target := strings.TrimSuffix(key, ssmParamSuffix)
		// Priority: Env > SSM.
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		bindings = append(bindings, ssmBinding{targetEnvVar: target, ssmPath: value})
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].targetEnvVar < bindings[j].targetEnvVar
	})
	return bindings
}

// resolveSSMParams fetches every pending *_SSM_PARAM binding in one batch and
// writes the values into the environment so envconfig can read them.
func resolveSSMParams(provider ParameterProvider, deps loaderDeps) error {
	bindings := collectSSMBindings(deps)
	if len(bindings) == 0 {
		return nil
	}

	targets := make([]string, 0, len(bindings))
	paths := make([]string, 0, len(bindings))
	for _, b := range bindings {
		targets = append(targets, b.targetEnvVar)
		paths = append(paths, b.ssmPath)
	}

	if provider == nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("a ParameterProvider is required to resolve: %s", strings.Join(targets, ", ")),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ssmResolveTimeout)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, b := range bindings {
		value, ok := resolved[b.ssmPath]
		if !ok {
			missing = append(missing, b.targetEnvVar)
			continue
		}
		if err := deps.setEnv(b.targetEnvVar, value); err != nil {
			return &ConfigError{
				Type:    ErrSSMResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", b.targetEnvVar),
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("SSM parameters not found for: %s", strings.Join(missing, ", ")),
		}
	}

	return nil
}
