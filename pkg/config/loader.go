package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by configuration structs that check their own invariants
// after parsing. Load rejects a struct whose Validate returns an error.
type Validator interface {
	Validate() error
}

type configCache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	cache = &configCache{values: make(map[string]any)}

	envFilesLoaded sync.Once
)

// LoadEnv reads the given .env files into the process environment, or ".env" when none are given.
// Existing variables win over file values. Missing files are ignored.
// Only the first call has an effect, so call it before the first Load when paths matter.
func LoadEnv(paths ...string) {
	envFilesLoaded.Do(func() {
		if len(paths) == 0 {
			_ = godotenv.Load()
			return
		}
		for _, p := range paths {
			_ = godotenv.Load(p)
		}
	})
}

// Load parses environment variables into v using its `env` struct tags.
// Each configuration type is parsed once per process; later calls get a copy of the cached value.
//
//	type Config struct {
//		Issuer string        `env:"MFA_TOTP_ISSUER" envDefault:"restauth"`
//		TTL    time.Duration `env:"MFA_EPHEMERAL_TOKEN_TTL" envDefault:"5m"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	LoadEnv()

	key := typeKey[T]()

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cached, ok := cache.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	parsed, err := Parse[T]()
	if err != nil {
		return err
	}

	cache.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Parse reads a fresh value of T from the environment without touching the cache.
func Parse[T any]() (T, error) {
	var v T
	if err := env.Parse(&v); err != nil {
		return v, errors.Join(ErrParsingConfig, err)
	}
	if val, ok := any(&v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return v, errors.Join(ErrInvalidConfig, err)
		}
	}
	return v, nil
}

// Reset drops every cached configuration. Intended for tests.
func Reset() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.values = make(map[string]any)
}

func typeKey[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
