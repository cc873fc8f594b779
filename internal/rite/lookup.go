package rite

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Lookup resolves a variable name used in a process description.
type Lookup func(name string) (string, bool)

// MapLookup resolves names from a fixed map.
func MapLookup(vars map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

// EnvLookup resolves names from the process environment.
func EnvLookup() Lookup {
	return os.LookupEnv
}

// DotEnvLookup resolves names from .env style files. Later files override
// earlier ones.
func DotEnvLookup(paths ...string) (Lookup, error) {
	vars := map[string]string{}
	for _, p := range paths {
		m, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", p, err)
		}
		for k, v := range m {
			vars[k] = v
		}
	}
	return MapLookup(vars), nil
}

// Chain tries each lookup in order. Nil lookups are skipped.
func Chain(lookups ...Lookup) Lookup {
	return func(name string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(name); ok {
				return v, true
			}
		}
		return "", false
	}
}
