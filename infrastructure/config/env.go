package config

import (
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	infraerrors "github.com/R3E-Network/actorcore/infrastructure/errors"
)

// EngineEnv is the environment-variable shape of the engine's runtime
// configuration, decoded with envdecode. A .env file is loaded first (if
// present) so local development doesn't require exporting every variable by
// hand.
type EngineEnv struct {
	ConfigDir    string `env:"ACTORCORE_CONFIG_DIR,default=./config"`
	StrictMode   bool   `env:"ACTORCORE_STRICT_MODE,default=false"`
	CacheLayers  string `env:"ACTORCORE_CACHE_LAYERS,default=l1"`
	ExtendedFlag bool   `env:"ACTORCORE_EXTENDED_BUCKETS,default=false"`
}

// LoadEnv loads a .env file (if present) and decodes EngineEnv from the
// process environment. A missing .env file is not an error; a malformed one,
// or a decode failure, is.
func LoadEnv(dotenvPath string) (EngineEnv, error) {
	if dotenvPath != "" {
		if _, statErr := os.Stat(dotenvPath); statErr == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return EngineEnv{}, infraerrors.ConfigMalformed(dotenvPath, err)
			}
		}
	}

	var env EngineEnv
	if err := envdecode.Decode(&env); err != nil {
		return EngineEnv{}, infraerrors.Wrap(infraerrors.ErrCodeConfigMalformed, "failed to decode environment", err)
	}
	return env, nil
}

// CacheLayerNames splits ACTORCORE_CACHE_LAYERS ("l1,l2,l3") into its
// component layer names, lowercased and trimmed.
func (e EngineEnv) CacheLayerNames() []string {
	parts := SplitAndTrimCSV(e.CacheLayers)
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = strings.ToLower(p)
	}
	return names
}

// HasCacheLayer reports whether name (e.g. "l2") is enabled in
// ACTORCORE_CACHE_LAYERS.
func (e EngineEnv) HasCacheLayer(name string) bool {
	name = strings.ToLower(name)
	for _, n := range e.CacheLayerNames() {
		if n == name {
			return true
		}
	}
	return false
}
