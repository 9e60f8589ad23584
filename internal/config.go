package internal

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/http/gemini"
	"github.com/ladlehq/ladle/internal/http/mealie"
	"github.com/ladlehq/ladle/internal/ytdlp"
)

// LadleConfig is the struct used to contain the various user config
// supplied by file or environment. Every import depends on all four
// subsystems, so the mandatory values of each are validated at load time
// and the process refuses to start without them.
type LadleConfig struct {
	Rest   api.RestConfig `yaml:"api"`
	YtDlp  ytdlp.Config   `yaml:"ytdlp"`
	Gemini gemini.Config  `yaml:"gemini"`
	Mealie mealie.Config  `yaml:"mealie"`
}

// LoadFromFile loads a configuration file formatted in YAML in to a
// LadleConfig struct, with environment variables taking precedence as
// per cleanenv semantics.
func (config *LadleConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration for LadleConfig - %v", err.Error())
	}

	return nil
}

// LoadFromEnv populates the config purely from the process environment.
func (config *LadleConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration for LadleConfig - %v", err.Error())
	}

	return nil
}

// PublicHost returns the host used when composing recipe URLs handed back
// to clients. It falls back to the API host when no public-facing variant
// is configured.
func (config *LadleConfig) PublicHost() string {
	if config.Mealie.PublicHost != "" {
		return config.Mealie.PublicHost
	}

	return config.Mealie.Host
}
