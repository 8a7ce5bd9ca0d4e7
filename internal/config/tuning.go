package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"peerprep/interview/internal/interview"
)

const tuningEnvPrefix = "INTERVIEW_"

// LoadTuning returns the interview tunables: defaults, overlaid by the YAML
// file at path (if given and present), overlaid by INTERVIEW_* variables such
// as INTERVIEW_SILENCE_TIMEOUT=4s.
func LoadTuning(path string) (interview.Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !os.IsNotExist(err) {
			return interview.Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(tuningEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, tuningEnvPrefix))
	}), nil); err != nil {
		return interview.Config{}, err
	}

	cfg := interview.DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return interview.Config{}, fmt.Errorf("decode interview config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return interview.Config{}, err
	}
	return cfg, nil
}
