package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// profile - настройки подключения из YAML-файла, чтобы не повторять флаги
type profile struct {
	Server    string        `yaml:"server"`
	APIKey    string        `yaml:"api_key"`
	ActorID   string        `yaml:"actor_id"`
	ActorRole string        `yaml:"actor_role"`
	Timeout   time.Duration `yaml:"timeout"`
}

var errProfileRole = errors.New("profile actor_role is not a known role")

func loadProfile(path string) (*profile, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p profile
	if err := yaml.Unmarshal(contents, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if p.ActorRole != "" && !models.Role(p.ActorRole).Valid() {
		return nil, fmt.Errorf("%w: %q", errProfileRole, p.ActorRole)
	}
	if p.Timeout < 0 {
		return nil, fmt.Errorf("profile timeout must not be negative")
	}
	return &p, nil
}

// applyProfile подставляет значения профиля во флаги, не заданные явно
func applyProfile(cmd *cobra.Command, p *profile) error {
	values := map[string]string{
		"server":     p.Server,
		"api-key":    p.APIKey,
		"actor-id":   p.ActorID,
		"actor-role": p.ActorRole,
	}
	if p.Timeout > 0 {
		values["timeout"] = p.Timeout.String()
	}

	flags := cmd.Flags()
	for name, value := range values {
		if value == "" || flags.Changed(name) {
			continue
		}
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("apply profile %s: %w", name, err)
		}
	}
	return nil
}
