package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/databricks/databricks-sdk-go/config"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"
)

const databricksCfgFile = ".databrickscfg"

type Registry interface {
	GetProfiles(ctx context.Context) ([]domain.ConfigProfile, error)
	GetConfig(ctx context.Context, profile string) (*config.Config, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

// DefaultDatabricksConfigPath returns $HOME/.databrickscfg.
func DefaultDatabricksConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return databricksCfgFile
	}
	return filepath.Join(home, databricksCfgFile)
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(ctx context.Context) ([]domain.ConfigProfile, error) {
	var profiles []domain.ConfigProfile
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, domain.ConfigProfile{
			Name: section.Name(),
			Type: profileType(section),
		})
	}
	zerolog.Ctx(ctx).Debug().Int("profiles", len(profiles)).Msg("loaded databricks profiles")
	return profiles, nil
}

func (cr *cfgRegistry) GetConfig(_ context.Context, profile string) (*config.Config, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("profile %s not found", profile)
	}

	return &config.Config{
		Host:         section.Key("host").String(),
		Token:        section.Key("token").String(),
		AccountID:    section.Key("account_id").String(),
		ClientID:     section.Key("client_id").String(),
		ClientSecret: section.Key("client_secret").String(),
	}, nil
}

func profileType(section *ini.Section) domain.ProfileType {
	host := section.Key("host").String()
	if section.HasKey("account_id") && strings.Contains(host, "accounts.") {
		return domain.ProfileTypeAccount
	}
	return domain.ProfileTypeWorkspace
}
