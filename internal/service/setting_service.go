package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

// Setting keys understood by the backend.
const (
	SettingAppName           = "app_name"
	SettingCompanyName       = "company_name"
	SettingDefaultReturnDays = "default_return_days"
)

// PublicSettingKeys are readable without a session, e.g. on the login page.
var PublicSettingKeys = []string{SettingAppName, SettingCompanyName}

// settingRules checks a raw value and returns a message when it is rejected.
var settingRules = map[string]func(string) string{
	SettingAppName: func(v string) string {
		if strings.TrimSpace(v) == "" {
			return "app_name must not be empty"
		}
		if len(v) > 100 {
			return "app_name must be at most 100 characters"
		}
		return ""
	},
	SettingCompanyName: func(v string) string {
		if len(v) > 255 {
			return "company_name must be at most 255 characters"
		}
		return ""
	},
	SettingDefaultReturnDays: func(v string) string {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 365 {
			return "default_return_days must be a whole number between 0 and 365"
		}
		return ""
	},
}

// SettingService reads and writes the app_settings key/value table.
type SettingService struct {
	settingRepo repository.SettingRepository
	log         zerolog.Logger
}

func NewSettingService(settingRepo repository.SettingRepository, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

func (s *SettingService) GetAllSettings(ctx context.Context) (map[string]string, error) {
	stored, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(stored))
	for _, kv := range stored {
		out[kv.Key] = kv.Value
	}
	return out, nil
}

// GetPublicSettings returns the subset of settings exposed to anonymous callers.
func (s *SettingService) GetPublicSettings(ctx context.Context) (map[string]string, error) {
	all, err := s.GetAllSettings(ctx)
	if err != nil {
		return nil, err
	}
	public := make(map[string]string, len(PublicSettingKeys))
	for _, k := range PublicSettingKeys {
		if v, ok := all[k]; ok {
			public[k] = v
		}
	}
	return public, nil
}

// UpdateSettings validates every key before writing any of them. Unknown
// keys are rejected.
func (s *SettingService) UpdateSettings(ctx context.Context, values map[string]string) error {
	verr := &apperr.ValidationError{}
	for key, value := range values {
		rule, ok := settingRules[key]
		if !ok {
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: key, Message: "unknown setting"})
			continue
		}
		if msg := rule(value); msg != "" {
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: key, Message: msg})
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	if err := s.settingRepo.UpsertMany(ctx, values); err != nil {
		s.log.Error().Err(err).Int("count", len(values)).Msg("failed to update settings")
		return err
	}
	s.log.Info().Int("count", len(values)).Msg("settings updated")
	return nil
}

// GetSettingByKey returns "" for a key that was never stored.
func (s *SettingService) GetSettingByKey(ctx context.Context, key string) (string, error) {
	setting, err := s.settingRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}
