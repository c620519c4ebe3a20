package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/model"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
	"github.com/knowd-io/knowd/internal/repo"
)

// TokenVerifier checks channel credentials against the upstream service.
// Verification failures mark the integration errored instead of rejecting
// the configuration outright.
type TokenVerifier func(ctx context.Context, channel, token string) error

type IntegrationService struct {
	integrations *repo.IntegrationRepo
	verify       TokenVerifier
}

func NewIntegrationService(integrations *repo.IntegrationRepo, verify TokenVerifier) *IntegrationService {
	return &IntegrationService{integrations: integrations, verify: verify}
}

func supportedIntegration(channel string) bool {
	return channel == "telegram" || channel == "teams"
}

var defaultIntegrations = []model.Integration{
	{Channel: "telegram", Name: "Telegram Bot", Status: model.IntegrationStatusDisconnected},
	{Channel: "teams", Name: "Microsoft Teams", Status: model.IntegrationStatusDisconnected},
}

// SeedDefaults creates placeholder rows for the supported channels so the
// integrations list is complete before anything is configured. Existing rows
// are left as-is.
func (s *IntegrationService) SeedDefaults(ctx context.Context) error {
	for _, def := range defaultIntegrations {
		_, err := s.integrations.GetByChannel(ctx, def.Channel)
		if err == nil {
			continue
		}
		if !errors.Is(err, appErr.ErrNotFound) {
			return err
		}
		integ := def
		integ.UpdatedAt = time.Now().Unix()
		if err := s.integrations.Upsert(ctx, &integ); err != nil {
			return fmt.Errorf("seed integration %s: %w", def.Channel, err)
		}
	}
	return nil
}

// Configure stores a channel connection. Only the last four characters of
// the token are persisted; the full token lives in server configuration.
func (s *IntegrationService) Configure(ctx context.Context, channel, name, token string) (*model.Integration, error) {
	if !supportedIntegration(channel) {
		return nil, fmt.Errorf("%w: unsupported integration channel: %s", appErr.ErrInvalid, channel)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: missing integration name", appErr.ErrInvalid)
	}
	integ := &model.Integration{
		Channel:    channel,
		Name:       name,
		TokenLast4: tokenLast4(token),
		Status:     model.IntegrationStatusConnected,
		UpdatedAt:  time.Now().Unix(),
	}
	if s.verify != nil && token != "" {
		if err := s.verify(ctx, channel, token); err != nil {
			integ.Status = model.IntegrationStatusError
			integ.ErrorMsg = err.Error()
			logutil.GetLogger(ctx).Warn("integration token verification failed",
				zap.String("channel", channel), zap.Error(err))
		}
	}
	if err := s.integrations.Upsert(ctx, integ); err != nil {
		return nil, err
	}
	return integ, nil
}

func (s *IntegrationService) List(ctx context.Context) ([]model.Integration, error) {
	return s.integrations.List(ctx)
}

// Test re-checks a configured channel and updates its stored status.
func (s *IntegrationService) Test(ctx context.Context, channel string) (*model.Integration, error) {
	integ, err := s.integrations.GetByChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	status := model.IntegrationStatusConnected
	errMsg := ""
	if s.verify != nil {
		if verr := s.verify(ctx, channel, ""); verr != nil {
			status = model.IntegrationStatusError
			errMsg = verr.Error()
		}
	}
	now := time.Now().Unix()
	if err := s.integrations.UpdateStatus(ctx, channel, status, errMsg, now); err != nil {
		return nil, err
	}
	integ.Status = status
	integ.ErrorMsg = errMsg
	integ.UpdatedAt = now
	return integ, nil
}

// TouchActive records inbound traffic for the channel.
func (s *IntegrationService) TouchActive(ctx context.Context, channel string) {
	if err := s.integrations.TouchLastActive(ctx, channel, time.Now().Unix()); err != nil {
		logutil.GetLogger(ctx).Warn("touch integration activity failed",
			zap.String("channel", channel), zap.Error(err))
	}
}

func tokenLast4(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[len(token)-4:]
}
