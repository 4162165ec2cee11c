package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

// CreateChannel validates and persists a notification channel
func (s *NotificationService) CreateChannel(ctx context.Context, ch *notification.Channel) (*notification.Channel, error) {
	if !ch.Type.IsValid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown channel type %q", ch.Type))
	}
	if err := validateChannelConfig(ch.Type, ch.Config); err != nil {
		return nil, err
	}

	now := time.Now()
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	ch.CreatedAt = now
	ch.UpdatedAt = now

	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, errors.DatabaseError("failed to create channel", err)
	}
	return ch, nil
}

// GetChannel retrieves a channel by ID
func (s *NotificationService) GetChannel(ctx context.Context, id string) (*notification.Channel, error) {
	return s.channels.GetByID(ctx, id)
}

// UpdateChannel validates and persists channel changes
func (s *NotificationService) UpdateChannel(ctx context.Context, ch *notification.Channel) (*notification.Channel, error) {
	existing, err := s.channels.GetByID(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if !ch.Type.IsValid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown channel type %q", ch.Type))
	}
	if err := validateChannelConfig(ch.Type, ch.Config); err != nil {
		return nil, err
	}

	ch.CreatedAt = existing.CreatedAt
	ch.UpdatedAt = time.Now()
	if err := s.channels.Update(ctx, ch); err != nil {
		return nil, errors.DatabaseError("failed to update channel", err)
	}
	return ch, nil
}

// DeleteChannel removes a channel. In-flight notifications keep their config
// snapshot and are unaffected.
func (s *NotificationService) DeleteChannel(ctx context.Context, id string) error {
	if _, err := s.channels.GetByID(ctx, id); err != nil {
		return err
	}
	return s.channels.Delete(ctx, id)
}

// ListChannels retrieves all channels
func (s *NotificationService) ListChannels(ctx context.Context) ([]*notification.Channel, error) {
	return s.channels.List(ctx)
}

// validateChannelConfig checks the per-type required config keys
func validateChannelConfig(t notification.ChannelType, config map[string]interface{}) error {
	switch t {
	case notification.ChannelEmail:
		if len(notification.ConfigStrings(config, "recipients")) == 0 &&
			notification.ConfigString(config, "recipient") == "" {
			return errors.BadRequest("email channel requires recipients")
		}
	case notification.ChannelWebhook:
		if notification.ConfigString(config, "url") == "" {
			return errors.BadRequest("webhook channel requires url")
		}
	case notification.ChannelSlack:
		if notification.ConfigString(config, "webhook_url") == "" {
			return errors.BadRequest("slack channel requires webhook_url")
		}
	case notification.ChannelInApp:
		// user_id is optional; without it delivery broadcasts
	}
	return nil
}
