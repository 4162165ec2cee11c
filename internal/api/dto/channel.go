package dto

import (
	"github.com/peerwatch/peerwatch/internal/domain/notification"
)

// CreateChannelRequest is the payload for creating a notification channel
type CreateChannelRequest struct {
	Name        string                 `json:"name" validate:"required,min=1,max=200"`
	Description string                 `json:"description,omitempty" validate:"max=1000"`
	Type        string                 `json:"type" validate:"required,oneof=email webhook slack in_app"`
	Config      map[string]interface{} `json:"config,omitempty"`
	IsEnabled   *bool                  `json:"is_enabled,omitempty"`
}

// ToChannel converts the request to a domain channel
func (r *CreateChannelRequest) ToChannel(createdByID string) *notification.Channel {
	enabled := true
	if r.IsEnabled != nil {
		enabled = *r.IsEnabled
	}
	return &notification.Channel{
		Name:        r.Name,
		Description: r.Description,
		Type:        notification.ChannelType(r.Type),
		Config:      r.Config,
		IsEnabled:   enabled,
		CreatedByID: createdByID,
	}
}

// UpdateChannelRequest is the payload for updating a notification channel.
// Type changes are allowed as long as the config matches the new type.
type UpdateChannelRequest struct {
	Name        *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string                `json:"description,omitempty" validate:"omitempty,max=1000"`
	Type        *string                `json:"type,omitempty" validate:"omitempty,oneof=email webhook slack in_app"`
	Config      map[string]interface{} `json:"config,omitempty"`
	IsEnabled   *bool                  `json:"is_enabled,omitempty"`
}

// Apply overlays the request's set fields onto an existing channel
func (r *UpdateChannelRequest) Apply(existing *notification.Channel) {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.Description != nil {
		existing.Description = *r.Description
	}
	if r.Type != nil {
		existing.Type = notification.ChannelType(*r.Type)
	}
	if r.Config != nil {
		existing.Config = r.Config
	}
	if r.IsEnabled != nil {
		existing.IsEnabled = *r.IsEnabled
	}
}
