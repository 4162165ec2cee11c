package dto

import "time"

// AcknowledgeAlertRequest is the payload for acknowledging an alert
type AcknowledgeAlertRequest struct {
	Message string `json:"message,omitempty" validate:"max=1000"`
}

// ResolveAlertRequest is the payload for resolving an alert
type ResolveAlertRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// SuppressAlertRequest is the payload for suppressing an alert until a future time
type SuppressAlertRequest struct {
	Until  time.Time `json:"until" validate:"required"`
	Reason string    `json:"reason,omitempty" validate:"max=1000"`
}
