package client

import "context"

// ChannelService handles notification channel API calls
type ChannelService struct {
	client *Client
}

// CreateChannelRequest represents a request to create a channel
type CreateChannelRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type"`
	Config      map[string]interface{} `json:"config,omitempty"`
	IsEnabled   *bool                  `json:"is_enabled,omitempty"`
}

// UpdateChannelRequest represents a request to update a channel
type UpdateChannelRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Type        *string                `json:"type,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	IsEnabled   *bool                  `json:"is_enabled,omitempty"`
}

// List retrieves all channels
func (s *ChannelService) List(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	if err := s.client.doRequest(ctx, "GET", "/api/v1/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// Get retrieves a single channel by ID
func (s *ChannelService) Get(ctx context.Context, id string) (*Channel, error) {
	var channel Channel
	if err := s.client.doRequest(ctx, "GET", "/api/v1/channels/"+id, nil, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// Create creates a new channel
func (s *ChannelService) Create(ctx context.Context, req CreateChannelRequest) (*Channel, error) {
	var channel Channel
	if err := s.client.doRequest(ctx, "POST", "/api/v1/channels", req, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// Update updates an existing channel
func (s *ChannelService) Update(ctx context.Context, id string, req UpdateChannelRequest) (*Channel, error) {
	var channel Channel
	if err := s.client.doRequest(ctx, "PUT", "/api/v1/channels/"+id, req, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// Delete deletes a channel
func (s *ChannelService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "DELETE", "/api/v1/channels/"+id, nil, nil)
}

// Test sends a probe notification through the channel
func (s *ChannelService) Test(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "POST", "/api/v1/channels/"+id+"/test", nil, nil)
}
