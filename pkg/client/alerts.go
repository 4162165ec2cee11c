package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AlertService handles alert API calls
type AlertService struct {
	client *Client
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	ListOptions
	Status     string
	Severity   string
	SourceType string
	SourceID   string
	RuleID     string
	Tags       []string
}

// SuppressAlertRequest mutes an alert until the given time
type SuppressAlertRequest struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason,omitempty"`
}

// List retrieves a page of alerts
func (s *AlertService) List(ctx context.Context, opts *AlertListOptions) (*Paginated[Alert], error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.SourceType != "" {
			query.Set("source_type", opts.SourceType)
		}
		if opts.SourceID != "" {
			query.Set("source_id", opts.SourceID)
		}
		if opts.RuleID != "" {
			query.Set("rule_id", opts.RuleID)
		}
		if len(opts.Tags) > 0 {
			query.Set("tags", strings.Join(opts.Tags, ","))
		}
	}

	path := "/api/v1/alerts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page Paginated[Alert]
	if err := s.client.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get retrieves a single alert by ID
func (s *AlertService) Get(ctx context.Context, id string) (*Alert, error) {
	var alert Alert
	if err := s.client.doRequest(ctx, "GET", "/api/v1/alerts/"+id, nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Acknowledge transitions an open alert to acknowledged
func (s *AlertService) Acknowledge(ctx context.Context, id, message string) (*Alert, error) {
	body := map[string]string{"message": message}
	var alert Alert
	if err := s.client.doRequest(ctx, "POST", "/api/v1/alerts/"+id+"/acknowledge", body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Resolve transitions an alert to its terminal resolved state
func (s *AlertService) Resolve(ctx context.Context, id, reason string) (*Alert, error) {
	body := map[string]string{"reason": reason}
	var alert Alert
	if err := s.client.doRequest(ctx, "POST", "/api/v1/alerts/"+id+"/resolve", body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Suppress mutes an open alert until the given time
func (s *AlertService) Suppress(ctx context.Context, id string, req SuppressAlertRequest) (*Alert, error) {
	var alert Alert
	if err := s.client.doRequest(ctx, "POST", "/api/v1/alerts/"+id+"/suppress", req, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Delete removes an alert permanently
func (s *AlertService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "DELETE", "/api/v1/alerts/"+id, nil, nil)
}

// Statistics retrieves aggregate alert counts
func (s *AlertService) Statistics(ctx context.Context) (*AlertStatistics, error) {
	var stats AlertStatistics
	if err := s.client.doRequest(ctx, "GET", "/api/v1/alerts/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Notifications lists the delivery records for one alert
func (s *AlertService) Notifications(ctx context.Context, alertID string) ([]Notification, error) {
	var notifications []Notification
	if err := s.client.doRequest(ctx, "GET", "/api/v1/alerts/"+alertID+"/notifications", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
