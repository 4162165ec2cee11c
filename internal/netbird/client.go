package netbird

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
)

// Client reads peer and group state from a NetBird management API. It
// implements the read side only; peerwatch never writes upstream.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a management API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type apiPeer struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	IP              string     `json:"ip"`
	OS              string     `json:"os"`
	Version         string     `json:"version"`
	Connected       bool       `json:"connected"`
	LastSeen        *time.Time `json:"last_seen"`
	AccountID       string     `json:"account_id"`
	CreatedAt       time.Time  `json:"created_at"`
	CountryCode     string     `json:"country_code"`
	CityName        string     `json:"city_name"`
	UIVersion       string     `json:"ui_version"`
	SSHEnabled      bool       `json:"ssh_enabled"`
	InactiveExpired bool       `json:"login_expired"`
}

type apiGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
	Peers     []struct {
		ID string `json:"id"`
	} `json:"peers"`
}

// Peers implements netmap.Provider
func (c *Client) Peers(ctx context.Context) ([]*netmap.Peer, error) {
	var raw []apiPeer
	if err := c.get(ctx, "/api/peers", &raw); err != nil {
		return nil, err
	}

	peers := make([]*netmap.Peer, 0, len(raw))
	for _, p := range raw {
		status := netmap.PeerDisconnected
		if p.Connected {
			status = netmap.PeerConnected
		}
		firstSeen := p.CreatedAt
		if firstSeen.IsZero() && p.LastSeen != nil {
			firstSeen = *p.LastSeen
		}
		peers = append(peers, &netmap.Peer{
			ID:              p.ID,
			AccountID:       p.AccountID,
			Name:            p.Name,
			IP:              p.IP,
			OS:              p.OS,
			Version:         p.Version,
			Status:          status,
			LastSeen:        p.LastSeen,
			FirstSeenAt:     firstSeen,
			CreatedAt:       p.CreatedAt,
			LocationCountry: p.CountryCode,
			LocationCity:    p.CityName,
			Desktop:         p.UIVersion != "",
			SSHEnabled:      p.SSHEnabled,
		})
	}
	return peers, nil
}

// Groups implements netmap.Provider
func (c *Client) Groups(ctx context.Context) ([]*netmap.Group, error) {
	var raw []apiGroup
	if err := c.get(ctx, "/api/groups", &raw); err != nil {
		return nil, err
	}

	groups := make([]*netmap.Group, 0, len(raw))
	for _, g := range raw {
		ids := make([]string, 0, len(g.Peers))
		for _, p := range g.Peers {
			ids = append(ids, p.ID)
		}
		groups = append(groups, &netmap.Group{
			ID:        g.ID,
			AccountID: g.AccountID,
			Name:      g.Name,
			PeerIDs:   ids,
		})
	}
	return groups, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("management API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("management API returned status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
