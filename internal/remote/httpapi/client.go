// Package httpapi implements the remote directory service over its hosted
// REST surface.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/remote"
)

const defaultTimeout = 30 * time.Second

// Client talks to the hosted directory service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu      sync.RWMutex
	session remote.Session
}

// New creates a client for the service at baseURL. apiKey authenticates the
// application itself; admin operations additionally require a SignIn session.
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// GetDataVersion fetches the lightweight version descriptor.
func (c *Client) GetDataVersion(ctx context.Context) (domain.DataVersion, error) {
	var v domain.DataVersion
	if err := c.get(ctx, "/api/v1/version", &v); err != nil {
		return domain.DataVersion{}, err
	}
	return v, nil
}

// FetchBusinesses downloads the complete business dataset.
func (c *Client) FetchBusinesses(ctx context.Context) ([]domain.Business, error) {
	var businesses []domain.Business
	if err := c.get(ctx, "/api/v1/businesses", &businesses); err != nil {
		return nil, err
	}
	return businesses, nil
}

// FetchCategories downloads the complete category dataset.
func (c *Client) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.get(ctx, "/api/v1/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// AddBusiness creates a record and returns it with the server-assigned id
// and timestamps.
func (c *Client) AddBusiness(ctx context.Context, b domain.Business) (domain.Business, error) {
	var created domain.Business
	if err := c.do(ctx, http.MethodPost, "/api/v1/businesses", b, &created); err != nil {
		return domain.Business{}, err
	}
	return created, nil
}

// UpdateBusiness replaces the record with id b.ID.
func (c *Client) UpdateBusiness(ctx context.Context, b domain.Business) error {
	return c.do(ctx, http.MethodPut, "/api/v1/businesses/"+b.ID, b, nil)
}

// DeleteBusiness removes the record.
func (c *Client) DeleteBusiness(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/businesses/"+id, nil, nil)
}

// SignIn exchanges admin credentials for a bearer session.
func (c *Client) SignIn(ctx context.Context, email, accessKey string) (remote.Session, error) {
	body := map[string]string{"email": email, "access_key": accessKey}

	var session remote.Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/sign-in", body, &session); err != nil {
		return remote.Session{}, err
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session, nil
}

// SignOut drops the local session. Best effort on the server side.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.session = remote.Session{}
	c.mu.Unlock()

	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/sign-out", nil, nil); err != nil {
		logger.FromContext(ctx).Warn("Remote sign-out failed", "error", err)
	}
	return nil
}

// IsAdmin reports whether the current session carries the admin role.
func (c *Client) IsAdmin(ctx context.Context) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Admin && c.session.Token != "", nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	c.mu.RLock()
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Error string `json:"error"`
	}
	message := resp.Status
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, message)
	default:
		return fmt.Errorf("%w: %s", domain.ErrRemote, message)
	}
}
