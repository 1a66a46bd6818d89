package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"packtrack/internal/client/models"
	"packtrack/internal/common"
)

// HTTPClient is the REST implementation of Client. Every request carries the
// bearer token; a 401 anywhere fires the onUnauthorized hook so the session
// provider can tear the session down.
type HTTPClient struct {
	baseURL        string
	http           *http.Client
	token          string
	onUnauthorized func()
}

func NewHTTPClient(baseURL string, onUnauthorized func()) *HTTPClient {
	return &HTTPClient{
		baseURL:        baseURL,
		http:           &http.Client{},
		onUnauthorized: onUnauthorized,
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// dataEnvelope is the {message, data} wrapper the gateway uses on package
// mutations.
type dataEnvelope struct {
	Message string         `json:"message"`
	Data    models.Package `json:"data"`
}

type expectedPackagesResponse struct {
	Packages []struct {
		PackageID string `json:"package_id"`
	} `json:"packages"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	// JoinPath escapes query separators, so split any query off first.
	p, query, _ := strings.Cut(path, "?")
	u, err := url.JoinPath(c.baseURL, p)
	if err != nil {
		return nil, err
	}
	if query != "" {
		u += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// mapStatus converts a non-success HTTP status into a sentinel error.
func (c *HTTPClient) mapStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return common.ErrorUnauthorized
	case status == http.StatusForbidden:
		return common.ErrorUnauthorized
	case status == http.StatusNotFound:
		return common.ErrorNotFound
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status >= 500:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.mapStatus(resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, models.AuthUser, error) {
	body := map[string]string{"username": username, "password": password}

	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/login", body)
	if err != nil {
		return "", models.AuthUser{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", models.AuthUser{}, c.mapStatus(resp.StatusCode)
	}

	var out struct {
		Token string          `json:"token"`
		User  models.AuthUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.AuthUser{}, err
	}
	return out.Token, out.User, nil
}

func (c *HTTPClient) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	path := "/v1/tasks/" + id + "?fields=package_id,cancelled,remarks,created_at"
	if err := c.getJSON(ctx, path, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) GetExpectedPackages(ctx context.Context, taskID string) ([]string, error) {
	var out expectedPackagesResponse
	if err := c.getJSON(ctx, "/v1/expected-packages/"+taskID, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Packages))
	for _, p := range out.Packages {
		ids = append(ids, p.PackageID)
	}
	return ids, nil
}

func (c *HTTPClient) PostExpectedPackages(ctx context.Context, taskID string, packageIDs []string, executive string) ([]string, error) {
	body := map[string]any{
		"task_id":     taskID,
		"package_ids": packageIDs,
		"executive":   executive,
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/expected-packages", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.mapStatus(resp.StatusCode)
	}

	var out expectedPackagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Packages))
	for _, p := range out.Packages {
		ids = append(ids, p.PackageID)
	}
	return ids, nil
}

func (c *HTTPClient) MatchExpected(ctx context.Context, taskID string, packageIDs []string) error {
	body := map[string]any{
		"task_id":     taskID,
		"package_ids": packageIDs,
	}

	resp, err := c.do(ctx, http.MethodPatch, "/v1/packages/match-expected", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapStatus(resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) CreatePackage(ctx context.Context, req CreatePackageRequest) (models.Package, bool, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/packages", req)
	if err != nil {
		return models.Package{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Package{}, false, c.mapStatus(resp.StatusCode)
	}

	var out dataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Package{}, false, err
	}

	// 201 is a clean create; any other 2xx means the identifier already
	// existed at the data layer.
	return out.Data, resp.StatusCode == http.StatusCreated, nil
}

func (c *HTTPClient) PatchPackage(ctx context.Context, id string, cancelled bool) (models.Package, error) {
	body := map[string]bool{"cancelled": cancelled}

	resp, err := c.do(ctx, http.MethodPatch, "/v1/packages/"+id, body)
	if err != nil {
		return models.Package{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Package{}, c.mapStatus(resp.StatusCode)
	}

	var out dataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Package{}, err
	}
	return out.Data, nil
}

func (c *HTTPClient) DeletePackage(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/packages/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapStatus(resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/v1/ping", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.mapStatus(resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) GetConfig(ctx context.Context) (AppConfig, error) {
	var cfg AppConfig
	if err := c.getJSON(ctx, "/v1/config", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
