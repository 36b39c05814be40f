package platform

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// APIPrefix is the REST root of a GitLab-style instance.
const APIPrefix = "/api/v4"

// DefaultPerPage is the page size requested from paginated endpoints.
const DefaultPerPage = 100

// Client is a token-authenticated HTTP client for a GitLab-style REST API.
type Client struct {
	baseURL    string
	token      string
	perPage    int
	httpClient *http.Client
}

// NewClient creates a Client from a Connection.
func NewClient(conn *models.Connection) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if conn.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if conn.CACert != "" {
		caCertPool := x509.NewCertPool()
		if caCertPool.AppendCertsFromPEM([]byte(conn.CACert)) {
			transport.TLSClientConfig = &tls.Config{RootCAs: caCertPool}
		}
	}
	return &Client{
		baseURL:    conn.BaseURL() + APIPrefix,
		token:      conn.Token,
		perPage:    DefaultPerPage,
		httpClient: &http.Client{Transport: transport},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 200))
}

// IsNotFound reports whether err is a 404 from the remote API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 or 403 from the remote API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}

func (c *Client) do(ctx context.Context, method, rawURL, path string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.Header, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, resp.Header, nil
}

// Get performs an authenticated GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	body, _, err := c.do(ctx, http.MethodGet, u, path)
	return body, err
}

// GetJSON performs an authenticated GET and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

// GetAll fetches all pages of a list endpoint, following X-Next-Page.
func (c *Client) GetAll(ctx context.Context, path string, params url.Values) ([]models.Resource, error) {
	var all []models.Resource
	err := c.pages(ctx, path, params, func(body []byte) error {
		var page []models.Resource
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []models.Resource{}
	}
	return all, nil
}

// GetValue fetches an endpoint as a generic JSON value. List responses are
// concatenated across pages; object responses are returned as-is.
func (c *Client) GetValue(ctx context.Context, path string) (interface{}, error) {
	var (
		list   []interface{}
		single interface{}
	)
	err := c.pages(ctx, path, nil, func(body []byte) error {
		var v interface{}
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if items, ok := v.([]interface{}); ok {
			list = append(list, items...)
			return nil
		}
		single = v
		return errStopPaging
	})
	if err != nil {
		return nil, err
	}
	if single != nil {
		return single, nil
	}
	if list == nil {
		list = []interface{}{}
	}
	return list, nil
}

var errStopPaging = errors.New("stop paging")

func (c *Client) pages(ctx context.Context, path string, params url.Values, fn func([]byte) error) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if q.Get("per_page") == "" {
		q.Set("per_page", strconv.Itoa(c.perPage))
	}
	page := "1"
	for page != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.Set("page", page)
		body, header, err := c.do(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), path)
		if err != nil {
			return err
		}
		if err := fn(body); err != nil {
			if errors.Is(err, errStopPaging) {
				return nil
			}
			return err
		}
		page = strings.TrimSpace(header.Get("X-Next-Page"))
	}
	return nil
}

// Ping checks connectivity and credentials against the version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Get(ctx, "/version", nil)
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
