package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 20 * time.Second
	probeTimeout   = 5 * time.Second
	//nolint:gosec // header name constant, not a credential
	apiKeyHeader = "X-Api-Key"
	apiBase      = "/api/v3"
)

// ClientConfig contains configuration for creating a remote client.
type ClientConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// client provides HTTP communication shared by both remotes.
type client struct {
	service     Service
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	probeClient *http.Client
	logger      zerolog.Logger
}

func newClient(service Service, cfg ClientConfig) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &client{
		service: service,
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// The connectivity probe must stay low-cost even when the
		// remote hangs, so it gets its own short deadline.
		probeClient: &http.Client{
			Timeout: probeTimeout,
		},
		logger: cfg.Logger.With().
			Str("component", string(service)+"-client").
			Logger(),
	}
}

// do executes an HTTP request with the API key header and maps transport
// and status failures onto the error taxonomy.
func (c *client) do(ctx context.Context, hc *http.Client, method, path string, body []byte) (*http.Response, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, wrapError(c.service, method+" "+path, ErrNotConfigured, "missing URL or API key")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiBase+path, reader)
	if err != nil {
		return nil, wrapError(c.service, method+" "+path, ErrProtocol, err.Error())
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Msg("executing request")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, wrapError(c.service, method+" "+path, ErrConnection, err.Error())
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	sentinel := ErrProtocol
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrAuth
	case http.StatusNotFound:
		sentinel = ErrNotFound
	}

	return nil, wrapError(c.service, method+" "+path, sentinel,
		fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))))
}

// getJSON executes a GET request and decodes the JSON response.
func (c *client) getJSON(ctx context.Context, path string, result interface{}) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return wrapError(c.service, "GET "+path, ErrProtocol, "failed to decode response: "+err.Error())
	}

	return nil
}

// putJSON executes a PUT request with a JSON body, discarding the response.
func (c *client) putJSON(ctx context.Context, path string, body []byte) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// fetchQualityProfiles returns the quality profiles configured on the
// remote. Both remotes share the same endpoint shape.
func (c *client) fetchQualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.getJSON(ctx, "/qualityprofile", &profiles); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(profiles)).Msg("fetched quality profiles")
	return profiles, nil
}

// testConnection probes the remote's system status endpoint. It never
// returns an error; the outcome is folded into the status value.
func (c *client) testConnection(ctx context.Context) ConnectionStatus {
	var status struct {
		Version string `json:"version"`
	}

	now := time.Now().UTC()
	result := ConnectionStatus{CheckedAt: &now}

	resp, err := c.do(ctx, c.probeClient, http.MethodGet, "/system/status", nil)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		result.Message = "failed to decode system status: " + err.Error()
		return result
	}

	result.Connected = true
	result.Version = status.Version
	result.Message = "Connected"
	if status.Version != "" {
		result.Message = "Connected (v" + status.Version + ")"
	}

	c.logger.Debug().Str("version", status.Version).Msg("connection test successful")
	return result
}

// unmonitorPayload rewrites the raw resource document with monitored set
// to false. The remotes replace the whole resource on PUT, so everything
// else is carried through untouched.
func unmonitorPayload(raw json.RawMessage) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["monitored"] = false
	return json.Marshal(doc)
}
