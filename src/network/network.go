package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio-dashboard/src/helpers"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"
)

// APINetworkManager issues GET requests against the dashboard backend.
// It never retries: a failed request is reported once and the caller moves on.
type APINetworkManager struct {
	Config  *models.MConfig
	BaseURL *url.URL
	Client  *http.Client
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAPINetworkManager(cfg *models.MConfig, log *logger.Logger) (*APINetworkManager, error) {
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url '%s': %w", cfg.API.BaseURL, err)
	}

	nm := &APINetworkManager{
		Config:  cfg,
		BaseURL: base,
		Logger:  log,
	}
	client, err := nm.createClient()
	if err != nil {
		return nil, err
	}
	nm.Client = client
	return nm, nil
}

// -----------------------------------------------------------------------------

func (nm *APINetworkManager) createClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.Config.Network.Proxy != "" {
		proxyURL, err := helpers.ParseProxy(nm.Config.Network.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	// Timeout 0 leaves requests unbounded
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}, nil
}

// -----------------------------------------------------------------------------

// resolve joins an endpoint path onto the base URL, keeping any base path prefix.
func (nm *APINetworkManager) resolve(path string, params map[string]string) string {
	u := *nm.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// -----------------------------------------------------------------------------

// Get performs a single GET request and returns the body of a 2xx response.
func (nm *APINetworkManager) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	finalURL := nm.resolve(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("GET %s", path), err)
	}
	req.Header.Set("Accept", "application/json")
	if nm.Config.Network.UserAgent != "" {
		req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
	}

	start := time.Now()
	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("GET %s", path), err)
	}
	defer resp.Body.Close()

	nm.Logger.Debug("GET %s %s (%v)", path, resp.Status, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, helpers.NewFetchError(fmt.Sprintf("GET %s", path), fmt.Errorf("bad status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("GET %s", path), err)
	}

	return body, nil
}
