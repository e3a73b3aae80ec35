package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/config"

	"github.com/sirupsen/logrus"
)

// Endpoint keys understood by the university API
const (
	EndpointFajr        = "Fajr_Namaz_Talabat"
	EndpointMaghribIsha = "Maghrib_Isha_Talabat"
	EndpointDua         = "Dua_Talabat"
)

// Endpoints lists every prayer endpoint the daily sync covers
var Endpoints = []string{EndpointFajr, EndpointMaghribIsha, EndpointDua}

// Row is one loosely-typed attendance row as returned upstream
type Row map[string]interface{}

// Client fetches attendance rows from the university API.
// Transport errors, timeouts and malformed payloads all degrade to an
// empty result set; callers cannot distinguish "no data" from
// "upstream unreachable" and must treat both the same way.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client from the loaded application config
func NewClient() *Client {
	return &Client{
		baseURL: config.AppConfig.UpstreamBaseURL,
		token:   config.AppConfig.UpstreamToken,
		httpClient: &http.Client{
			Timeout: config.AppConfig.UpstreamTimeout,
		},
	}
}

// NewClientWith builds a client with explicit parameters (used by tests)
func NewClientWith(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchAttendance retrieves raw rows for one endpoint and date window.
// frm and to are YYYY-MM-DD strings.
func (c *Client) FetchAttendance(endpoint, frm, to string) []Row {
	reqURL := fmt.Sprintf("%s/%s?token=%s&frm=%s&to=%s",
		c.baseURL, endpoint, url.QueryEscape(c.token), frm, to)

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"from":     frm,
			"to":       to,
		}).WithError(err).Error("Upstream attendance fetch failed")
		return []Row{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Error("Upstream attendance fetch returned non-2xx status")
		return []Row{}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.WithError(err).Error("Failed to read upstream response body")
		return []Row{}
	}

	return parseResponse(endpoint, body)
}

// parseResponse accepts either a bare JSON array or {"results": [...]};
// any other shape yields an empty slice.
func parseResponse(endpoint string, body []byte) []Row {
	var rows []Row
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows
	}

	var wrapped struct {
		Results []Row `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results
	}

	logrus.WithField("endpoint", endpoint).Warn("Unexpected upstream response format")
	return []Row{}
}
