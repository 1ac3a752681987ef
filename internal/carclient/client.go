// Package carclient verifies cars against car-service.
package carclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Exists reports whether GET /api/cars/{id} answers 200. Every other
// outcome, including transport errors and timeouts, is false.
func (c *Client) Exists(ctx context.Context, carID string) bool {
	u := c.BaseURL + "/api/cars/" + url.PathEscape(carID)
	log := c.logger.With(zap.String("car_id", carID), zap.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Error("build car request", zap.Error(err))
		return false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Error("car-service unreachable", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		log.Info("car exists")
		return true
	case http.StatusNotFound:
		log.Warn("car not found")
		return false
	default:
		log.Error("unexpected status from car-service", zap.Int("status", resp.StatusCode))
		return false
	}
}
