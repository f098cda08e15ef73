// Package meeting schedules online meetings for events through the Zoom API.
package meeting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoJoinURL is returned when the provider answers without a join link.
var ErrNoJoinURL = errors.New("meeting created without join URL")

// Scheduler creates meetings and returns their join URL
type Scheduler interface {
	CreateMeeting(ctx context.Context, topic string, start time.Time) (string, error)
}

// Config holds Zoom server-to-server OAuth settings
type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	UserEmail    string
	APIBaseURL   string
	TokenURL     string
	Timeout      time.Duration
	Duration     time.Duration
}

type createMeetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	JoinBeforeHost        bool `json:"join_before_host"`
	MeetingAuthentication bool `json:"meeting_authentication"`
}

type createMeetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

// scheduled meeting type in the Zoom API
const scheduledMeeting = 2

// ZoomClient creates Zoom meetings behind a circuit breaker
type ZoomClient struct {
	httpClient *http.Client
	baseURL    string
	user       string
	duration   time.Duration
	cb         *gobreaker.CircuitBreaker[string]
	logger     zerolog.Logger
}

// NewZoomClient creates a client using the account_credentials grant.
func NewZoomClient(cfg Config, logger zerolog.Logger) *ZoomClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Hour
	}
	user := cfg.UserEmail
	if user == "" {
		user = "me"
	}

	oauthCfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}
	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	log := logger.With().Str("component", "meeting").Logger()

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "zoom-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &ZoomClient{
		httpClient: oauthCfg.Client(ctx),
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		user:       user,
		duration:   cfg.Duration,
		cb:         cb,
		logger:     log,
	}
}

// CreateMeeting schedules a meeting and returns its join URL.
func (c *ZoomClient) CreateMeeting(ctx context.Context, topic string, start time.Time) (string, error) {
	joinURL, err := c.cb.Execute(func() (string, error) {
		return c.create(ctx, topic, start)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Err(err).Msg("meeting request rejected by circuit breaker")
		}
		return "", err
	}
	return joinURL, nil
}

func (c *ZoomClient) create(ctx context.Context, topic string, start time.Time) (string, error) {
	payload, err := json.Marshal(createMeetingRequest{
		Topic:     topic,
		Type:      scheduledMeeting,
		StartTime: start.UTC().Format(time.RFC3339),
		Duration:  int(c.duration / time.Minute),
		Timezone:  "UTC",
		Settings:  meetingSettings{JoinBeforeHost: true},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode meeting request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", c.baseURL, url.PathEscape(c.user))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build meeting request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("meeting request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read meeting response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("meeting API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out createMeetingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode meeting response: %w", err)
	}
	if out.JoinURL == "" {
		return "", ErrNoJoinURL
	}

	c.logger.Debug().Int64("meetingID", out.ID).Str("topic", topic).Msg("meeting created")
	return out.JoinURL, nil
}
