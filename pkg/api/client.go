package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/napryag/tg_physio_bot/pkg/domain/scheduling"
	"github.com/napryag/tg_physio_bot/pkg/metrics"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

const defaultTimeout = 15 * time.Second

// Client wraps the clinic backend's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
	metrics    *metrics.BotMetrics
}

// NewClient constructs a backend client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger, m *metrics.BotMetrics) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With().Str("component", "api").Logger(),
		metrics:    m,
	}
}

// WithToken returns a copy that authenticates as the token's owner.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" {
		return LoginResponse{}, errs.New("login response without token").Kind(errs.KindServer)
	}
	return out, nil
}

// ListProviders returns therapists in backend order.
func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	var out []Provider
	if err := c.doJSON(ctx, "providers", http.MethodGet, "/terapeutas", nil, dataOrBare(&out)); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAvailability loads one month of per-day availability. Every call
// issues a request; nothing is cached.
func (c *Client) FetchAvailability(ctx context.Context, providerID int64, month time.Month, year, durationMinutes int) (scheduling.AvailabilityMonth, error) {
	if providerID <= 0 {
		return nil, scheduling.ErrNoProvider
	}
	q := url.Values{}
	q.Set("provider_id", strconv.FormatInt(providerID, 10))
	q.Set("month", strconv.Itoa(int(month)))
	q.Set("year", strconv.Itoa(year))
	q.Set("duration", strconv.Itoa(durationMinutes))

	out := scheduling.AvailabilityMonth{}
	if err := c.doJSON(ctx, "availability", http.MethodGet, "/citas/disponibilidad?"+q.Encode(), nil, dataOrBare(&out)); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAppointment submits a booking.
func (c *Client) CreateAppointment(ctx context.Context, req scheduling.BookingRequest) (BookingResponse, error) {
	var out BookingResponse
	if err := c.doJSON(ctx, "create_appointment", http.MethodPost, "/citas", req, &out); err != nil {
		return BookingResponse{}, err
	}
	return out, nil
}

// ListMyAppointments returns the caller's appointments.
func (c *Client) ListMyAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.doJSON(ctx, "my_appointments", http.MethodGet, "/citas/mis-citas", nil, dataOrBare(&out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint, method, path string, body interface{}, out interface{}) error {
	requestID := uuid.NewString()
	started := time.Now()
	status := "error"
	defer func() {
		c.metrics.ObserveBackend(endpoint, status, time.Since(started).Seconds())
	}()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errs.New("marshal request").Arg("endpoint", endpoint).Wrap(err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errs.New("build request").Arg("endpoint", endpoint).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Str("request_id", requestID).Msg("backend unreachable")
		return errs.New("http request").Kind(errs.KindTransport).Arg("endpoint", endpoint).Wrap(err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New("read response").Kind(errs.KindTransport).Arg("endpoint", endpoint).Wrap(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		_ = json.Unmarshal(respBody, &env)
		msg := env.text()

		snippet := string(respBody)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Str("body", snippet).
			Msg("backend non-2xx response")

		e := errs.New("backend returned error").
			Kind(errs.KindServer).
			Arg("endpoint", endpoint).
			Arg("status", resp.StatusCode)
		if msg != "" {
			e = e.User(msg)
		}
		return e
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errs.New("decode response").Kind(errs.KindTransport).Arg("endpoint", endpoint).Wrap(err)
	}
	return nil
}

// dataOrBare decodes either a bare JSON value or one wrapped in {"data": ...}.
type dataOrBareValue struct {
	target interface{}
}

func dataOrBare(target interface{}) *dataOrBareValue {
	return &dataOrBareValue{target: target}
}

func (d *dataOrBareValue) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && len(wrapped.Data) > 0 && string(wrapped.Data) != "null" {
			return json.Unmarshal(wrapped.Data, d.target)
		}
	}
	return json.Unmarshal(trimmed, d.target)
}
