// Package backend is the HTTP client for the store backend. Session-scoped
// calls rely on the session cookie the backend sets at login.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/motzkin-store/auth"
	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/cascade"
	"github.com/jrsteele09/motzkin-store/catalog"
	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Route path constants
const (
	RouteLogin      = "/api/login"
	RouteLogout     = "/api/logout"
	RouteAuthStatus = "/api/auth/status"
	RouteSchools    = "/api/schools"
	RouteGrades     = "/api/grades"
	RouteEquipment  = "/api/equipment"
	RouteCart       = "/cart"

	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

var (
	_ auth.Backend    = (*Client)(nil)
	_ cascade.Catalog = (*Client)(nil)
	_ cart.Mirror     = (*Client)(nil)
)

// Client talks to one backend origin.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	jar     *persistentJar
	cookies storage.Store
	timeout time.Duration
	log     zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCookieRecords keeps the session cookies in records between runs.
func WithCookieRecords(records storage.Store) ClientOption {
	return func(c *Client) {
		c.cookies = records
	}
}

// WithTransport replaces the HTTP transport (primarily for testing).
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithLogger sets the logger for per-request debug lines.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a client for the backend at baseURL, which must be absolute.
func New(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[backend.New] invalid base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[backend.New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		timeout: defaultTimeout,
		log:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}

	c.jar, err = newPersistentJar(u, c.cookies, c.log)
	if err != nil {
		return nil, err
	}
	c.http.Jar = c.jar
	c.http.Timeout = c.timeout
	return c, nil
}

// Login posts the credentials. The backend sets the session cookie and
// answers with the user id.
func (c *Client) Login(ctx context.Context, username, password string) (auth.Identity, error) {
	var p identityPayload
	if err := c.do(ctx, http.MethodPost, RouteLogin, nil, loginRequest{Username: username, Password: password}, &p, "Login failed"); err != nil {
		return auth.Identity{}, err
	}
	id, err := p.toIdentity()
	if err != nil {
		return auth.Identity{}, &DecodeError{Endpoint: RouteLogin, Err: err}
	}
	return id, nil
}

// Logout ends the server session. Local cookies are dropped whatever the
// backend answers.
func (c *Client) Logout(ctx context.Context) error {
	defer c.jar.Clear()
	return c.do(ctx, http.MethodPost, RouteLogout, nil, nil, nil, "Logout failed")
}

// Status probes the server session.
func (c *Client) Status(ctx context.Context) (auth.Identity, error) {
	var p identityPayload
	if err := c.do(ctx, http.MethodGet, RouteAuthStatus, nil, nil, &p, "Not authenticated"); err != nil {
		return auth.Identity{}, err
	}
	id, err := p.toIdentity()
	if err != nil {
		return auth.Identity{}, &DecodeError{Endpoint: RouteAuthStatus, Err: err}
	}
	return id, nil
}

// Schools fetches the school list.
func (c *Client) Schools(ctx context.Context) ([]catalog.SelectItem, error) {
	var p []selectItemPayload
	if err := c.do(ctx, http.MethodGet, RouteSchools, nil, nil, &p, "Failed to fetch schools"); err != nil {
		return nil, err
	}
	items, err := toSelectItems(p)
	if err != nil {
		return nil, &DecodeError{Endpoint: RouteSchools, Err: err}
	}
	return items, nil
}

// Grades fetches the grades of a school.
func (c *Client) Grades(ctx context.Context, schoolID int) ([]catalog.SelectItem, error) {
	q := url.Values{"school_id": {strconv.Itoa(schoolID)}}
	var p []selectItemPayload
	if err := c.do(ctx, http.MethodGet, RouteGrades, q, nil, &p, "Failed to fetch grades"); err != nil {
		return nil, err
	}
	items, err := toSelectItems(p)
	if err != nil {
		return nil, &DecodeError{Endpoint: RouteGrades, Err: err}
	}
	return items, nil
}

// Equipment fetches the equipment list of a school grade.
func (c *Client) Equipment(ctx context.Context, schoolID, gradeID int) ([]catalog.EquipmentLine, error) {
	q := url.Values{
		"school_id": {strconv.Itoa(schoolID)},
		"grade_id":  {strconv.Itoa(gradeID)},
	}
	var p equipmentPayload
	if err := c.do(ctx, http.MethodGet, RouteEquipment, q, nil, &p, "Failed to fetch equipment"); err != nil {
		return nil, err
	}
	lines, err := p.toLines()
	if err != nil {
		return nil, &DecodeError{Endpoint: RouteEquipment, Err: err}
	}
	return lines, nil
}

// Cart reads the server-side cart.
func (c *Client) Cart(ctx context.Context) ([]cart.Entry, error) {
	var entries []cart.Entry
	if err := c.do(ctx, http.MethodGet, RouteCart, nil, nil, &entries, "Failed to fetch cart"); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []cart.Entry{}
	}
	return entries, nil
}

// AddToCart stores the entry in the server cart under its client id.
func (c *Client) AddToCart(ctx context.Context, e cart.Entry) error {
	return c.do(ctx, http.MethodPost, RouteCart, nil, e, nil, "Failed to add to cart")
}

// RemoveFromCart deletes one server cart entry.
func (c *Client) RemoveFromCart(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, RouteCart+"/"+url.PathEscape(id), nil, nil, nil, "Failed to remove from cart")
}

// ClearCart empties the server cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, RouteCart, nil, nil, nil, "Failed to clear cart")
}

// do performs one request. Non-2xx answers become *APIError carrying the
// backend's {error} message or fallback.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, fallback string) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encode %s body", path)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Str("request_id", requestID).Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallback
		var ep errorPayload
		if b, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); rerr == nil && json.Unmarshal(b, &ep) == nil && ep.Error != "" {
			msg = ep.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", path)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return &DecodeError{Endpoint: path, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &DecodeError{Endpoint: path, Err: err}
	}
	return nil
}
