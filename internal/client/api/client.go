// Package api is a small HTTP client for the LeftOverChef REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/client/models"
	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/netx"
	"github.com/gabriel-vasile/mimetype"
)

// Client talks to one server. It is not safe to change the token while
// requests are in flight.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) { c.token = token }
func (c *Client) Token() string         { return c.token }

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email string, password []byte) (*AuthResponse, error) {
	body := map[string]string{"name": name, "email": email, "password": string(password)}
	out := &AuthResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", body, out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, email string, password []byte) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": string(password)}
	out := &AuthResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out, true); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next []byte) error {
	body := map[string]string{"currentPassword": string(current), "newPassword": string(next)}
	return c.doJSON(ctx, http.MethodPut, "/auth/password", body, nil, true)
}

// Predict uploads an image. The content type is sniffed locally so the
// server sees a proper part header.
func (c *Client) Predict(ctx context.Context, filename string, data []byte) (*models.Prediction, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	req, err := netx.NewMultipartRequest(ctx, c.baseURL+"/ml/predict", netx.FilePart{
		Field:       "image",
		Filename:    filepath.Base(filename),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Data *models.Prediction `json:"data"`
	}
	if err := c.do(req, &out, true); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// History lists predictions. page <= 0 and limit <= 0 ask for everything.
func (c *Client) History(ctx context.Context, page, limit int) (*models.HistoryPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	out := &models.HistoryPage{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Prediction(ctx context.Context, id string) (*models.Prediction, error) {
	var out struct {
		Data *models.Prediction `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/history/"+url.PathEscape(id), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) DeletePrediction(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/history/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) ClearHistory(ctx context.Context) (int64, error) {
	var out struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/history/clear-all", nil, &out, true); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out struct {
		Data *models.Stats `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/history/stats", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Ping checks GET /health.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil, false)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, authed bool) error {
	if authed && c.token == "" {
		return ErrNotLoggedIn
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out, authed)
}

func (c *Client) do(req *http.Request, out any, authed bool) error {
	req.Header.Set("Accept", "application/json")
	if authed {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw := netx.ReadErrorBody(resp)
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: raw}
	}
	return &APIError{Status: resp.StatusCode, Kind: env.Error, Message: env.Message}
}
