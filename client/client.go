package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tenderportal/internal/apperr"
	"tenderportal/internal/license"
	"tenderportal/internal/policy"
	"tenderportal/internal/service"
	"tenderportal/models"
)

// ErrSessionExpired: сервер ответил 401; сессия уже очищена, нужен повторный вход.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError: ошибка, возвращенная сервером.
type APIError struct {
	Status int
	apperr.Response
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Response.Error)
}

// Retryable сообщает о конфликте параллельного изменения: нужно перечитать состояние и повторить.
func (e *APIError) Retryable() bool {
	return e.Response.Retryable
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

func New(baseURL string, session *Session) *Client {
	if session == nil {
		session = NewSession()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

// Guard применяет к экрану те же правила, что и сервер к маршруту.
func (c *Client) Guard(g policy.Guard) policy.RouteDecision {
	return policy.CheckRoute(c.session.actor(), g)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, _, authed := c.session.Current()
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && authed {
		c.session.Clear()
		return ErrSessionExpired
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Response); err != nil {
			apiErr.Response.Error = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Auth

// Login выполняет вход и инициализирует сессию.
func (c *Client) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	c.session.Clear()
	var res service.LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, service.LoginInput{Email: email, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	c.session.Init(res.AccessToken, res.User)
	return &res, nil
}

func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) Register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) RegisterAdmin(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/auth/admin/register", nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Me перечитывает профиль и обновляет его в сессии.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	c.session.setUser(&u)
	return &u, nil
}

// Tenders

type TenderQuery struct {
	Status        models.TenderStatus
	Category      string
	IncludeDrafts bool
	Limit         int
	Offset        int
}

func (q TenderQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.IncludeDrafts {
		v.Set("include_drafts", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

func (c *Client) ListTenders(ctx context.Context, q TenderQuery) ([]service.TenderView, error) {
	var out []service.TenderView
	err := c.do(ctx, http.MethodGet, "/tenders", q.values(), nil, &out)
	return out, err
}

func (c *Client) GetTender(ctx context.Context, id int64) (*service.TenderView, error) {
	return c.tender(ctx, http.MethodGet, fmt.Sprintf("/tenders/%d", id), nil)
}

func (c *Client) CreateTender(ctx context.Context, in service.CreateTenderInput) (*service.TenderView, error) {
	return c.tender(ctx, http.MethodPost, "/tenders", in)
}

func (c *Client) UpdateTender(ctx context.Context, id int64, in service.UpdateTenderInput) (*service.TenderView, error) {
	return c.tender(ctx, http.MethodPatch, fmt.Sprintf("/tenders/%d", id), in)
}

func (c *Client) PublishTender(ctx context.Context, id int64) (*service.TenderView, error) {
	return c.tender(ctx, http.MethodPost, fmt.Sprintf("/tenders/%d/publish", id), nil)
}

func (c *Client) CloseTender(ctx context.Context, id int64) (*service.TenderView, error) {
	return c.tender(ctx, http.MethodPost, fmt.Sprintf("/tenders/%d/close", id), nil)
}

func (c *Client) AwardTender(ctx context.Context, id, winningBidID int64) (*service.TenderView, error) {
	body := map[string]int64{"winning_bid_id": winningBidID}
	return c.tender(ctx, http.MethodPost, fmt.Sprintf("/tenders/%d/award", id), body)
}

func (c *Client) CancelTender(ctx context.Context, id int64) (*service.TenderView, error) {
	return c.tender(ctx, http.MethodPost, fmt.Sprintf("/tenders/%d/cancel", id), nil)
}

func (c *Client) DeleteTender(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tenders/%d", id), nil, nil, nil)
}

func (c *Client) TenderHistory(ctx context.Context, id int64) ([]models.TenderEvent, error) {
	var out []models.TenderEvent
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tenders/%d/history", id), nil, nil, &out)
	return out, err
}

func (c *Client) tender(ctx context.Context, method, path string, body interface{}) (*service.TenderView, error) {
	var t service.TenderView
	if err := c.do(ctx, method, path, nil, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Bids

func (c *Client) SubmitBid(ctx context.Context, in service.SubmitBidInput) (*service.BidView, error) {
	var b service.BidView
	if err := c.do(ctx, http.MethodPost, "/bids", nil, in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DecideBid(ctx context.Context, bidID int64, status models.BidStatus) (*service.BidView, error) {
	var b service.BidView
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/bids/%d/status", bidID), nil, service.DecideBidInput{Status: status}, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) TenderBids(ctx context.Context, tenderID int64) ([]service.BidView, error) {
	var out []service.BidView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/bids/tender/%d", tenderID), nil, nil, &out)
	return out, err
}

func (c *Client) MyBids(ctx context.Context) ([]service.BidView, error) {
	var out []service.BidView
	err := c.do(ctx, http.MethodGet, "/bids/my", nil, nil, &out)
	return out, err
}

// Users

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in service.UpdateUserInput) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/%d", id), nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// License

func (c *Client) LicenseStatus(ctx context.Context) (*license.Status, error) {
	var st license.Status
	if err := c.do(ctx, http.MethodGet, "/license/status", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ConfigureLicense(ctx context.Context, key string) (*license.Status, error) {
	var st license.Status
	err := c.do(ctx, http.MethodPost, "/license/configure", nil, map[string]string{"license_key": key}, &st)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
