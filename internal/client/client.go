package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

// Client speaks the researchhub HTTP API on behalf of a Session.
type Client struct {
	http    *resty.Client
	session *Session
}

type apiError struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	Institution string `json:"institution"`
}

type RecentPaper struct {
	Workspace string `json:"workspace"`
	Title     string `json:"title"`
	Date      string `json:"date"`
}

type Dashboard struct {
	Workspaces int           `json:"workspaces"`
	Papers     int           `json:"papers"`
	Chats      int           `json:"chats"`
	Recent     []RecentPaper `json:"recent"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func New(baseURL string, session *Session) *Client {
	if session == nil {
		session = NewSession("")
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(2*time.Minute).
			SetHeader("Accept", "application/json"),
		session: session,
	}
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&apiError{})
	if tok := c.session.Token(); tok != "" {
		r.SetAuthToken(tok)
	}
	return r
}

// check converts a transport failure or error response into a core error.
func (c *Client) check(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.Upstream(op, err)
	}
	if !resp.IsError() {
		return checkDecodable(op, resp)
	}

	body, _ := resp.Error().(*apiError)
	detail := resp.Status()
	code := ""
	if body != nil {
		if body.Detail != "" {
			detail = body.Detail
		}
		code = body.Code
	}
	kind := kindFor(resp.StatusCode(), code)
	if kind == core.KindAuthentication {
		c.session.Clear()
	}
	return &core.Error{Kind: kind, Op: op, Msg: detail}
}

// checkDecodable rejects a success response that was expected to carry a
// JSON result but did not. resty leaves the result untouched for such a body,
// which would otherwise read as an empty answer.
func checkDecodable(op string, resp *resty.Response) error {
	if resp.Request == nil || resp.Request.Result == nil || resp.StatusCode() == http.StatusNoContent {
		return nil
	}
	if ct := resp.Header().Get("Content-Type"); !resty.IsJSONType(ct) {
		return core.Upstream(op, fmt.Errorf("unexpected %s response with content type %q", resp.Status(), ct))
	}
	return nil
}

func kindFor(status int, code string) core.Kind {
	switch core.Kind(code) {
	case core.KindValidation, core.KindNotFound, core.KindAmbiguousTarget, core.KindUnsupportedFormat,
		core.KindEmptyContext, core.KindUpstream, core.KindAuthentication, core.KindConflict:
		return core.Kind(code)
	}
	switch {
	case status == http.StatusUnauthorized:
		return core.KindAuthentication
	case status == http.StatusNotFound:
		return core.KindNotFound
	case status == http.StatusUnsupportedMediaType:
		return core.KindUnsupportedFormat
	case status == http.StatusUnprocessableEntity:
		return core.KindEmptyContext
	case status == http.StatusConflict:
		return core.KindConflict
	case status >= 400 && status < 500:
		return core.KindValidation
	default:
		return core.KindUpstream
	}
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	var out tokenResponse
	resp, err := c.request(ctx).SetBody(req).SetResult(&out).Post("/auth/register")
	if err := c.check(ctx, "Register", resp, err); err != nil {
		return err
	}
	c.session.set(out.AccessToken)
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	var out tokenResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err := c.check(ctx, "Login", resp, err); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return core.Upstream("Login", errors.New("response carried no access token"))
	}
	c.session.set(out.AccessToken)
	return nil
}

// Logout revokes the credential server side and always clears it locally.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session.Authenticated() {
		return nil
	}
	resp, err := c.request(ctx).Post("/auth/logout")
	c.session.Clear()
	return c.check(ctx, "Logout", resp, err)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	resp, err := c.request(ctx).SetResult(&out).Get("/auth/me")
	if err := c.check(ctx, "Me", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	out := []models.Workspace{}
	resp, err := c.request(ctx).SetResult(&out).Get("/workspaces")
	if err := c.check(ctx, "ListWorkspaces", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateWorkspace(ctx context.Context, name string) (*models.Workspace, error) {
	var out models.Workspace
	resp, err := c.request(ctx).SetBody(map[string]string{"name": name}).SetResult(&out).Post("/workspaces")
	if err := c.check(ctx, "CreateWorkspace", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var out models.Workspace
	resp, err := c.request(ctx).SetPathParam("id", id).SetResult(&out).Get("/workspaces/{id}")
	if err := c.check(ctx, "GetWorkspace", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPapers(ctx context.Context, workspaceID string) ([]models.Paper, error) {
	out := []models.Paper{}
	resp, err := c.request(ctx).SetQueryParam("workspaceId", workspaceID).SetResult(&out).Get("/papers")
	if err := c.check(ctx, "ListPapers", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchPapers returns an empty slice when the query matched nothing.
func (c *Client) SearchPapers(ctx context.Context, query string) ([]models.CandidatePaper, error) {
	out := []models.CandidatePaper{}
	resp, err := c.request(ctx).SetQueryParam("q", query).SetResult(&out).Get("/papers/search")
	if err := c.check(ctx, "SearchPapers", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// ImportPaper leaves the target choice to the server when workspaceID is empty.
func (c *Client) ImportPaper(ctx context.Context, paper models.CandidatePaper, workspaceID string) (*models.Paper, error) {
	var out models.Paper
	body := map[string]any{"paper": paper}
	if workspaceID != "" {
		body["workspaceId"] = workspaceID
	}
	resp, err := c.request(ctx).SetBody(body).SetResult(&out).Post("/papers/import")
	if err := c.check(ctx, "ImportPaper", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadPaper(ctx context.Context, workspaceID, filename string, content io.Reader) (*models.Paper, error) {
	var out models.Paper
	resp, err := c.request(ctx).
		SetFileReader("file", filename, content).
		SetFormData(map[string]string{"workspaceId": workspaceID}).
		SetResult(&out).
		Post("/papers/upload")
	if err := c.check(ctx, "UploadPaper", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChatHistory(ctx context.Context, workspaceID string) ([]models.ChatMessage, error) {
	out := []models.ChatMessage{}
	resp, err := c.request(ctx).SetQueryParam("workspaceId", workspaceID).SetResult(&out).Get("/chat/history")
	if err := c.check(ctx, "ChatHistory", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendChat(ctx context.Context, workspaceID, message string) (*models.ChatMessage, error) {
	var out models.ChatMessage
	resp, err := c.request(ctx).
		SetBody(map[string]string{"workspaceId": workspaceID, "message": message}).
		SetResult(&out).
		Post("/chat/send")
	if err := c.check(ctx, "SendChat", resp, err); err != nil {
		return nil, err
	}
	if out.Answer == "" {
		return nil, core.Upstream("SendChat", fmt.Errorf("empty response for workspace %s", workspaceID))
	}
	return &out, nil
}

func (c *Client) ClearChat(ctx context.Context, workspaceID string) error {
	resp, err := c.request(ctx).SetQueryParam("workspaceId", workspaceID).Delete("/chat/history")
	return c.check(ctx, "ClearChat", resp, err)
}

func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	resp, err := c.request(ctx).SetResult(&out).Get("/dashboard")
	if err := c.check(ctx, "Dashboard", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
