package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Config struct {
	BaseURL string        `mapstructure:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StatusError is returned for non-2xx responses from the post or media service.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// Client talks to the post and media services over HTTP and implements
// both PostService and MediaService.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

func NewClient(config Config, httpClient *fasthttp.Client) *Client {
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                      "prappser-composer",
			MaxIdemponentCallAttempts: 1,
		}
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		timeout: config.Timeout,
		http:    httpClient,
	}
}

func (c *Client) CreatePost(ctx context.Context, fields PostFields) (*Post, error) {
	var post Post
	if err := c.do(ctx, fasthttp.MethodPost, "/posts", fields, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, fields PostFields) (*Post, error) {
	var post Post
	if err := c.do(ctx, fasthttp.MethodPut, "/posts/"+url.PathEscape(id), fields, &post); err != nil {
		return nil, err
	}
	if post.ID == "" {
		post.ID = id
	}
	return &post, nil
}

func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	if err := c.do(ctx, fasthttp.MethodGet, "/posts/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) CreateMedia(ctx context.Context, media NewMedia) (*Media, error) {
	var created Media
	if err := c.do(ctx, fasthttp.MethodPost, "/media", media, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	return c.do(ctx, fasthttp.MethodDelete, "/media/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := c.send(ctx, req, resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		statusErr := &StatusError{
			Method:  method,
			Path:    path,
			Code:    code,
			Message: errorMessage(resp.Body(), code),
		}
		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", code).
			Msg("[REMOTE] Request rejected")
		return statusErr
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return c.http.DoDeadline(req, resp, deadline)
	}
	if c.timeout > 0 {
		return c.http.DoTimeout(req, resp, c.timeout)
	}
	return c.http.Do(req, resp)
}

func errorMessage(body []byte, code int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fasthttp.StatusMessage(code)
}
