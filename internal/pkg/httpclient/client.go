package httpclient

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// Response is a provider reply. Non-2xx statuses are not errors; callers
// classify them.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// errServerStatus marks a 5xx reply so the breaker counts it as a failure.
var errServerStatus = errors.New("provider server error")

// Client wraps resty for calls to payment provider APIs.
// Payment requests are never retried here: a retry of a request the provider
// already applied could charge or refund twice.
type Client struct {
	r  *resty.Client
	cb *gobreaker.CircuitBreaker
}

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{r: r}
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.r.SetTimeout(d)
	}
	return c
}

// WithBaseURL sets the URL that relative request paths resolve against.
func (c *Client) WithBaseURL(base string) *Client {
	c.r.SetBaseURL(base)
	return c
}

// WithBasicAuth sets HTTP basic credentials on every request.
func (c *Client) WithBasicAuth(user, pass string) *Client {
	c.r.SetBasicAuth(user, pass)
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// WithCircuitBreaker trips after consecutive transport or 5xx failures and
// fails fast while open.
func (c *Client) WithCircuitBreaker(name string) *Client {
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// R returns a new request bound to ctx.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.r.R().SetContext(ctx)
}

// Execute sends req through the circuit breaker.
func (c *Client) Execute(req *resty.Request, method, path string) (*Response, error) {
	call := func() (interface{}, error) {
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, err
		}
		out := &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}
		if out.StatusCode >= 500 {
			return out, errServerStatus
		}
		return out, nil
	}

	if c.cb == nil {
		res, err := call()
		return unwrap(res, err)
	}
	res, err := c.cb.Execute(call)
	return unwrap(res, err)
}

func unwrap(res interface{}, err error) (*Response, error) {
	out, _ := res.(*Response)
	if errors.Is(err, errServerStatus) && out != nil {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Execute(c.R(ctx), resty.MethodGet, path)
}

// Post sends a POST request with JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	req := c.R(ctx).SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	return c.Execute(req, resty.MethodPost, path)
}

// PostForm sends a POST request with form data.
func (c *Client) PostForm(ctx context.Context, path string, data url.Values) (*Response, error) {
	req := c.R(ctx).SetFormDataFromValues(data)
	return c.Execute(req, resty.MethodPost, path)
}
