package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"examia/internal/apperr"
	"examia/internal/auth"
	"examia/internal/model"
)

// envelope is the single response shape of the catalog API.
type envelope struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type questionPayload struct {
	Subject       string     `json:"subject"`
	Year          int        `json:"year"`
	Mode          model.Mode `json:"mode"`
	Bucket        string     `json:"bucket"`
	Question      string     `json:"question"`
	Solution      string     `json:"solution,omitempty"`
	SolutionImage string     `json:"solution_image,omitempty"`
}

type idPayload struct {
	ID string `json:"id"`
}

// Remote talks to one catalog server. Transport failures and responses that
// are not the catalog envelope come back as apperr.ErrUnavailable.
type Remote struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

// RemoteOption customizes a Remote.
type RemoteOption func(*fasthttp.Client)

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) RemoteOption {
	return func(c *fasthttp.Client) { c.Dial = dial }
}

// NewRemote builds a client for baseURL, e.g. "https://catalog.example.com".
func NewRemote(baseURL string, timeout time.Duration, opts ...RemoteOption) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &fasthttp.Client{
		Name:         "examia-cli",
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Remote{baseURL: baseURL, timeout: timeout, client: c}
}

// BaseURL returns the configured endpoint.
func (r *Remote) BaseURL() string { return r.baseURL }

func (r *Remote) do(ctx context.Context, method, path string, query url.Values, body any, c auth.Capability, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := r.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+string(c))
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		return apperr.Unavailable(err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return apperr.Unavailable(fmt.Errorf("%s %s: unexpected response (status %d): %w", method, path, resp.StatusCode(), err))
	}
	if env.Error != nil {
		return apperr.FromCode(env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode() >= fasthttp.StatusBadRequest {
		return apperr.Unavailable(fmt.Errorf("%s %s: status %d without error body", method, path, resp.StatusCode()))
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperr.Unavailable(errors.New("response has no data"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Unavailable(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func filterQuery(f model.Filter) url.Values {
	q := url.Values{}
	if f.Subject != "" {
		q.Set("subject", f.Subject)
	}
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Mode != "" {
		q.Set("mode", string(f.Mode))
	}
	if f.Bucket != "" {
		q.Set("bucket", f.Bucket)
	}
	return q
}

func (r *Remote) Login(ctx context.Context, identity, secret string) (auth.Capability, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"identity": identity, "secret": secret}
	if err := r.do(ctx, fasthttp.MethodPost, "/admin/login", nil, body, "", &out); err != nil {
		return "", err
	}
	return auth.Capability(out.Token), nil
}

func (r *Remote) Query(ctx context.Context, f model.Filter) ([]model.Question, error) {
	out := []model.Question{}
	if err := r.do(ctx, fasthttp.MethodGet, "/questions", filterQuery(f), nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Buckets asks the server for the sorted bucket names under f. f.Bucket is ignored.
func (r *Remote) Buckets(ctx context.Context, f model.Filter) ([]string, error) {
	f.Bucket = ""
	out := []string{}
	if err := r.do(ctx, fasthttp.MethodGet, "/buckets", filterQuery(f), nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Remote) Insert(ctx context.Context, q model.Question, c auth.Capability) (string, error) {
	body := questionPayload{
		Subject:       q.Subject,
		Year:          q.Year,
		Mode:          q.Mode,
		Bucket:        q.Bucket,
		Question:      q.Question,
		Solution:      q.Solution,
		SolutionImage: q.SolutionImage,
	}
	var out idPayload
	if err := r.do(ctx, fasthttp.MethodPost, "/questions", nil, body, c, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (r *Remote) Delete(ctx context.Context, id string, c auth.Capability) error {
	return r.do(ctx, fasthttp.MethodDelete, "/questions/"+url.PathEscape(id), nil, nil, c, nil)
}

func (r *Remote) Upload(ctx context.Context, req model.UploadRequest, c auth.Capability) (*model.ImageAsset, error) {
	var out model.ImageAsset
	if err := r.do(ctx, fasthttp.MethodPost, "/upload-solution-image", nil, req, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
