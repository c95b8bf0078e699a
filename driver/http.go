package driver

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
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/internal/httpclient"
	"github.com/teranos/composr/logger"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 16 << 20

// HTTPConfig configures an HTTPDriver.
type HTTPConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	AllowPrivate      bool
	Logger            *zap.SugaredLogger
}

// HTTPDriver talks to the remote over JSON/HTTP:
//
//	GET    {base}/resource/{collection}?api:page=N&api:pageSize=M&api:query=[...]
//	GET    {base}/resource/{collection}/{id}
//	PUT    {base}/resource/{collection}/{id}
//	DELETE {base}/resource/{collection}/{id}
type HTTPDriver struct {
	base    *url.URL
	token   string
	client  *httpclient.SaferClient
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewHTTP builds an HTTPDriver with its own SaferClient.
func NewHTTP(cfg HTTPConfig) (*HTTPDriver, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := httpclient.New(timeout, httpclient.Options{AllowPrivate: cfg.AllowPrivate})
	return NewHTTPWithClient(cfg, client)
}

// NewHTTPWithClient builds an HTTPDriver over an existing client.
func NewHTTPWithClient(cfg HTTPConfig, client *httpclient.SaferClient) (*HTTPDriver, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WithHint(errors.New("remote base URL is empty"), "set remote.base_url in am.toml or COMPOSR_REMOTE_BASE_URL")
	}
	base, err := client.ValidateURL(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid remote base URL")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPDriver{
		base:    base,
		token:   cfg.Token,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.OrNop(cfg.Logger),
	}, nil
}

// Collection implements Driver.
func (d *HTTPDriver) Collection(name string) Collection {
	return &httpCollection{d: d, name: name}
}

// Resource implements Driver.
func (d *HTTPDriver) Resource(collection, id string) Resource {
	return &httpResource{d: d, collection: collection, id: id}
}

func (d *HTTPDriver) endpoint(segments ...string) *url.URL {
	u := *d.base
	path := strings.TrimRight(d.base.Path, "/") + "/resource"
	raw := strings.TrimRight(d.base.EscapedPath(), "/") + "/resource"
	for _, s := range segments {
		path += "/" + s
		raw += "/" + url.PathEscape(s)
	}
	u.Path = path
	u.RawPath = raw
	return &u
}

// do sends one request and returns the response body of a 2xx answer.
func (d *HTTPDriver) do(ctx context.Context, method string, u *url.URL, payload any) ([]byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, u.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	d.logger.Debugw("remote request",
		logger.FieldMethod, method,
		logger.FieldPath, u.Path,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldRequestID, requestID,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{Method: method, URL: u.Path, Status: resp.StatusCode, Body: data}
	}
	return data, nil
}

type httpCollection struct {
	d    *HTTPDriver
	name string
}

func (c *httpCollection) Get(ctx context.Context, params Params) ([]Record, error) {
	u := c.d.endpoint(c.name)
	q := url.Values{}
	q.Set("api:page", strconv.Itoa(params.Page))
	if params.PageSize > 0 {
		q.Set("api:pageSize", strconv.Itoa(params.PageSize))
	}
	if len(params.Query) > 0 {
		encoded, err := json.Marshal(params.Query)
		if err != nil {
			return nil, errors.Wrap(err, "encode query")
		}
		q.Set("api:query", string(encoded))
	}
	u.RawQuery = q.Encode()

	data, err := c.d.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var records []Record
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "decode page %d of %s", params.Page, c.name)
	}
	return records, nil
}

type httpResource struct {
	d          *HTTPDriver
	collection string
	id         string
}

func (r *httpResource) Get(ctx context.Context) (Record, error) {
	data, err := r.d.do(ctx, http.MethodGet, r.d.endpoint(r.collection, r.id), nil)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "decode %s/%s", r.collection, r.id)
	}
	return record, nil
}

func (r *httpResource) Update(ctx context.Context, record Record) error {
	_, err := r.d.do(ctx, http.MethodPut, r.d.endpoint(r.collection, r.id), record)
	return err
}

func (r *httpResource) Delete(ctx context.Context) error {
	_, err := r.d.do(ctx, http.MethodDelete, r.d.endpoint(r.collection, r.id), nil)
	return err
}
