package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/spachava753/pottery/internal/models"
)

// UploadFieldName is the multipart part that carries file content.
const UploadFieldName = "file"

// Upload is a file sent as a multipart body.
type Upload struct {
	FileName string
	Content  []byte
}

// ErrInvalidRequest marks failures to assemble a request; nothing was sent.
var ErrInvalidRequest = errors.New("invalid request")

// Request describes a single API call. Path is relative to the server URL.
type Request struct {
	Method string
	Path   string
	Form   url.Values
	Upload *Upload
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client issues requests against the grading server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for the server rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the absolute URL for a relative API path. The path is used
// literally: characters with a meaning in URLs, such as a stray "%", are
// escaped rather than interpreted.
func (c *Client) URL(path string) (*url.URL, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing server URL: %w", ErrInvalidRequest, err)
	}
	u.Path = u.Path + "/" + path
	u.RawPath = ""
	return u, nil
}

// Do sends the request and reads the whole reply. A non-2xx status is
// returned as *models.RequestError carrying the reply body; a request that
// cannot be assembled is returned wrapping ErrInvalidRequest.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := c.URL(r.Path)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrInvalidRequest, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("sending request", "method", r.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending %s %s: %w", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.RequestError{StatusCode: resp.StatusCode, Body: data}
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func encodeBody(r Request) (io.Reader, string, error) {
	switch {
	case r.Upload != nil:
		return encodeMultipart(r.Upload, r.Form)
	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

func encodeMultipart(u *Upload, form url.Values) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, values := range form {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("writing form field %s: %w", key, err)
			}
		}
	}

	mtype := mimetype.Detect(u.Content)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadFieldName, u.FileName))
	h.Set("Content-Type", mtype.String())

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(u.Content); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	slog.Debug("encoded upload",
		"file", u.FileName,
		"size", humanize.Bytes(uint64(len(u.Content))),
		"content_type", mtype.String())

	return &buf, w.FormDataContentType(), nil
}
