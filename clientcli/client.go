package clientcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/boxgate"
)

// DefaultTimeout is the default HTTP client timeout for metadata calls.
// Uploads and downloads are bounded by their context only.
const DefaultTimeout = 30 * time.Second

// tokenParam is the query parameter carrying the access token.
const tokenParam = "t"

// Client performs operations against a boxgate server.
type Client struct {
	config     *Config
	endpoint   *url.URL
	httpClient *http.Client
	// transfer has no overall timeout; large media can take a while.
	transfer *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		c.transfer = client
	}
}

// WithTimeout sets the HTTP client timeout for metadata calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	endpoint, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("parse endpoint %q: scheme must be http or https", cfg.Endpoint)
	}

	c := &Client{
		config:     cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		transfer:   &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ParseBoxArg accepts "box-07", "07" or "7" and returns the box.
func ParseBoxArg(arg string) (boxgate.Box, error) {
	s := strings.TrimSpace(arg)
	if s != "" && len(s) <= 2 && strings.Trim(s, "0123456789") == "" {
		s = "box-" + strings.Repeat("0", 2-len(s)) + s
	}
	return boxgate.ParseBox(s)
}

// buildURL joins the endpoint with path and adds the token plus extra query
// values.
func (c *Client) buildURL(path string, query url.Values) string {
	u := *c.endpoint
	u.Path = c.endpoint.Path + path
	u.RawPath = ""

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set(tokenParam, c.config.Token)
	u.RawQuery = q.Encode()
	return u.String()
}

func boxPath(box boxgate.Box, rest string) string {
	return "/media/" + box.String() + rest
}

// do sends req and decodes a 200 JSON body into out. Other statuses become
// an *APIError.
func (c *Client) do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseServerError(resp, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// List returns every object in box.
func (c *Client) List(ctx context.Context, box boxgate.Box) (*ListResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(boxPath(box, "/list"), nil), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var items []Entry
	if err := c.do(c.httpClient, req, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Entry{}
	}

	return &ListResult{Box: box.String(), Items: items}, nil
}

// Upload sends every file in paths as one multipart request. The body is
// streamed; files are not buffered in memory.
func (c *Client) Upload(ctx context.Context, box boxgate.Box, paths []string) (*UploadResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("upload: %w", ErrNoPaths)
	}
	for _, p := range paths {
		if p == "" {
			return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("upload: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("upload %s: %w", p, ErrIsDirectory)
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, paths))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(boxPath(box, "/upload"), nil), pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var ok serverOK
	if err := c.do(c.transfer, req, &ok); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}

	result := &UploadResult{Box: box.String()}
	for _, p := range paths {
		result.Files = append(result.Files, filepath.Base(p))
	}
	if ok.Saved != nil {
		result.Saved = *ok.Saved
	}
	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeParts(mw *multipart.Writer, paths []string) error {
	for _, p := range paths {
		if err := writePart(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, path string) error {
	f, err := os.Open(path) //#nosec G304 -- path is user-provided input
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(filepath.Base(path))))
	h.Set("Content-Type", boxgate.DetectContentType(path))

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("write part: %w", err)
	}
	return nil
}

// Download fetches one object, optionally a single byte range.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, box boxgate.Box, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.Name == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(boxPath(box, "/"+opts.Name), nil), http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if opts.Range != "" {
		req.Header.Set("Range", opts.Range)
	}

	resp, err := c.transfer.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp, body)
	}

	result := &DownloadResult{
		Box:          box.String(),
		Name:         opts.Name,
		ETag:         strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType:  resp.Header.Get("Content-Type"),
		ContentRange: resp.Header.Get("Content-Range"),
		Size:         resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filepath.Base(opts.Name)
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more files from box.
// Continues on error, collecting results for all names.
func (c *Client) Delete(ctx context.Context, box boxgate.Box, names ...string) ([]DeleteResult, error) {
	if len(names) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]DeleteResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.deleteSingle(ctx, box, name))
	}
	return results, nil
}

func (c *Client) deleteSingle(ctx context.Context, box boxgate.Box, name string) DeleteResult {
	query := url.Values{"name": {name}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.buildURL(boxPath(box, "/file"), query), http.NoBody)
	if err != nil {
		return DeleteResult{Name: name, Err: fmt.Errorf("create request: %w", err)}
	}

	if err := c.do(c.httpClient, req, nil); err != nil {
		return DeleteResult{Name: name, Err: err}
	}
	return DeleteResult{Name: name, Deleted: true}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Clear deletes every object in box.
func (c *Client) Clear(ctx context.Context, box boxgate.Box) (*ClearResult, error) {
	query := url.Values{"all": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.buildURL(boxPath(box, ""), query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var ok serverOK
	if err := c.do(c.httpClient, req, &ok); err != nil {
		return nil, err
	}

	result := &ClearResult{Box: box.String()}
	if ok.Deleted != nil {
		result.Deleted = *ok.Deleted
	}
	return result, nil
}

// RedirectExists asks whether key has a usable redirect target. A nil error
// also proves the token is accepted.
func (c *Client) RedirectExists(ctx context.Context, key string) (bool, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return false, ErrEmptyKey
	}

	query := url.Values{"check": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("/"+key, query), http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	var ok serverOK
	if err := c.do(c.httpClient, req, &ok); err != nil {
		return false, err
	}
	return ok.Exists != nil && *ok.Exists, nil
}

// Resolve returns the target key redirects to without following it.
func (c *Client) Resolve(ctx context.Context, key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrEmptyKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("/"+key, nil), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	noFollow := *c.httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noFollow.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		return "", parseServerError(resp, body)
	}
	return resp.Header.Get("Location"), nil
}

// Verify checks that the endpoint is reachable and accepts the token.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.RedirectExists(ctx, "box-01")
	return err
}

// parseServerError builds an *APIError from a failed response.
func parseServerError(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var se serverError
	if err := json.Unmarshal(body, &se); err == nil && se.Error != "" {
		apiErr.Code = se.Error
	} else {
		apiErr.Code = strings.TrimSpace(string(body))
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	// Code is the gateway's error code, e.g. "not_found".
	Code string
	// RetryAfter is set on 429 responses.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := "server error: " + strconv.Itoa(e.StatusCode)
	if e.Code != "" {
		msg += " - " + e.Code
	}
	if e.RetryAfter > 0 {
		msg += " (retry after " + e.RetryAfter.String() + ")"
	}
	return msg
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested object or redirect does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the token is missing or wrong (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrTooManyRequests is returned when the client is rate limited or locked out (429).
	ErrTooManyRequests = &APIError{StatusCode: http.StatusTooManyRequests}
)
