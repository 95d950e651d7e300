package leprosorium

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"karmagrab/internal/components/assert"
	"karmagrab/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultOrigin    = "https://leprosorium.ru"
	DefaultUserAgent = "Karmagrabber"
	DefaultTimeout   = time.Second * 30

	formContentType = "application/x-www-form-urlencoded"
)

// Response is a received http response, whatever its status.
type Response struct {
	Status      int
	Reason      string
	ContentType string
	Body        []byte
}

// Fetcher performs a single request against the site. Transport is the real one.
type Fetcher interface {
	Fetch(ctx context.Context, method, path, body string) (Response, error)
}

type TransportOptions struct {
	// Origin is the scheme and host every path is resolved against.
	Origin    string
	Cookie    string
	UserAgent string
	// Timeout bounds a single request, zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond paces requests, zero or less disables pacing.
	RequestsPerSecond float64
	// CloudflareBypass wraps the round-tripper so requests carry browser-like TLS and headers.
	CloudflareBypass bool
	// Dump receives the full text of every exchange, it may be nil.
	Dump telemetry.InstrumentOutput
}

// Transport owns the keep-alive connection pool to the site. It holds no per-user state.
type Transport struct {
	http *resty.Client
	tel  telemetry.API
}

func NewTransport(opts TransportOptions, tel telemetry.API) (*Transport, error) {
	assert.NotNil(tel)

	if opts.Cookie == "" {
		return nil, fmt.Errorf("transport: empty session cookie")
	}
	origin, err := url.Parse(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("transport: parse origin: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("transport: origin %q must include scheme and host", opts.Origin)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(origin.String(), "/"))
	client.SetHeader("Cookie", opts.Cookie)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Connection", "keep-alive")
	client.SetTimeout(timeout)
	// a 302 is how the site says the cookie was rejected, so it must reach the classifier
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	tel = telemetry.NewScopedAPI("transport", tel)
	telemetry.InstrumentResty(client, tel, opts.Dump)

	return &Transport{http: client, tel: tel}, nil
}

// Fetch performs one round trip. A non-empty body is sent form-encoded as is.
// Only failures to get any response are returned as errors, statuses are left to classify.
func (t *Transport) Fetch(ctx context.Context, method, path, body string) (Response, error) {
	req := t.http.R().SetContext(ctx)
	if body != "" {
		req.SetHeader("Content-Type", formContentType)
		req.SetBody(body)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return Response{}, &TransportError{Method: method, Path: path, Err: err}
	}

	return Response{
		Status:      res.StatusCode(),
		Reason:      reasonPhrase(res.StatusCode(), res.Status()),
		ContentType: res.Header().Get("Content-Type"),
		Body:        res.Body(),
	}, nil
}

// Close releases the idle keep-alive connections.
func (t *Transport) Close() error {
	t.http.GetClient().CloseIdleConnections()
	return nil
}

// reasonPhrase turns "503 Service Unavailable" into "Service Unavailable".
func reasonPhrase(code int, status string) string {
	reason := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if reason == "" {
		return http.StatusText(code)
	}
	return reason
}

// classify interprets a received response identically for every endpoint.
// The body never changes the result for 404 and 302.
func classify(res Response) ([]byte, error) {
	switch res.Status {
	case http.StatusOK:
		return res.Body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusFound:
		return nil, ErrAuthRequired
	default:
		return nil, &UnexpectedStatusError{Code: res.Status, Reason: res.Reason}
	}
}
