// Package fetch is the HTTP primitive every source is built on: one GET or
// POST with classification-driven retries and an explicit outcome, never an
// error, for network failures. HTTP error statuses (4xx/5xx) come back as
// ordinary Ok outcomes for the caller to interpret.
package fetch

import (
	"context"
	"net/http/cookiejar"
	"time"

	"gameinsights-backend/internal/assert"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_retry   = "client.retry"
	report_client_request = "client.request"
)

const (
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
	defaultTimeout = 30 * time.Second
)

var instrumentOutput restyutil.InstrumentOutput

// SetInstrumentOutput dumps every request/response pair of clients created
// afterwards to the given output. Debugging aid, nil by default.
func SetInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

type ClientOptions struct {
	BaseUrl string
	// Timeout defaults to 30s.
	Timeout time.Duration
	// Scrape sets up browser impersonation (cookie jar, cloudflare
	// bypass transport, a desktop user agent) for HTML endpoints.
	Scrape bool
}

func NewClient(opts ClientOptions, tel telemetry.API) *Client {
	assert.NotNil(tel)

	httpClient := resty.New()
	if opts.BaseUrl != "" {
		httpClient.SetBaseURL(opts.BaseUrl)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient.SetTimeout(timeout)

	if opts.Scrape {
		jar, err := cookiejar.New(nil)
		if err != nil {
			panic(err)
		}
		httpClient.SetCookieJar(jar)
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
		httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	}

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, nil, instrumentOutput)

	return &Client{http: httpClient, tel: tel}
}

type Request struct {
	Query   map[string]string
	Headers map[string]string
	// Retries is the total attempt ceiling, defaults to 3.
	Retries int
	// Backoff is the first cooldown, doubled after every retryable
	// failure. Defaults to 500ms.
	Backoff time.Duration
}

func (c *Client) Get(ctx context.Context, url string, req Request) Outcome {
	return c.do(ctx, resty.MethodGet, url, nil, req)
}

// PostJson sends body as a JSON request body.
func (c *Client) PostJson(ctx context.Context, url string, body any, req Request) Outcome {
	return c.do(ctx, resty.MethodPost, url, body, req)
}

func (c *Client) do(ctx context.Context, method, url string, body any, req Request) Outcome {
	retries := req.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	backoff := req.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Fatal(err.Error())
		}

		r := c.http.R().SetContext(ctx)
		if len(req.Query) > 0 {
			r.SetQueryParams(req.Query)
		}
		if len(req.Headers) > 0 {
			r.SetHeaders(req.Headers)
		}
		if body != nil {
			r.SetHeader("content-type", "application/json")
			r.SetBody(body)
		}

		resp, err := r.Execute(method, url)
		if err == nil {
			return Ok(resp)
		}
		if ctx.Err() != nil {
			return Fatal(ctx.Err().Error())
		}

		if classify(err) == errorFatal {
			c.tel.ReportBroken(report_client_request, err, method, url)
			return Fatal(err.Error())
		}

		// A cooldown follows every retryable failure, the final one
		// included. Exhaustion is only reported after its cooldown.
		cooldown := backoff * (1 << (attempt - 1))
		c.tel.ReportWarning(report_client_retry, err, attempt, cooldown.String())

		timer := time.NewTimer(cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Fatal(ctx.Err().Error())
		case <-timer.C:
		}

		if attempt >= retries {
			return RetriesExhausted(err.Error())
		}
	}
}
