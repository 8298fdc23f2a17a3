package ultimateguitar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"ugtop-backend/lib/restyutil"
	"ugtop-backend/lib/telemetry"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://www.ultimate-guitar.com"
const DefaultTabsBaseURL = "https://tabs.ultimate-guitar.com"

// TypeKeys are the canonical list types in scrape order.
var TypeKeys = []string{"chords", "tab", "guitar_pro", "ukulele", "bass"}

// canonical type key -> query param value
var typeParams = map[string]string{
	"chords":     "chords",
	"tab":        "tabs",
	"guitar_pro": "pro",
	"ukulele":    "ukulele_chords",
	"bass":       "bass_tabs",
}

const (
	OrderHits   = "hitstotal_desc"
	OrderRating = "rating_desc"
)

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseURL
	BaseUrl string
	// TabsBaseUrl defaults to DefaultTabsBaseURL
	TabsBaseUrl string
	// Cache enables the page cache when non-nil
	Cache *badger.DB
	// CacheTTL defaults to 6 hours
	CacheTTL time.Duration
	// RequestInterval spaces out upstream requests, defaults to 800ms
	RequestInterval time.Duration
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tabsBase string
	limiter  *rate.Limiter
	cache    *pageCache
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseURL
	}
	if opts.TabsBaseUrl == "" {
		opts.TabsBaseUrl = DefaultTabsBaseURL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour * 6
	}
	if opts.RequestInterval <= 0 {
		opts.RequestInterval = time.Millisecond * 800
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	client.SetHeader("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 25)

	if restyInstrumentOutput != nil {
		restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	} else {
		telemetry.InstrumentResty(client, "scrapers/ultimateguitar/http")
	}

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		tabsBase: strings.TrimSuffix(opts.TabsBaseUrl, "/"),
		limiter:  rate.NewLimiter(rate.Every(opts.RequestInterval), 1),
	}
	if opts.Cache != nil {
		c.cache = &pageCache{
			db:      opts.Cache,
			baseUrl: baseUrl,
			ttl:     opts.CacheTTL,
		}
	}
	return c, nil
}

// TabURL builds the canonical URL of a tab, the unique key rows are merged
// on.
func (c *Client) TabURL(id int64) string {
	return fmt.Sprintf("%s/tab/%d", c.tabsBase, id)
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// TopList fetches the raw HTML of a top list. typeKey must be one of
// TypeKeys, order one of OrderHits and OrderRating. Responses are read
// through the page cache when one is configured.
func (c *Client) TopList(ctx context.Context, typeKey, order string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:TopList")
	defer span.End()

	param, ok := typeParams[typeKey]
	if !ok {
		return "", fmt.Errorf("unknown list type: %s", typeKey)
	}
	endpoint := fmt.Sprintf(
		"/top/tabs?order=%s&type=%s",
		url.QueryEscape(order), url.QueryEscape(param),
	)
	span.SetAttributes(
		attribute.String("type", typeKey),
		attribute.String("order", order),
	)

	if c.cache != nil {
		page, err := c.cache.get(ctx, endpoint)
		if err == nil {
			span.AddEvent("page cache hit")
			return string(page.Contents), nil
		}
		if err != errPageNotFound {
			slog.WarnContext(ctx, "failed to read page cache", "endpoint", endpoint, "err", err)
		}
	}

	err := c.limiter.Wait(ctx)
	if err != nil {
		return "", err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch top list")
		return "", err
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		err := fmt.Errorf(
			"unexpected status %d from %s: %s",
			res.StatusCode(), res.Request.URL, excerpt(res.String(), 300),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream returned an error status")
		return "", err
	}

	html := res.String()
	if c.cache != nil {
		err := c.cache.set(ctx, endpoint, []byte(html))
		if err != nil {
			slog.WarnContext(ctx, "failed to write page cache", "endpoint", endpoint, "err", err)
		}
	}
	return html, nil
}
