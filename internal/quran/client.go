package quran

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/youruser/ayahapp/internal/reference"
	"github.com/youruser/ayahapp/internal/util"
)

const DefaultBaseURL = "https://api.quran.com/api/v4"

// Client reads chapter metadata and verse text from quran.com. Responses are
// cached for CacheTTL and concurrent chapter loads share one request.
type Client struct {
	baseURL  string
	language string
	http     *http.Client
	cache    *cache.Cache
	group    singleflight.Group
}

type Options struct {
	BaseURL    string
	Language   string
	HTTPClient *http.Client
	CacheTTL   time.Duration
}

func NewClient(opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.Language == "" {
		opt.Language = "en"
	}
	if opt.HTTPClient == nil {
		opt.HTTPClient = util.NewClient(12 * time.Second)
	}
	if opt.CacheTTL <= 0 {
		opt.CacheTTL = 30 * time.Minute
	}
	return &Client{
		baseURL:  opt.BaseURL,
		language: opt.Language,
		http:     opt.HTTPClient,
		cache:    cache.New(opt.CacheTTL, 2*opt.CacheTTL),
	}
}

// Chapters returns the full chapter list. Concurrent callers share one
// request, which is not tied to any single caller's context; each caller
// stops waiting when its own ctx is done.
func (c *Client) Chapters(ctx context.Context) ([]Chapter, error) {
	key := "chapters:" + c.language
	if v, ok := c.cache.Get(key); ok {
		return v.([]Chapter), nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		u := c.baseURL + "/chapters?language=" + url.QueryEscape(c.language)
		var resp chaptersResponse
		if err := util.GetJSON(shared, c.http, u, &resp); err != nil {
			return nil, fmt.Errorf("load chapters: %w", err)
		}
		if resp.Chapters == nil {
			resp.Chapters = []Chapter{}
		}
		c.cache.SetDefault(key, resp.Chapters)
		slog.Debug("chapters loaded", "count", len(resp.Chapters), "language", c.language)
		return resp.Chapters, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]Chapter), nil
	}
}

// VerseText returns the Uthmani script of one ayah, or "" when the API has none.
func (c *Client) VerseText(ctx context.Context, ref reference.Reference) (string, error) {
	key := "verse:" + ref.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	q := url.Values{}
	q.Set("chapter_number", strconv.Itoa(ref.Sura))
	q.Set("verse_number", strconv.Itoa(ref.Ayah))
	var resp versesResponse
	if err := util.GetJSON(ctx, c.http, c.baseURL+"/quran/verses/uthmani?"+q.Encode(), &resp); err != nil {
		return "", fmt.Errorf("load verse %s: %w", ref, err)
	}
	text := ""
	if len(resp.Verses) > 0 {
		text = resp.Verses[0].TextUthmani
	}
	c.cache.SetDefault(key, text)
	return text, nil
}
