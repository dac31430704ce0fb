package osm

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osmcz/mapcampaign/pkg/retry"
	"github.com/osmcz/mapcampaign/pkg/utils"
	"go.uber.org/zap"
)

const changesetsPath = "/api/0.6/changesets"

// Client queries a changesets API for campaign activity. It rotates across the
// configured endpoints and retries transient failures with backoff; a 4xx status
// or an unparseable body aborts immediately so callers can fall back to cached data.
type Client struct {
	endpoints []string
	client    *http.Client
	marker    string
	bbox      string
	userAgent string
	retryCfg  retry.Config
	logger    *zap.Logger
}

// Opts is the set of options for a new Client.
type Opts struct {
	Endpoints  []string
	Marker     string // campaign hashtag, matched case-insensitively
	BBox       string // min_lon,min_lat,max_lon,max_lat
	UserAgent  string
	Timeout    time.Duration
	Retry      retry.Config
	HTTPClient *http.Client
}

// NewClient creates a new Client with the given options.
func NewClient(o Opts, logger *zap.Logger) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Retry.MaxRetries <= 0 {
		o.Retry = retry.DefaultConfig()
	}
	if o.UserAgent == "" {
		o.UserAgent = "mapcampaign/1.0"
	}

	client := &http.Client{Timeout: o.Timeout}
	if o.HTTPClient != nil {
		// Shallow copy so the caller's client is never mutated.
		cp := *o.HTTPClient
		if cp.Timeout == 0 {
			cp.Timeout = o.Timeout
		}
		client = &cp
	}

	return &Client{
		endpoints: utils.Dedup(o.Endpoints),
		client:    client,
		marker:    strings.ToLower(o.Marker),
		bbox:      o.BBox,
		userAgent: o.UserAgent,
		retryCfg:  o.Retry,
		logger:    logger,
	}
}

// FetchChangesets returns the campaign changesets closed inside [from, to].
// A returned error means "no data this cycle", never "zero contributions":
// callers must keep serving their previous statistics.
func (c *Client) FetchChangesets(ctx context.Context, from, to time.Time) ([]Changeset, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	var out []Changeset
	attempt := 0
	err := retry.WithBackoff(ctx, c.retryCfg, c.logger, "fetch changesets", func() error {
		endpoint := c.endpoints[attempt%len(c.endpoints)]
		attempt++

		records, err := c.fetchOnce(ctx, endpoint, from, to)
		if err != nil {
			return err
		}
		out = records
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched campaign changesets",
		zap.Int("count", len(out)),
		zap.String("marker", c.marker),
		zap.Time("from", from),
		zap.Time("to", to))
	return out, nil
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string, from, to time.Time) ([]Changeset, error) {
	q := url.Values{}
	q.Set("bbox", c.bbox)
	q.Set("time", fmt.Sprintf("%s,%s", from.Format("2006-01-02"), to.Format("2006-01-02")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+changesetsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("changesets API %s: status %d", endpoint, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Permanent(fmt.Errorf("changesets API %s: status %d", endpoint, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc changesetsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, retry.Permanent(fmt.Errorf("parse changesets XML: %w", err))
	}

	records := make([]Changeset, 0, len(doc.Changesets))
	for _, cs := range doc.Changesets {
		tags := make(map[string]string, len(cs.Tags))
		for _, t := range cs.Tags {
			if t.K != "" && t.V != "" {
				tags[t.K] = t.V
			}
		}

		hashtags := tags["hashtags"]
		comment := tags["comment"]
		if !c.matchesMarker(hashtags, comment) {
			continue
		}

		records = append(records, Changeset{
			ID:        cs.ID,
			User:      cs.User,
			UID:       cs.UID,
			CreatedAt: cs.CreatedAt,
			ClosedAt:  cs.ClosedAt,
			Tags:      tags,
			Hashtags:  hashtags,
			Comment:   comment,
		})
	}
	return records, nil
}

// matchesMarker reports whether the campaign marker appears in the hashtags or
// comment tag. The hashtags tag is authoritative; comment is kept for editors
// that only write the hashtag into the changeset comment.
func (c *Client) matchesMarker(hashtags, comment string) bool {
	if c.marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(hashtags+" "+comment), c.marker)
}
