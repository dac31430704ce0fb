package osm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osmcz/mapcampaign/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const changesetsXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="openstreetmap-cgimap">
  <changeset id="101" user="alice" uid="1" created_at="2026-01-10T10:30:00Z" closed_at="2026-01-10T10:35:00Z">
    <tag k="hashtags" v="#ProjektMesice;#mapynadoma"/>
    <tag k="comment" v="Mapping benches"/>
    <tag k="created_by" v="iD 2.27"/>
  </changeset>
  <changeset id="102" user="bob" uid="2" created_at="2026-01-11T09:00:00Z">
    <tag k="comment" v="surveying with #projektmesice today"/>
  </changeset>
  <changeset id="103" user="carol" uid="3" created_at="2026-01-12T08:00:00Z">
    <tag k="comment" v="unrelated edit"/>
  </changeset>
  <changeset id="104" user="dan" uid="4" created_at="2026-01-13T08:00:00Z"/>
</osm>`

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(Opts{
		Endpoints: []string{url},
		Marker:    "#projektmesice",
		BBox:      "12.09,48.55,18.87,51.06",
		Retry:     fastRetry(),
	}, zaptest.NewLogger(t))
}

func window() (time.Time, time.Time) {
	end := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -30), end
}

func TestNewClientLeavesCallerClientUntouched(t *testing.T) {
	supplied := &http.Client{}

	c := NewClient(Opts{
		Endpoints:  []string{"https://example.org"},
		Marker:     "#projektmesice",
		Timeout:    30 * time.Second,
		HTTPClient: supplied,
	}, zaptest.NewLogger(t))

	assert.Equal(t, time.Duration(0), supplied.Timeout)
	assert.NotSame(t, supplied, c.client)
	assert.Equal(t, 30*time.Second, c.client.Timeout)
}

func TestFetchChangesetsFiltersByMarker(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/api/0.6/changesets", r.URL.Path)
		_, _ = w.Write([]byte(changesetsXML))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	from, to := window()
	records, err := c.FetchChangesets(context.Background(), from, to)
	require.NoError(t, err)

	// 101 matches via hashtags (case-insensitive), 102 via comment
	require.Len(t, records, 2)
	assert.Equal(t, "101", records[0].ID)
	assert.Equal(t, "alice", records[0].User)
	assert.Equal(t, "#ProjektMesice;#mapynadoma", records[0].Hashtags)
	assert.Equal(t, "Mapping benches", records[0].Comment)
	assert.Equal(t, "iD 2.27", records[0].Tags["created_by"])
	assert.Equal(t, "102", records[1].ID)

	assert.Contains(t, gotQuery, "bbox=12.09%2C48.55%2C18.87%2C51.06")
	assert.Contains(t, gotQuery, "time=2025-12-16%2C2026-01-15")
}

func TestFetchChangesetsRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(changesetsXML))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	from, to := window()
	records, err := c.FetchChangesets(context.Background(), from, to)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 3, attempts)
}

func TestFetchChangesetsGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	from, to := window()
	_, err := c.FetchChangesets(context.Background(), from, to)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestFetchChangesetsClientErrorIsPermanent(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	from, to := window()
	_, err := c.FetchChangesets(context.Background(), from, to)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "4xx must not be retried")
}

func TestFetchChangesetsParseErrorIsPermanent(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		_, _ = w.Write([]byte("<osm><changeset"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	from, to := window()
	_, err := c.FetchChangesets(context.Background(), from, to)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestFetchChangesetsNoMatchesIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<osm><changeset id="1" user="x" created_at="2026-01-10T10:30:00Z"><tag k="comment" v="nothing"/></changeset></osm>`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	from, to := window()
	records, err := c.FetchChangesets(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, records)
}
