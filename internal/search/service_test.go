package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/railsearch/railsearch/internal/rail"
	"github.com/railsearch/railsearch/internal/rtt"
	"github.com/railsearch/railsearch/internal/stations"
)

func newTestService(t *testing.T, handler http.Handler, cfg Config) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := rtt.New(rtt.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	return New(client, stations.Default(), cfg, zap.NewNop()), srv
}

func searchAnchor(uid, date, depTime, extras string) string {
	return fmt.Sprintf(
		`<a class="service " href="/service/gb-nr:%s/%s/detailed"><div class="time plan d gbtt">%s</div>%s</a>`,
		uid, date, depTime, extras,
	)
}

func detailPage(stop, arrival string) string {
	return fmt.Sprintf(
		`<html><body><div class="location call"><a><span class="name">%s</span></a>`+
			`<div class="gbtt"><div class="arr">%s</div></div></div></body></html>`,
		stop, arrival,
	)
}

func TestSearch_EndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search/", func(w http.ResponseWriter, _ *http.Request) {
		page := searchAnchor("L11111", "2026-02-04", "0900",
			`<div class="location o"><span>London Paddington</span></div><div class="toc">GW</div><div class="platform c">4</div>`) +
			searchAnchor("L22222", "2026-02-04", "0930", `<div class="toc">ZZ</div>Starts here`)
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/service/gb-nr:L11111/2026-02-04/detailed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailPage("Bristol Temple Meads", "0937")))
	})
	mux.HandleFunc("/service/gb-nr:L22222/2026-02-04/detailed", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	svc, _ := newTestService(t, mux, Config{})
	resp, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs:  "PAD",
		ToCrs:    "BRI",
		Date:     "2026-02-04",
		Time:     "09:00",
		FromName: "London Paddington",
		ToName:   "Bristol Temple Meads",
	})

	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 2)

	first := resp.Data[0]
	require.Equal(t, "L11111", first.TrainUID)
	require.Equal(t, "20260204L11111", first.ServiceUID)
	require.Equal(t, "09:00", first.DepartureTime)
	require.Equal(t, "09:37", first.ArrivalTime)
	require.Equal(t, "Great Western Railway", first.AtocName)
	require.Equal(t, "4", first.Platform)

	// Detail fetch failed for the second service: arrival degrades to the
	// departure time and the request as a whole still succeeds.
	second := resp.Data[1]
	require.Equal(t, "L22222", second.TrainUID)
	require.Equal(t, "09:30", second.DepartureTime)
	require.Equal(t, "09:30", second.ArrivalTime)
	// Unknown carrier codes pass through as the display name.
	require.Equal(t, "ZZ", second.AtocName)

	for _, svc := range resp.Data {
		require.Equal(t, "London Paddington", svc.Origin)
		require.Equal(t, "Bristol Temple Meads", svc.Destination)
	}
}

func TestSearch_BoundsDetailLookups(t *testing.T) {
	t.Parallel()

	const total = 14
	var detailFetches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/search/", func(w http.ResponseWriter, _ *http.Request) {
		var page strings.Builder
		for i := 0; i < total; i++ {
			page.WriteString(searchAnchor(
				fmt.Sprintf("L%05d", i),
				"2026-02-04",
				fmt.Sprintf("%02d%02d", 9+i/60, i%60),
				"",
			))
		}
		_, _ = w.Write([]byte(page.String()))
	})
	mux.HandleFunc("/service/", func(w http.ResponseWriter, _ *http.Request) {
		detailFetches.Add(1)
		_, _ = w.Write([]byte(detailPage("Reading", "1015")))
	})

	svc, _ := newTestService(t, mux, Config{MaxDetailLookups: 10})
	resp, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs: "PAD", ToCrs: "RDG", Date: "2026-02-04", Time: "09:00",
	})

	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Data, total)
	require.Equal(t, int32(10), detailFetches.Load())

	// The first ten are resolved; the rest degrade to their departure time.
	for i, got := range resp.Data {
		if i < 10 {
			require.Equal(t, "10:15", got.ArrivalTime, "candidate %d", i)
		} else {
			require.Equal(t, got.DepartureTime, got.ArrivalTime, "candidate %d", i)
		}
	}
}

func TestSearch_DirectoryNameMatchesCallingPoint(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchAnchor("L33333", "2026-02-04", "0910", "")))
	})
	mux.HandleFunc("/service/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailPage("Bristol Temple Meads", "1031")))
	})

	// No canonical names supplied: the directory name for BRI drives the
	// calling-point match.
	svc, _ := newTestService(t, mux, Config{})
	resp, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs: "PAD", ToCrs: "BRI", Date: "2026-02-04", Time: "09:00",
	})

	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	require.Equal(t, "10:31", resp.Data[0].ArrivalTime)
	require.Equal(t, "London Paddington", resp.Data[0].Origin)
	require.Equal(t, "Bristol Temple Meads", resp.Data[0].Destination)
}

func TestSearch_UpstreamBadRequest(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	svc, _ := newTestService(t, mux, Config{})
	resp, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs: "PAD", ToCrs: "XXX", Date: "2026-02-04", Time: "09:00",
	})

	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "route may be invalid")
	require.Empty(t, resp.Data)
}

func TestSearch_UpstreamServerError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	svc, _ := newTestService(t, mux, Config{})
	resp, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs: "PAD", ToCrs: "BRI", Date: "2026-02-04", Time: "09:00",
	})

	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "HTTP 502")
	require.NotContains(t, resp.Error, "route may be invalid")
}

func TestSearch_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := rtt.New(rtt.Config{BaseURL: url, Timeout: 2 * time.Second}, zap.NewNop())
	svc := New(client, stations.Default(), Config{}, zap.NewNop())

	_, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs: "PAD", ToCrs: "BRI", Date: "2026-02-04", Time: "09:00",
	})
	require.Error(t, err)
}

func TestSearch_NoServices(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>No direct services found.</p></body></html>"))
	})

	svc, _ := newTestService(t, mux, Config{})
	resp, err := svc.Search(context.Background(), rail.SearchRequest{
		FromCrs: "PAD", ToCrs: "BRI", Date: "2026-02-04", Time: "09:00",
	})

	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Empty(t, resp.Data)
}
