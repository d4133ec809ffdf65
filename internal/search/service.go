// Package search implements the journey search pipeline: one primary fetch,
// a bounded concurrent fan-out of per-service detail lookups, and assembly
// of the final records.
package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/railsearch/railsearch/internal/metrics"
	"github.com/railsearch/railsearch/internal/operators"
	"github.com/railsearch/railsearch/internal/rail"
	"github.com/railsearch/railsearch/internal/rtt"
	"github.com/railsearch/railsearch/internal/scrape"
	"github.com/railsearch/railsearch/internal/stations"
)

// Config controls pipeline behavior.
type Config struct {
	// MaxDetailLookups bounds the concurrent secondary fetches per search.
	// Candidates past the bound keep their departure time as the arrival.
	MaxDetailLookups int
}

// Service executes journey searches. It holds no per-request state; every
// search is independent of the ones before it.
type Service struct {
	client   *rtt.Client
	stations *stations.Directory
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Service.
func New(client *rtt.Client, directory *stations.Directory, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxDetailLookups <= 0 {
		cfg.MaxDetailLookups = 10
	}
	return &Service{
		client:   client,
		stations: directory,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs one journey search. The returned error covers transport-level
// failure of the primary fetch only; upstream HTTP errors and every
// per-candidate failure are folded into the response so the caller always
// gets either a clear failure message or a best-effort service list.
func (s *Service) Search(ctx context.Context, req rail.SearchRequest) (rail.SearchResponse, error) {
	url := s.client.SearchURL(req.FromCrs, req.ToCrs, req.Date, strings.ReplaceAll(req.Time, ":", ""))

	resp, err := s.client.Fetch(ctx, url)
	if err != nil {
		metrics.ObserveSearch(metrics.SearchTransportErr)
		metrics.ObserveUpstream(metrics.UpstreamKindSearch, metrics.UpstreamStatusFailed)
		return rail.SearchResponse{}, fmt.Errorf("fetch timetable: %w", err)
	}
	metrics.ObserveUpstream(metrics.UpstreamKindSearch, strconv.Itoa(resp.StatusCode))
	if !resp.OK() {
		metrics.ObserveSearch(metrics.SearchUpstreamErr)
		s.logger.Warn("upstream search rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("from", req.FromCrs),
			zap.String("to", req.ToCrs),
		)
		return rail.SearchResponse{Success: false, Error: upstreamFailureMessage(resp.StatusCode)}, nil
	}

	candidates, err := scrape.SearchResults(resp.Body)
	if err != nil {
		metrics.ObserveSearch(metrics.SearchUpstreamErr)
		return rail.SearchResponse{Success: false, Error: fmt.Sprintf("failed to read timetable page: %v", err)}, nil
	}
	s.logger.Info("search results parsed",
		zap.String("from", req.FromCrs),
		zap.String("to", req.ToCrs),
		zap.Int("candidates", len(candidates)),
	)

	arrivals := s.resolveArrivals(ctx, candidates, s.destinationName(req))
	return rail.SearchResponse{Success: true, Data: s.assemble(req, candidates, arrivals)}, nil
}

func upstreamFailureMessage(status int) string {
	if status >= 400 && status < 500 {
		return fmt.Sprintf("failed to fetch timetable (HTTP %d): the requested route may be invalid", status)
	}
	return fmt.Sprintf("failed to fetch timetable (HTTP %d)", status)
}

// destinationName picks the station name used to match calling points on
// detail pages: the caller's canonical name when given, else the directory
// name for the code, else the code itself.
func (s *Service) destinationName(req rail.SearchRequest) string {
	if req.ToName != "" {
		return req.ToName
	}
	if name, ok := s.stations.NameFor(req.ToCrs); ok {
		return name
	}
	return req.ToCrs
}

// resolveArrivals fans out detail lookups for the first MaxDetailLookups
// candidates and correlates results by index. Entries stay empty for skipped
// candidates and for every failure mode of a lookup.
func (s *Service) resolveArrivals(ctx context.Context, candidates []rail.ServiceCandidate, destination string) []string {
	arrivals := make([]string, len(candidates))
	bound := len(candidates)
	if bound > s.cfg.MaxDetailLookups {
		bound = s.cfg.MaxDetailLookups
	}
	for i := bound; i < len(candidates); i++ {
		metrics.ObserveResolution(metrics.ResolutionSkipped)
	}

	var wg sync.WaitGroup
	for i := 0; i < bound; i++ {
		wg.Add(1)
		go func(i int, c rail.ServiceCandidate) {
			defer wg.Done()
			if t, ok := s.lookupArrival(ctx, c, destination); ok {
				arrivals[i] = t
				metrics.ObserveResolution(metrics.ResolutionResolved)
				return
			}
			metrics.ObserveResolution(metrics.ResolutionDegraded)
		}(i, candidates[i])
	}
	wg.Wait()
	return arrivals
}

// lookupArrival fetches one service detail page and extracts the arrival at
// destination. Network failure, non-2xx, and parse misses all degrade the
// same way.
func (s *Service) lookupArrival(ctx context.Context, c rail.ServiceCandidate, destination string) (string, bool) {
	resp, err := s.client.Fetch(ctx, s.client.ServiceURL(c.UID, c.RunDate))
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamKindService, metrics.UpstreamStatusFailed)
		s.logger.Debug("detail fetch failed", zap.String("uid", c.UID), zap.Error(err))
		return "", false
	}
	metrics.ObserveUpstream(metrics.UpstreamKindService, strconv.Itoa(resp.StatusCode))
	if !resp.OK() {
		return "", false
	}
	return scrape.ArrivalAt(resp.Body, destination)
}

// assemble joins candidates, resolved arrivals, directory lookups, and the
// caller's canonical names into the final sorted records.
func (s *Service) assemble(req rail.SearchRequest, candidates []rail.ServiceCandidate, arrivals []string) []rail.TrainService {
	services := make([]rail.TrainService, 0, len(candidates))
	for i, c := range candidates {
		arrival := arrivals[i]
		if arrival == "" {
			arrival = c.DepartureTime
		}
		services = append(services, rail.TrainService{
			TrainUID:      c.UID,
			RunDate:       c.RunDate,
			ServiceUID:    strings.ReplaceAll(c.RunDate, "-", "") + c.UID,
			AtocCode:      c.AtocCode,
			AtocName:      operators.Name(c.AtocCode),
			Origin:        s.originName(req, c),
			Destination:   s.destinationLabel(req, c),
			DepartureTime: c.DepartureTime,
			ArrivalTime:   arrival,
			Platform:      c.Platform,
			TrainID:       c.TrainID,
		})
	}
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].DepartureTime < services[j].DepartureTime
	})
	return services
}

func (s *Service) originName(req rail.SearchRequest, c rail.ServiceCandidate) string {
	if req.FromName != "" {
		return req.FromName
	}
	if c.Origin != "" && c.Origin != rail.OriginStartsHere {
		return c.Origin
	}
	// Starts-here sentinel or no label at all: the train's origin is the
	// searched-from station.
	if name, ok := s.stations.NameFor(req.FromCrs); ok {
		return name
	}
	return req.FromCrs
}

func (s *Service) destinationLabel(req rail.SearchRequest, c rail.ServiceCandidate) string {
	if req.ToName != "" {
		return req.ToName
	}
	if c.Destination != "" {
		return c.Destination
	}
	if name, ok := s.stations.NameFor(req.ToCrs); ok {
		return name
	}
	return req.ToCrs
}
