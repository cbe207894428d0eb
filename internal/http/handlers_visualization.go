package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseChartQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveChart(w, r, req)
}

func (s *Server) handleMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	raw := r.PathValue("month")
	month, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, r, core.BadRequestf("invalid month %q", raw))
		return
	}
	if month == 0 {
		s.writeError(w, r, core.BadRequestf("month must be between 1 and 12, got 0"))
		return
	}
	s.serveChart(w, r, ledger.ChartRequest{UserID: userID, Kind: ledger.KindBar, Measure: ledger.MeasureBudget, Month: month})
}

// chartAlias serves one fixed kind and measure for the whole year.
func (s *Server) chartAlias(kind ledger.ChartKind, measure ledger.Measure) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathInt64(r, "userID")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.serveChart(w, r, ledger.ChartRequest{UserID: userID, Kind: kind, Measure: measure})
	}
}

func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, req ledger.ChartRequest) {
	chart, err := s.getChart(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(chart).Write(w)
}

func chartCacheKey(req ledger.ChartRequest) string {
	return fmt.Sprintf("%s%s:%s:%d", userCachePrefix(req.UserID), req.Kind, req.Measure, req.Month)
}

func userCachePrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}

// getChart serves from the cache, otherwise builds the chart once for all
// concurrent callers of the same key. The fill is detached from the caller
// that started it, so one client going away does not fail the others; each
// caller only waits as long as its own context allows.
func (s *Server) getChart(ctx context.Context, req ledger.ChartRequest) (ledger.Chart, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentVisualizer)
	fields := log.NewFields().WithChart(string(req.Kind), string(req.Measure), req.Month).WithUser(req.UserID)
	key := chartCacheKey(req)

	if chart, ok := s.chartCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		logger.DebugContext(ctx, "Chart cache hit", fields.ToSlice()...)
		return chart, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	gen := s.generation(req.UserID)
	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	fillCtx := context.WithoutCancel(ctx)
	ch := s.chartFill.DoChan(flightKey, func() (any, error) {
		cctx, cancel := context.WithTimeout(fillCtx, s.chartTimeout)
		defer cancel()

		chart, err := s.charts.Chart(cctx, req)
		if err != nil {
			return ledger.Chart{}, err
		}
		s.storeChart(req.UserID, gen, key, chart)
		logger.DebugContext(cctx, "Chart built", fields.ToSlice()...)
		return chart, nil
	})

	select {
	case <-ctx.Done():
		return ledger.Chart{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ledger.Chart{}, res.Err
		}
		return res.Val.(ledger.Chart), nil
	}
}

func (s *Server) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// storeChart caches chart unless a write for userID happened since gen.
func (s *Server) storeChart(userID int64, gen uint64, key string, chart ledger.Chart) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[userID] == gen {
		s.chartCache.Set(key, chart)
	}
}

// invalidateCharts drops every cached chart of userID.
func (s *Server) invalidateCharts(userID int64) {
	s.genMu.Lock()
	s.generations[userID]++
	n := s.chartCache.DeletePrefix(userCachePrefix(userID))
	s.genMu.Unlock()

	if n > 0 {
		s.logger.Debug("Chart cache invalidated", log.FieldUserID, userID, "entries", n)
	}
}
