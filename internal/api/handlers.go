package api

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
	"github.com/Rajchodisetti/quotedash/internal/chart"
	"github.com/Rajchodisetti/quotedash/internal/observ"
	"github.com/Rajchodisetti/quotedash/internal/watchlist"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type addRequest struct {
	Symbol string `json:"symbol"`
}

type autoRefreshRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ChartResponse struct {
	Symbol    string          `json:"symbol"`
	Timeframe chart.Timeframe `json:"timeframe"`
	Points    []chart.Point   `json:"points"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, observ.Health())
}

func (s *Server) getWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, s.wl.Snapshot())
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.wl.Stats())
}

func (s *Server) addSymbol(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	err := s.wl.Add(req.Symbol)
	switch {
	case errors.Is(err, watchlist.ErrEmptySymbol):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Reason: string(adapters.KindInvalidSymbol)})
		return
	case errors.Is(err, watchlist.ErrDuplicateSymbol):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	entry, _ := s.wl.Entry(req.Symbol)
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) removeSymbol(c *gin.Context) {
	if err := s.wl.Remove(c.Param("symbol")); err != nil {
		if errors.Is(err, watchlist.ErrUnknownSymbol) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) refresh(c *gin.Context) {
	s.wl.RefreshNow()
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
}

func (s *Server) setAutoRefresh(c *gin.Context) {
	var req autoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	s.wl.SetAutoRefresh(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"auto_refresh": s.wl.AutoRefresh()})
}

// detailEntry resolves the detail view entry and writes the error response
// itself when there is nothing to return.
func (s *Server) detailEntry(c *gin.Context) (watchlist.Entry, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.QuoteWait)
	defer cancel()

	entry, err := s.details.Get(ctx, c.Param("symbol"))
	switch {
	case errors.Is(err, adapters.ErrInvalidSymbol):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Reason: string(adapters.KindInvalidSymbol)})
		return entry, false
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "quote not available yet"})
		return entry, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return entry, false
	}

	if entry.State == watchlist.Failed && entry.Quote == nil {
		status := http.StatusBadGateway
		if entry.Reason == string(adapters.KindSymbolNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: entry.Error, Reason: entry.Reason})
		return entry, false
	}
	return entry, true
}

func (s *Server) getQuote(c *gin.Context) {
	if entry, ok := s.detailEntry(c); ok {
		c.JSON(http.StatusOK, entry)
	}
}

func (s *Server) getAnalysis(c *gin.Context) {
	entry, ok := s.detailEntry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   entry.Symbol,
		"name":     adapters.CompanyName(entry.Symbol),
		"analysis": watchlist.Analyze(entry.Quote),
	})
}

func (s *Server) getChart(c *gin.Context) {
	tf, err := chart.ParseTimeframe(c.DefaultQuery("timeframe", string(chart.OneDay)))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	symbol := adapters.NormalizeSymbol(c.Param("symbol"))
	base := chart.BasePrice(symbol, s.wl)
	c.JSON(http.StatusOK, ChartResponse{
		Symbol:    symbol,
		Timeframe: tf,
		Points:    slices.Collect(chart.Series(base, tf, s.now(), nil)),
	})
}

func (s *Server) search(c *gin.Context) {
	q := c.Query("q")
	c.JSON(http.StatusOK, gin.H{"query": q, "results": adapters.Search(q)})
}
