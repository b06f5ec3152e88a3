// Package server exposes fetched bars as JSON and serves the published chart page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"TradeChart/internal/collector"
	"TradeChart/internal/model"
)

// DefaultTicker is used when a request names no ticker.
const DefaultTicker = "AAPL"

// RequestFunc resolves ticker and optional YYYY-MM-DD bounds into a fetch window.
type RequestFunc func(ticker, from, to string, now time.Time) (model.FetchRequest, error)

type Params struct {
	Port      int
	OutputDir string
	HTMLName  string
}

type Server struct {
	p         Params
	collector *collector.Collector
	request   RequestFunc
}

func NewServer(p Params, col *collector.Collector, request RequestFunc) *Server {
	if p.HTMLName == "" {
		p.HTMLName = "index.html"
	}
	return &Server{p: p, collector: col, request: request}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/get_stock_data", s.stockDataHandler)
	mux.Handle("/out/", http.StripPrefix("/out/", http.FileServer(http.Dir(s.p.OutputDir))))
	mux.HandleFunc("/", s.indexHandler)
	return middleware(mux)
}

// Run starts the HTTP server and blocks until ctx is done or serving fails.
func (s *Server) Run(ctx context.Context) error {
	// buffered so the serving goroutine never blocks on exit
	errCh := make(chan error, 1)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.p.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	log.Printf("[INFO] http server listening on :%d", s.p.Port)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		<-errCh
		log.Println("[INFO] http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

type stockDataRequest struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Record is one bar in the JSON response.
type Record struct {
	Datetime string  `json:"datetime"`
	Open     float64 `json:"Open"`
	High     float64 `json:"High"`
	Low      float64 `json:"Low"`
	Close    float64 `json:"Close"`
	Volume   int64   `json:"Volume"`
}

// stockDataHandler fetches bars for a ticker and date range.
//
// POST takes a JSON body; GET takes the same keys as query parameters.
func (s *Server) stockDataHandler(w http.ResponseWriter, r *http.Request) {
	var in stockDataRequest
	switch r.Method {
	case http.MethodPost:
		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		defer r.Body.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read request body")
			return
		}
		if len(strings.TrimSpace(string(payload))) > 0 {
			if err := json.Unmarshal(payload, &in); err != nil {
				writeError(w, http.StatusBadRequest, "request body is not valid JSON")
				return
			}
		}
	case http.MethodGet:
		in.Ticker = getParam(r, "ticker")
		in.StartDate = getParam(r, "start_date")
		in.EndDate = getParam(r, "end_date")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if in.Ticker == "" {
		in.Ticker = DefaultTicker
	}

	req, err := s.request(in.Ticker, in.StartDate, in.EndDate, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.collector.Collect(r.Context(), req)
	if err != nil {
		log.Printf("[ERROR] get_stock_data %s: %v", req.Ticker, err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	records := make([]Record, 0, series.Len())
	for _, b := range series.Bars {
		records = append(records, Record{
			Datetime: b.Time.Format(time.RFC3339),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   b.Volume,
		})
	}
	writeJSON(w, http.StatusOK, records)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, collector.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, collector.ErrNetworkFailure):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// indexHandler serves the latest published page at "/" and other output files below it.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.FileServer(http.Dir(s.p.OutputDir)).ServeHTTP(w, r)
		return
	}
	page, err := os.ReadFile(filepath.Join(s.p.OutputDir, s.p.HTMLName))
	if err != nil {
		http.Error(w, "no chart published yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[ERROR] marshal response: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Printf("[WARN] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func getParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

func middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[INFO] %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
