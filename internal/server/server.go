package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/peltran/giftwise/internal/capture"
	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
	"github.com/peltran/giftwise/internal/recommend"
)

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// Server exposes the session over a localhost HTTP API: the contact
// collection with filtering, the two AI workflows, and the important-dates
// calendar as an ICS feed.
type Server struct {
	Port string

	store       *engine.Store
	clock       engine.Clock
	recommender *recommend.Recommender
	extractor   capture.Extractor
	builder     *engine.CalendarBuilder
	translate   func(string) string

	// cache uses atomic.Pointer for lock-free reads. The feed is read often
	// by calendar clients and rebuilt only when the collection mutates, so
	// this beats a RWMutex on the hot path.
	cache atomic.Pointer[cacheItem]
}

// New wires the API server.
func New(port string, store *engine.Store, clock engine.Clock, recommender *recommend.Recommender, extractor capture.Extractor, builder *engine.CalendarBuilder, translate func(string) string) *Server {
	return &Server{
		Port:        port,
		store:       store,
		clock:       clock,
		recommender: recommender,
		extractor:   extractor,
		builder:     builder,
		translate:   translate,
	}
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := validatePort(s.Port); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteContacts, s.handleContacts)
	mux.HandleFunc(config.RouteContactsSlash, s.handleContactByID)
	mux.HandleFunc(config.RouteCapture, s.handleCapture)
	mux.HandleFunc(config.RouteCalendar, s.handleCalendarRequest)
	mux.HandleFunc(config.RouteBudgets, s.handleBudgets)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// validatePort enforces the 1-65535 range before binding.
func validatePort(raw string) error {
	if raw == "" {
		return errors.New(config.ErrPortRequired)
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %q", config.ErrPortNumeric, raw)
	}
	if port < config.MinPort || port > config.MaxPort {
		return fmt.Errorf("%s: %d", config.ErrPortRange, port)
	}
	return nil
}

// RefreshCalendar rebuilds the ICS feed from the current collection and swaps
// it into the cache. Called at startup and after every mutation.
func (s *Server) RefreshCalendar() error {
	data, _, err := s.builder.Build(s.store.List())
	if err != nil {
		return err
	}
	s.update(data)
	return nil
}

// update atomically replaces the served feed.
func (s *Server) update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))
	lastMod := time.Now().UTC().Format(http.TimeFormat)

	// Atomic store: any concurrent reader sees either the old or the new
	// complete item, never a partial state.
	s.cache.Store(&cacheItem{
		data:         data,
		etag:         etag,
		lastModified: lastMod,
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// handleCalendarRequest serves the ICS content with HTTP caching support.
func (s *Server) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, "GET, HEAD")
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
