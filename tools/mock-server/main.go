// Package main implements a fake Easy-Template API server for local
// development. It issues short-lived token pairs, keeps articles in memory
// and can throttle calls to exercise the client's 429 handling without real
// credentials or quota.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	clientID := flag.String("client-id", "", "accepted client id (empty accepts any)")
	clientSecret := flag.String("client-secret", "", "accepted client secret (empty accepts any)")
	accessTTL := flag.Duration("access-ttl", time.Hour, "access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", 24*time.Hour, "refresh token lifetime")
	throttleEvery := flag.Int("throttle-every", 0, "answer every Nth API call with 429 (0 disables)")
	retryAfter := flag.Int("retry-after", 2, "Retry-After seconds sent with 429 responses")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	api := newFakeAPI(logger, fakeConfig{
		clientID:      *clientID,
		clientSecret:  *clientSecret,
		accessTTL:     *accessTTL,
		refreshTTL:    *refreshTTL,
		throttleEvery: *throttleEvery,
		retryAfter:    *retryAfter,
	})
	api.seed()

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting fake Easy-Template server", "addr", addr, "base_url", "http://localhost"+addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, api.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}
