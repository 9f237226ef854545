package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultPort    = "3000"
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 512
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := run(ctx, healthURL()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}

func healthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = defaultPort
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// run fails unless the bridge answers 200. A 503 means the mpd session is gone.
func run(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "warning: failed to close response body: %v\n", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
