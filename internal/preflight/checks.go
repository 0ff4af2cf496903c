package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"photodock/internal/assets"
	"photodock/internal/config"
	"photodock/internal/detection"
	"photodock/internal/pgstore"
	"photodock/internal/store"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDetection verifies the detection service answers its health endpoint.
func CheckDetection(ctx context.Context, cfg config.Detection) Result {
	const name = "Detection service"

	base := strings.TrimSpace(cfg.URL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := detection.NewHTTPClient(base, cfg.APIKey)
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckEndpoint verifies a TCP connection to the host of rawURL can be opened.
// Used for services without a health endpoint.
func CheckEndpoint(ctx context.Context, name, rawURL string) Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", rawURL)}
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", host)}
}

// CheckAssets verifies the configured asset store: directory access for the
// local driver, bucket reachability for S3.
func CheckAssets(ctx context.Context, cfg config.Assets) Result {
	const name = "Asset store"

	switch cfg.Driver {
	case config.AssetDriverS3:
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s3, err := assets.NewS3Store(checkCtx, cfg)
		if err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		if err := s3.Ping(checkCtx); err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bucket %s reachable", cfg.Bucket)}
	default:
		return CheckDirectoryAccess(name, cfg.LocalDir)
	}
}

// CheckRecords verifies the record store can be opened and queried.
func CheckRecords(ctx context.Context, cfg *config.Config) Result {
	const name = "Record store"

	switch cfg.Records.Driver {
	case config.RecordsDriverPostgres:
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pg, err := pgstore.Open(checkCtx, cfg.Records)
		if err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		defer pg.Close()
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("postgres table %s reachable", cfg.Records.Table)}
	default:
		st, err := store.Open(cfg)
		if err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		defer st.Close()
		count, err := st.Count(ctx)
		if err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d records)", st.Path(), count)}
	}
}

// summarizeError produces a human-readable summary for check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return err.Error()
}
