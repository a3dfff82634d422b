// Package update keeps long-running clients on the latest published build.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/logger"
)

var ErrNoVersion = errors.New("empty remote version")

type Checker struct {
	conf    config.UpdateConf
	current string
	client  *http.Client
	// run executes the swap script, replaced in tests
	run func(ctx context.Context, script, newBinary, target string) error
}

func NewChecker(conf config.UpdateConf, current string) *Checker {
	return &Checker{
		conf:    conf,
		current: current,
		client:  &http.Client{Timeout: 30 * time.Second},
		run:     runScript,
	}
}

// IsNewer compares dotted versions numerically. Missing parts count as zero
// and non-numeric parts as zero.
func IsNewer(current, latest string) bool {
	cur := splitVersion(current)
	lat := splitVersion(latest)
	for i := range max(len(cur), len(lat)) {
		var c, l int
		if i < len(cur) {
			c = cur[i]
		}
		if i < len(lat) {
			l = lat[i]
		}
		if l != c {
			return l > c
		}
	}
	return false
}

func splitVersion(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		nums[i], _ = strconv.Atoi(p)
	}
	return nums
}

func (c *Checker) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp, nil
}

func (c *Checker) Latest(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.conf.VersionURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(body))
	if v == "" {
		return "", ErrNoVersion
	}
	return v, nil
}

// Download stores the published binary next to the target as <target>.new.
func (c *Checker) Download(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.conf.BinaryURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	dst := c.conf.Target + ".new"
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("download failed: %w", err)
	}
	return dst, f.Close()
}

// Check returns true when a newer build was installed and the process
// should exit so the script can start it.
func (c *Checker) Check(ctx context.Context) (bool, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return false, err
	}
	if !IsNewer(c.current, latest) {
		logger.Debug("No update available", slog.String("version", c.current))
		return false, nil
	}
	logger.Info("Newer version published", slog.String("current", c.current), slog.String("latest", latest))

	newBinary, err := c.Download(ctx)
	if err != nil {
		return false, err
	}
	if err := c.run(ctx, c.conf.Script, newBinary, c.conf.Target); err != nil {
		return false, fmt.Errorf("update script failed: %w", err)
	}
	return true, nil
}

// Run checks every interval until ctx is done or an update was installed.
func (c *Checker) Run(ctx context.Context) bool {
	ticker := time.NewTicker(c.conf.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			updated, err := c.Check(ctx)
			if err != nil {
				logger.Warn("Update check failed", slog.Any("error", err))
				continue
			}
			if updated {
				return true
			}
		}
	}
}

func runScript(ctx context.Context, script, newBinary, target string) error {
	out, err := exec.CommandContext(ctx, "sh", script, newBinary, target).CombinedOutput()
	if len(out) > 0 {
		logger.Debug("Update script output", slog.String("output", strings.TrimSpace(string(out))))
	}
	return err
}
