package updater

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// refreshTimeout bounds the background registry query.
const refreshTimeout = 10 * time.Second

var bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

// CheckAndPrintBanner checks the version cache and prints an update banner if
// a newer version is available. It never blocks. If the cache is stale, a
// background goroutine refreshes it for the next invocation; the returned
// channel closes when that refresh finishes, or is nil when none started.
func (u *Updater) CheckAndPrintBanner(ctx context.Context, w io.Writer, dir string) <-chan struct{} {
	if !u.Enabled() {
		return nil
	}

	cache, err := LoadCache(dir)
	if err != nil {
		// A corrupt cache is rewritten by the refresh below.
		cache = nil
	}
	if !cache.Matches(u.currentVersion) {
		cache = nil
	}

	if cache != nil && cache.UpdateAvailable {
		u.PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion)
	}

	if !IsCacheStale(cache, DefaultCacheMaxAge) {
		return nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		u.refreshCache(context.WithoutCancel(ctx), dir)
	}()
	return done
}

// PrintUpdateBanner prints the update notification to w.
func (u *Updater) PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\n%s %s -> %s\n", bannerStyle.Render("Update available:"), current, latest)
	fmt.Fprintf(w, "    Run `%s` to upgrade\n\n", u.UpgradeHint())
}

// refreshCache fetches the latest version and updates the cache file.
// This runs in a background goroutine and never fails loudly.
func (u *Updater) refreshCache(ctx context.Context, dir string) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	cache, err := u.Check(ctx)
	if err != nil {
		return
	}
	// Silently ignore save errors.
	_ = SaveCache(dir, cache)
}
