package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"clicker/internal/config"
	"clicker/internal/coords"
	"clicker/internal/driver"
	"clicker/internal/locator"
	"clicker/internal/platform"
	"clicker/internal/store"
)

func currentConfig() *config.Config {
	if cfgMgr == nil {
		return config.DefaultConfig()
	}
	return cfgMgr.Get()
}

func targetQuery(cfg *config.Config) locator.Query {
	return locator.Query{
		ProcessHints: cfg.Target.ProcessHints,
		TitleHints:   cfg.Target.TitleHints,
		ClassHints:   cfg.Target.ClassHints,
	}
}

func newLocator(cfg *config.Config, plat platform.Platform) *locator.Locator {
	return locator.New(plat, cfg.LocateTimeout())
}

// resolveDBPath prefers the --db flag, then the config, then ~/.clicker/clicker.db
func resolveDBPath(cfg *config.Config) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg.Store.DBPath != "" {
		return cfg.Store.DBPath, nil
	}
	return store.DefaultPath()
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path, err := resolveDBPath(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	return st, nil
}

func labelArg(args []string, cfg *config.Config) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Store.DefaultLabel
}

// geometryFunc locates the window for decoders that need absolute conversion
func geometryFunc(loc *locator.Locator, q locator.Query) store.GeometryFunc {
	return func(ctx context.Context) (coords.WindowGeometry, bool) {
		g, err := loc.Locate(ctx, q)
		if err != nil {
			return coords.WindowGeometry{}, false
		}
		return g, true
	}
}

// loadSet walks the configured source chain. An explicit label other than
// the default is tried first.
func loadSet(ctx context.Context, cfg *config.Config, st *store.Store, loc *locator.Locator, label string) (coords.CoordinateSet, string, error) {
	specs := cfg.Store.Sources
	if label != cfg.Store.DefaultLabel {
		specs = append([]string{"db:" + label}, specs...)
	}
	set, src, err := store.Load(ctx, store.Sources(specs, st, geometryFunc(loc, targetQuery(cfg))))
	if err != nil {
		return set, src, fmt.Errorf("no coordinates for %q: %w (record some with 'clicker record')", label, err)
	}
	return set, src, nil
}

// openPage connects to the automation browser and opens the target page
func openPage(ctx context.Context, cfg *config.Config, url string) (*driver.Driver, error) {
	d, err := driver.Connect(ctx, cfg.Driver.Endpoint)
	if err != nil {
		return nil, err
	}
	if url == "" {
		url = cfg.Driver.URL
	}
	if err := d.OpenPage(ctx, url, cfg.Driver.ViewportWidth, cfg.Driver.ViewportHeight); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// promptConfirmer asks on out and reads a y/N answer from in
func promptConfirmer(in io.Reader, out io.Writer, assumeYes bool) store.Confirmer {
	return func(summary string) bool {
		if assumeYes {
			fmt.Fprintln(out, summary, "[y/N]: y")
			return true
		}
		fmt.Fprintf(out, "%s [y/N]: ", summary)
		reader := bufio.NewReader(in)
		response, err := reader.ReadString('\n')
		if err != nil && response == "" {
			return false
		}
		response = strings.ToLower(strings.TrimSpace(response))
		return response == "y" || response == "yes"
	}
}

// syncWriter serialises writes from the engine goroutine and the command goroutine
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
