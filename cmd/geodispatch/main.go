// Package main runs a demonstration sweep of the dispatcher: it builds
// sample lookup requests on a hex grid around a start position, submits
// them at mixed priorities, and prints the annotations as they resolve.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uber/h3-go/v4"

	"geodispatch/pkg/cache"
	"geodispatch/pkg/config"
	"geodispatch/pkg/db"
	"geodispatch/pkg/dispatch"
	"geodispatch/pkg/geo"
	"geodispatch/pkg/logging"
	"geodispatch/pkg/model"
	"geodispatch/pkg/nominatim"
)

func main() {
	configPath := flag.String("config", "configs/geodispatch.yaml", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "geodispatch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// .env overrides are optional
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	store, closeStore, err := initCache(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := nominatim.New(cfg.Lookup)

	precision := cfg.Dispatch.FingerprintPrecision
	d := dispatch.New(dispatch.Config{
		Heartbeat:  time.Duration(cfg.Dispatch.Heartbeat),
		MaxRetries: cfg.Dispatch.MaxRetries,
		Fingerprint: func(lat, lon float64) string {
			return geo.Geohash(lat, lon, precision)
		},
	}, client.Nearby, store)

	d.Start()
	defer d.Stop()

	requests, err := buildSweep(cfg.Demo)
	if err != nil {
		return err
	}

	slog.Info("Sweep prepared", "requests", len(requests), "start_lat", cfg.Demo.StartLat, "start_lon", cfg.Demo.StartLon)

	var wg sync.WaitGroup
	for _, req := range requests {
		req := req
		wg.Add(1)
		d.Enqueue(req, func(places []model.Place, err error) {
			defer wg.Done()
			printResult(req, places, err)
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		slog.Info("Sweep complete")
	case sig := <-sigCh:
		slog.Info("Interrupted, pending requests are dropped", "signal", sig.String())
	}

	return nil
}

// initCache selects the persistent cache when a path is configured, else
// the in-memory one.
func initCache(cfg *config.Config) (cache.Cacher, func(), error) {
	if cfg.Cache.Path == "" {
		return cache.NewMemory(), func() {}, nil
	}

	database, err := db.Init(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	return cache.NewSQLite(database), func() { database.Close() }, nil
}

// buildSweep lays out sample requests on the centers of an H3 grid disk
// around the start position. The origin cell gets high priority, the ring
// alternates medium and low.
func buildSweep(cfg config.DemoConfig) ([]model.Request, error) {
	origin, err := h3.LatLngToCell(h3.NewLatLng(cfg.StartLat, cfg.StartLon), cfg.Resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to index start position: %w", err)
	}

	cells, err := h3.GridDisk(origin, cfg.Rings)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid disk: %w", err)
	}

	requests := make([]model.Request, 0, len(cells))
	for i, cell := range cells {
		center, err := h3.CellToLatLng(cell)
		if err != nil {
			return nil, fmt.Errorf("failed to locate cell center: %w", err)
		}

		priority := model.PriorityMedium
		switch {
		case cell == origin:
			priority = model.PriorityHigh
		case i%2 == 0:
			priority = model.PriorityLow
		}

		requests = append(requests, model.Request{
			Lat:      center.Lat,
			Lon:      center.Lng,
			Priority: priority,
			Identity: uuid.NewString(),
		})
	}

	return requests, nil
}

func printResult(req model.Request, places []model.Place, err error) {
	if err != nil {
		fmt.Printf("%-8s  %9.4f,%9.4f  ERROR: %v\n", req.Priority, req.Lat, req.Lon, err)
		return
	}
	if len(places) == 0 {
		fmt.Printf("%-8s  %9.4f,%9.4f  (nothing found)\n", req.Priority, req.Lat, req.Lon)
		return
	}
	for _, p := range places {
		fmt.Printf("%-8s  %9.4f,%9.4f  %s [%s] %.0fm away\n",
			req.Priority, req.Lat, req.Lon, p.Name, p.Category, p.DistanceM)
	}
}
