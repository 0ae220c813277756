package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/persistence/capturedb"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/persistence/snapshot"
)

// source names where the city capture comes from. Exactly one of fixture,
// snapshot and captureDB is set.
type source struct {
	fixture   string
	snapshot  string
	captureDB string
	city      string
	tick      uint64
}

func (s source) String() string {
	switch {
	case s.fixture != "":
		return "fixture:" + s.fixture
	case s.snapshot != "":
		return "snapshot:" + s.snapshot
	default:
		return "capture_db:" + s.captureDB
	}
}

func (s source) validate() error {
	n := 0
	for _, v := range []string{s.fixture, s.snapshot, s.captureDB} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return errors.New("exactly one of -fixture, -snapshot or -capture_db is required")
	}
	return nil
}

func (s source) open(ctx context.Context) (*city.State, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return city.NewState(c)
}

func (s source) load(ctx context.Context) (city.Capture, error) {
	switch {
	case s.fixture != "":
		return city.LoadFixture(s.fixture)
	case s.snapshot != "":
		path, err := s.snapshotPath()
		if err != nil {
			return city.Capture{}, err
		}
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			return city.Capture{}, fmt.Errorf("read snapshot %s: %w", path, err)
		}
		return snap.Capture, nil
	default:
		db, err := capturedb.Open(s.captureDB)
		if err != nil {
			return city.Capture{}, err
		}
		defer db.Close()
		if s.tick > 0 && s.city != "" {
			return db.At(ctx, s.city, s.tick)
		}
		return db.Latest(ctx, s.city)
	}
}

// snapshotPath resolves a snapshot directory to its newest file, or the
// newest matching s.city at or before s.tick.
func (s source) snapshotPath() (string, error) {
	fi, err := os.Stat(s.snapshot)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return s.snapshot, nil
	}
	paths, err := snapshot.List(s.snapshot)
	if err != nil {
		return "", err
	}
	for i := len(paths) - 1; i >= 0; i-- {
		if s.tick == 0 && s.city == "" {
			return paths[i], nil
		}
		h, err := snapshot.ReadHeader(paths[i])
		if err != nil {
			continue
		}
		if (s.tick == 0 || h.Tick <= s.tick) && (s.city == "" || h.CityName == s.city) {
			return paths[i], nil
		}
	}
	return "", fmt.Errorf("no snapshot in %s", s.snapshot)
}

// watch re-reads the source every interval and swaps newer captures into
// world.
func (s source) watch(ctx context.Context, world *city.State, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c, err := s.load(ctx)
		if err != nil {
			logger.Warn("reload city", zap.String("source", s.String()), zap.Error(err))
			continue
		}
		if c.Tick == world.Tick() && c.CityName == world.Name() {
			continue
		}
		if err := world.Replace(c); err != nil {
			logger.Warn("reload city", zap.Error(err))
			continue
		}
		logger.Info("city reloaded", zap.String("city", c.CityName), zap.Uint64("tick", c.Tick))
	}
}
