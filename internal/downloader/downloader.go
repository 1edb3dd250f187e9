// Package downloader refreshes the signature database from the
// webappanalyzer repository.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the directory holding categories.json and technologies/
	DefaultBaseURL = "https://raw.githubusercontent.com/enthec/webappanalyzer/main/src"

	// DefaultCacheExpiry is how long a downloaded database is considered fresh
	DefaultCacheExpiry = 24 * time.Hour

	// parallel shard downloads
	downloadConcurrency = 4
)

// shards lists the technology files the upstream repository is split into
var shards = func() []string {
	names := []string{"_"}
	for c := 'a'; c <= 'z'; c++ {
		names = append(names, string(c))
	}
	return names
}()

// Config contains configuration for the signature downloader
type Config struct {
	// BaseURL is where the shards are downloaded from
	BaseURL string

	// Path is the technologies.json file that is written
	Path string

	// CacheExpiry is how long to keep the file before downloading again
	CacheExpiry time.Duration

	// Force downloads even if the file is fresh
	Force bool

	Client *http.Client
	Log    *logrus.Entry
}

// DefaultConfig returns the default configuration for path
func DefaultConfig(path string) Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Path:        path,
		CacheExpiry: DefaultCacheExpiry,
		Client:      http.DefaultClient,
	}
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.CacheExpiry <= 0 {
		c.CacheExpiry = DefaultCacheExpiry
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	if c.Log == nil {
		c.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// Status describes the signature file on disk
type Status struct {
	Path         string        `json:"path"`
	Exists       bool          `json:"exists"`
	ModTime      time.Time     `json:"mod_time,omitempty"`
	Age          time.Duration `json:"age,omitempty"`
	Fresh        bool          `json:"fresh"`
	Technologies int           `json:"technologies"`
	Categories   int           `json:"categories"`
}

// database is the merged file layout
type database struct {
	Technologies map[string]json.RawMessage `json:"technologies"`
	Categories   map[string]json.RawMessage `json:"categories"`
}

// GetStatus reports whether the signature file exists and is fresh
func GetStatus(cfg Config) (Status, error) {
	cfg = cfg.withDefaults()
	status := Status{Path: cfg.Path}

	info, err := os.Stat(cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("failed to stat %s: %w", cfg.Path, err)
	}

	status.Exists = true
	status.ModTime = info.ModTime()
	status.Age = time.Since(info.ModTime())
	status.Fresh = status.Age < cfg.CacheExpiry

	db, err := loadDatabase(cfg.Path)
	if err != nil {
		return status, err
	}
	status.Technologies = len(db.Technologies)
	status.Categories = len(db.Categories)
	return status, nil
}

// Update downloads the database unless the file is fresh. It reports
// whether the file was written.
func Update(ctx context.Context, cfg Config) (bool, error) {
	cfg = cfg.withDefaults()

	if !cfg.Force {
		status, err := GetStatus(cfg)
		if err == nil && status.Fresh {
			cfg.Log.WithField("age", status.Age.Round(time.Second)).Debug("signature file is fresh")
			return false, nil
		}
	}

	db, err := download(ctx, cfg)
	if err != nil {
		return false, err
	}
	if err := writeDatabase(cfg.Path, db); err != nil {
		return false, err
	}

	cfg.Log.WithFields(logrus.Fields{
		"path":         cfg.Path,
		"technologies": len(db.Technologies),
		"categories":   len(db.Categories),
	}).Info("signature file updated")
	return true, nil
}

// download fetches categories and every technology shard and merges them
func download(ctx context.Context, cfg Config) (*database, error) {
	cfg = cfg.withDefaults()

	db := &database{Technologies: make(map[string]json.RawMessage)}

	categories, err := fetchObject(ctx, cfg, cfg.BaseURL+"/categories.json")
	if err != nil {
		return nil, fmt.Errorf("failed to download categories: %w", err)
	}
	db.Categories = categories

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for _, shard := range shards {
		shard := shard
		url := fmt.Sprintf("%s/technologies/%s.json", cfg.BaseURL, shard)
		g.Go(func() error {
			techs, err := fetchObject(ctx, cfg, url)
			if err != nil {
				return fmt.Errorf("failed to download shard %s: %w", shard, err)
			}
			for name, tech := range techs {
				if techs[name], err = normalizeTechnology(tech); err != nil {
					return fmt.Errorf("failed to convert %s in shard %s: %w", name, shard, err)
				}
			}
			mu.Lock()
			defer mu.Unlock()
			for name, tech := range techs {
				db.Technologies[name] = tech
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return db, nil
}

// Clear removes the signature file
func Clear(cfg Config) error {
	if err := os.Remove(cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", cfg.Path, err)
	}
	return nil
}

func fetchObject(ctx context.Context, cfg Config, url string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	cfg.Log.WithFields(logrus.Fields{"url": url, "bytes": len(data)}).Debug("downloaded")
	return decodeObject(data)
}

// decodeObject parses a name keyed object. Arrays of objects carrying a
// name field are accepted too.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err == nil {
		return object, nil
	}

	var array []json.RawMessage
	if err := json.Unmarshal(data, &array); err != nil {
		return nil, fmt.Errorf("failed to parse JSON as either object or array: %w", err)
	}

	object = make(map[string]json.RawMessage, len(array))
	for _, item := range array {
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &named); err == nil && named.Name != "" {
			object[named.Name] = item
		}
	}
	return object, nil
}

// normalizeTechnology converts an upstream technology to the local file
// layout. Upstream keeps script URL patterns under scriptSrc and inline
// script content patterns under scripts. Only the URL patterns are kept,
// as scripts.
func normalizeTechnology(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	delete(fields, "scripts")
	if src, ok := fields["scriptSrc"]; ok {
		fields["scripts"] = src
		delete(fields, "scriptSrc")
	}

	return json.Marshal(fields)
}

func loadDatabase(path string) (*database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &db, nil
}

// writeDatabase replaces path atomically
func writeDatabase(path string, db *database) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".technologies-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(db); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write signatures: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move signatures into place: %w", err)
	}
	return nil
}
