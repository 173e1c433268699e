package index

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// DefaultChannels are consulted when neither flags nor a condarc name any.
func DefaultChannels() []string {
	return []string{"https://repo.anaconda.com/pkgs/main"}
}

// Fetcher downloads repodata for a platform's subdirs from a list of
// channels. Retries live here, at the index boundary; the oracle adapter
// never retries.
type Fetcher struct {
	client *retryablehttp.Client
	log    *zap.Logger
}

// NewFetcher builds a fetcher with a bounded retry policy.
func NewFetcher(log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	return &Fetcher{client: client, log: log}
}

// Fetch downloads and merges repodata.json for every (channel, subdir)
// pair. Channels are applied in order, so later channels override earlier
// ones on filename collisions. A channel missing a subdir (404) is skipped:
// many channels publish no noarch directory.
func (f *Fetcher) Fetch(ctx context.Context, channels []string, platform spec.Platform) (*Index, error) {
	ix := New()
	for _, channel := range channels {
		for _, subdir := range platform.Subdirs() {
			url := fmt.Sprintf("%s/%s/repodata.json", channel, subdir)
			data, err := f.get(ctx, url)
			if err != nil {
				return nil, fmt.Errorf("fetch %s: %w", url, err)
			}
			if data == nil {
				f.log.Debug("no repodata for subdir", zap.String("url", url))
				continue
			}
			if err := ix.Merge(data, channel); err != nil {
				return nil, fmt.Errorf("merge %s: %w", url, err)
			}
			f.log.Debug("merged repodata",
				zap.String("url", url),
				zap.Int("records", ix.Len()))
		}
	}
	if ix.Len() == 0 {
		return nil, fmt.Errorf("no package records found for platform %s in channels %v", platform, channels)
	}
	return ix, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// LoadFiles builds an index from local repodata.json files, for offline use
// and tests. The file's base directory name stands in for the channel.
func LoadFiles(paths ...string) (*Index, error) {
	ix := New()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		channel := filepath.Base(filepath.Dir(path))
		if err := ix.Merge(data, channel); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return ix, nil
}

type condarc struct {
	Channels []string `yaml:"channels"`
}

// ChannelsFromCondarc reads the channels list from a .condarc file. A
// missing file is not an error; callers fall back to DefaultChannels.
func ChannelsFromCondarc(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rc condarc
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rc.Channels, nil
}

// DefaultCondarcPath is ~/.condarc, or empty when no home is known.
func DefaultCondarcPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".condarc")
}
