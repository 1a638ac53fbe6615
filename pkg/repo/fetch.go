package repo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/fsm/pkg/cache"
	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/httputil"
	"github.com/matzehuels/fsm/pkg/manifest"
)

const (
	DefaultTTL         = time.Hour // Default cache duration for remote listings
	DefaultConcurrency = 4         // Default parallel fetches in FetchAll
	cacheNamespace     = "repo"
)

// FetchOptions configures Fetch and FetchAll.
type FetchOptions struct {
	Mode        deps.Mode       // Validation mode for listed packages (required)
	Format      manifest.Format // Listing format; detected from the source extension when empty
	Cache       cache.Cache     // Cache for remote listings (default: none)
	TTL         time.Duration   // Cache duration (default: 1h)
	Refresh     bool            // Bypass the cache
	HTTPClient  *http.Client    // Overrides the default client (tests)
	Concurrency int             // Parallel fetches in FetchAll (default: 4)
	Logger      *log.Logger     // Optional
}

// WithDefaults returns a copy of FetchOptions with zero values replaced by
// defaults. The validation mode is never defaulted.
func (o FetchOptions) WithDefaults() FetchOptions {
	opts := o
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Fetch loads a repository listing from an http(s) URL or a local path.
func Fetch(ctx context.Context, src string, opts FetchOptions) (*Repository, error) {
	opts = opts.WithDefaults()
	if err := fsmerrors.ValidateSource(src); err != nil {
		return nil, err
	}

	format, err := sourceFormat(src, opts.Format)
	if err != nil {
		return nil, err
	}

	var data []byte
	if fsmerrors.IsHTTP(src) {
		data, err = fetchHTTP(ctx, src, opts)
	} else {
		data, err = os.ReadFile(src)
		if err != nil {
			err = fsmerrors.Wrap(fsmerrors.ErrCodeNotFound, err, "read repository %s", src)
		}
	}
	if err != nil {
		return nil, err
	}

	pkgs, err := manifest.DecodeListing(bytes.NewReader(data), format, opts.Mode)
	if err != nil {
		return nil, err
	}
	r, err := New(pkgs)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("fetched repository", "source", src, "packages", r.Len())
	return r, nil
}

// FetchAll fetches every source in parallel and merges the results in
// source order. The first failure cancels the remaining fetches.
func FetchAll(ctx context.Context, srcs []string, opts FetchOptions) (*Repository, error) {
	opts = opts.WithDefaults()
	repos := make([]*Repository, len(srcs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			r, err := Fetch(ctx, src, opts)
			if err != nil {
				return err
			}
			repos[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return (&Repository{}).Merge(repos...)
}

func fetchHTTP(ctx context.Context, src string, opts FetchOptions) ([]byte, error) {
	client := httputil.NewClient(opts.Cache, cacheNamespace, opts.TTL, map[string]string{
		"Accept": "application/json, application/toml, application/yaml, */*",
	})
	if opts.HTTPClient != nil {
		client.WithHTTPClient(opts.HTTPClient)
	}

	data, err := client.Fetch(ctx, src, opts.Refresh)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, httputil.ErrNotFound):
		return nil, fsmerrors.Wrap(fsmerrors.ErrCodeNotFound, err, "fetch repository %s", src)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, fsmerrors.Wrap(fsmerrors.ErrCodeNetwork, err, "fetch repository %s", src)
	}
}

// sourceFormat returns the explicit format, or the one implied by the
// source's extension, or JSON for extensionless URLs.
func sourceFormat(src string, explicit manifest.Format) (manifest.Format, error) {
	if explicit != "" {
		return manifest.ParseFormat(string(explicit))
	}
	path := src
	if fsmerrors.IsHTTP(src) {
		u, err := url.Parse(src)
		if err != nil {
			return "", fsmerrors.Wrap(fsmerrors.ErrCodeInvalidInput, err, "parse repository URL")
		}
		path = u.Path
		if format, err := manifest.DetectFormat(path); err == nil {
			return format, nil
		}
		return manifest.FormatJSON, nil
	}
	return manifest.DetectFormat(path)
}
