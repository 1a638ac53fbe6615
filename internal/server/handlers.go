package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/matzehuels/fsm/pkg/buildinfo"
	"github.com/matzehuels/fsm/pkg/cache"
	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/graph"
	"github.com/matzehuels/fsm/pkg/manifest"
	"github.com/matzehuels/fsm/pkg/repo"
	"github.com/matzehuels/fsm/pkg/resolver"
)

// ResolveRequest is the body of POST /v1/resolve and /v1/available.
type ResolveRequest struct {
	Root          string          `json:"root"`
	Packages      json.RawMessage `json:"packages"`
	Repository    json.RawMessage `json:"repository,omitempty"`
	CheckVersions *bool           `json:"check_versions,omitempty"`
}

// ResolveResponse is the body returned by POST /v1/resolve.
type ResolveResponse struct {
	Order []string `json:"order"`
}

// AvailableResponse is the body returned by POST /v1/available.
type AvailableResponse struct {
	Order      []string             `json:"order"`
	Missing    []string             `json:"missing"`
	Shortfalls []resolver.Shortfall `json:"shortfalls"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Get().Version,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, false, func(ctx context.Context, req *request) (any, error) {
		order, err := req.resolver.Resolve(ctx, req.root)
		if err != nil {
			return nil, err
		}
		return ResolveResponse{Order: names(order)}, nil
	})
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, true, func(ctx context.Context, req *request) (any, error) {
		order, err := req.resolver.Resolve(ctx, req.root)
		if err != nil {
			return nil, err
		}
		shortfalls := req.resolver.Check(ctx, order, req.repository)
		if shortfalls == nil {
			shortfalls = []resolver.Shortfall{}
		}
		missing := make([]string, len(shortfalls))
		for i, sf := range shortfalls {
			missing[i] = sf.Name
		}
		return AvailableResponse{
			Order:      names(order),
			Missing:    missing,
			Shortfalls: shortfalls,
		}, nil
	})
}

// request is a decoded ResolveRequest ready to run.
type request struct {
	root       *graph.Node[*deps.Package]
	resolver   *resolver.Resolver
	repository *repo.Repository
	cacheKey   string
}

// serve decodes the request, consults the cache, runs fn and writes the
// result.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, needRepo bool,
	fn func(ctx context.Context, req *request) (any, error)) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, fsmerrors.Wrap(fsmerrors.ErrCodeInvalidInput, err, "read request body"))
		return
	}
	req, err := s.decode(body, needRepo, r.URL.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if data, ok, err := s.cfg.Cache.Get(ctx, req.cacheKey); err == nil && ok {
		w.Header().Set("X-Cache", "hit")
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	resp, err := fn(ctx, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.writeError(w, fsmerrors.Wrap(fsmerrors.ErrCodeInternal, err, "encode response"))
		return
	}
	if err := s.cfg.Cache.Set(ctx, req.cacheKey, data, s.cfg.CacheTTL); err != nil {
		s.cfg.Logger.Warn("cache write failed", "err", err)
	}
	w.Header().Set("X-Cache", "miss")
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) decode(body []byte, needRepo bool, route string) (*request, error) {
	var in ResolveRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fsmerrors.Wrap(fsmerrors.ErrCodeInvalidInput, err, "decode request")
	}
	if in.Root == "" {
		return nil, fsmerrors.New(fsmerrors.ErrCodeInvalidInput, "root is required")
	}
	if len(in.Packages) == 0 {
		return nil, fsmerrors.New(fsmerrors.ErrCodeInvalidInput, "packages are required")
	}

	pkgs, err := manifest.Decode(bytes.NewReader(in.Packages), manifest.FormatJSON, s.mode)
	if err != nil {
		return nil, err
	}
	root, err := resolver.BuildGraph(pkgs, in.Root)
	if err != nil {
		if errors.Is(err, resolver.ErrUnknownRoot) {
			return nil, fsmerrors.Wrap(fsmerrors.ErrCodePackageNotFound, err, "build graph")
		}
		return nil, fsmerrors.Wrap(fsmerrors.ErrCodeInvalidInput, err, "build graph")
	}

	checkVersions := s.cfg.CheckVersions
	if in.CheckVersions != nil {
		checkVersions = *in.CheckVersions
	}

	req := &request{
		root: root,
		resolver: resolver.New(resolver.Options{
			CheckVersions: checkVersions,
			MaxDepth:      s.cfg.MaxDepth,
			Logger:        s.cfg.Logger,
		}),
	}

	keyOpts := cache.ResolutionKeyOpts{
		Root:          route + "#" + in.Root,
		CheckVersions: checkVersions,
		MaxDepth:      s.cfg.MaxDepth,
	}
	if needRepo {
		req.repository, err = s.targetRepository(in.Repository)
		if err != nil {
			return nil, err
		}
		keyOpts.Repository = cache.Hash(in.Repository)
	}
	req.cacheKey = s.keyer.ResolutionKey(cache.Hash(in.Packages), keyOpts)
	return req, nil
}

func (s *Server) targetRepository(raw json.RawMessage) (*repo.Repository, error) {
	if len(raw) == 0 {
		if s.cfg.Repository == nil {
			return nil, fsmerrors.New(fsmerrors.ErrCodeInvalidInput, "repository is required")
		}
		return s.cfg.Repository, nil
	}
	pkgs, err := manifest.DecodeListing(bytes.NewReader(raw), manifest.FormatJSON, s.mode)
	if err != nil {
		return nil, err
	}
	return repo.New(pkgs)
}

func names(pkgs []*deps.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = deps.Key(p)
	}
	return out
}
