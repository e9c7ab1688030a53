package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/schemaplot/pkg/errors"
	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/pipeline"
	"github.com/matzehuels/schemaplot/pkg/render"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Response headers set on successful layout and render responses.
const (
	HeaderRunID      = "X-Run-Id"
	HeaderSchemaHash = "X-Schema-Hash"
	HeaderCache      = "X-Cache"
)

// layoutRequest is the body of both /v1 routes. Fields left out keep the
// server defaults.
type layoutRequest struct {
	Tables      []schema.TableDef      `json:"tables"`
	ForeignKeys []schema.ForeignKeyDef `json:"foreign_keys"`
	Layout      layout.Config          `json:"layout"`
	Compact     bool                   `json:"compact"`
	Scale       float64                `json:"scale"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestSource loads the keys posted in a request.
type requestSource struct {
	req *layoutRequest
}

func (requestSource) Name() string { return "request" }

func (s requestSource) Load(context.Context) (*schema.Schema, error) {
	sc, err := schema.Build(s.req.Tables, s.req.ForeignKeys)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid keys: %v", err)
	}
	return sc, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, render.FormatJSON)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	f, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, f)
}

// run decodes the keys, executes the pipeline for format f and writes the
// artifact.
func (s *Server) run(w http.ResponseWriter, r *http.Request, f render.Format) {
	req, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := pipeline.Options{
		Layout:  req.Layout,
		Formats: []string{string(f)},
		Compact: req.Compact,
		Scale:   req.Scale,
		Refresh: s.cfg.Defaults.Refresh,
	}

	res, err := s.runner.Execute(r.Context(), requestSource{req: req}, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cache := "miss"
	if res.CacheInfo.LayoutHit {
		cache = "hit"
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set(HeaderRunID, res.RunID)
	w.Header().Set(HeaderSchemaHash, res.SchemaHash)
	w.Header().Set(HeaderCache, cache)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Artifacts[f])))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[f])
}

// decode reads a layout request, starting from the server defaults.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*layoutRequest, error) {
	defaults := s.cfg.Defaults
	req := &layoutRequest{
		Layout:  defaults.Layout,
		Compact: defaults.Compact,
		Scale:   defaults.Scale,
	}
	if req.Layout == (layout.Config{}) {
		req.Layout = layout.DefaultConfig()
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "decode request: %v", err)
	}
	if len(req.Tables) == 0 && len(req.ForeignKeys) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request declares no tables and no foreign keys")
	}
	return req, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		if code == errors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorResponse{Status: "error", Code: string(code), Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
