package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"storagecore/internal/blob"
	"storagecore/internal/catalog"
)

type errorResponse struct {
	Error string `json:"error"`
}

type putResponse struct {
	Record     catalog.ObjectRecord `json:"record"`
	Violations []catalog.Violation  `json:"violations,omitempty"`
}

type presignRequest struct {
	Key           string `json:"key"`
	Method        string `json:"method,omitempty"`
	ExpirySeconds int    `json:"expiry_seconds,omitempty"`
}

type presignResponse struct {
	URL string `json:"url"`
}

type flagsRequest struct {
	ReadOnly       *bool `json:"read_only,omitempty"`
	PresignEnabled *bool `json:"presign_enabled,omitempty"`
}

type flagsResponse struct {
	ReadOnly       bool `json:"read_only"`
	PresignEnabled bool `json:"presign_enabled"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	if s.runtime.ReadOnly() {
		writeError(w, http.StatusServiceUnavailable, "service is in read-only mode")
		return
	}
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, http.StatusBadRequest, "object key required")
		return
	}
	record, res, err := s.service.PutObject(r.Context(), key, r.Body, blob.PutOptions{
		ContentType: r.Header.Get("Content-Type"),
		Metadata:    metadataFromHeader(r.Header),
	})
	if errors.Is(err, blob.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "object already exists")
		return
	}
	if err != nil {
		if res.Blocking() {
			writeJSON(w, http.StatusUnprocessableEntity, putResponse{Violations: res.Violations})
			return
		}
		s.logger.Error().Err(err).Str("key", key).Msg("put object failed")
		writeError(w, http.StatusInternalServerError, "put object failed")
		return
	}
	writeJSON(w, http.StatusCreated, putResponse{Record: record, Violations: res.Violations})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	info, rc, err := s.service.GetObject(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("get object failed")
		writeError(w, http.StatusInternalServerError, "get object failed")
		return
	}
	defer func() { _ = rc.Close() }()

	setObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("streaming object body failed")
	}
}

func (s *Server) handleStatObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	info, err := s.service.StatObject(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("stat object failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	setObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	if s.runtime.ReadOnly() {
		writeError(w, http.StatusServiceUnavailable, "service is in read-only mode")
		return
	}
	key := chi.URLParam(r, "*")
	existed, _, err := s.service.DeleteObject(r.Context(), key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("delete object failed")
		writeError(w, http.StatusInternalServerError, "delete object failed")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	order, err := blob.OrderFor(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	infos, err := s.service.ListObjects(r.Context(), r.URL.Query().Get("prefix"), order)
	if err != nil {
		s.logger.Error().Err(err).Msg("list objects failed")
		writeError(w, http.StatusInternalServerError, "list objects failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": infos})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecords(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list records failed")
		writeError(w, http.StatusInternalServerError, "list records failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	if !s.runtime.PresignEnabled() {
		writeError(w, http.StatusServiceUnavailable, "pre-signing is disabled")
		return
	}
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid presign request")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "object key required")
		return
	}
	u, err := s.service.PresignObject(r.Context(), req.Key, blob.SignedURLOptions{
		Method: req.Method,
		Expiry: time.Duration(req.ExpirySeconds) * time.Second,
	})
	if errors.Is(err, blob.ErrUnsupported) {
		writeError(w, http.StatusNotImplemented, "backend does not support pre-signed URLs")
		return
	}
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", req.Key).Msg("presign failed")
		writeError(w, http.StatusInternalServerError, "presign failed")
		return
	}
	writeJSON(w, http.StatusOK, presignResponse{URL: u})
}

func (s *Server) handleListPlugins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plugins": s.service.RegisteredPlugins()})
}

func (s *Server) handleSetFlags(w http.ResponseWriter, r *http.Request) {
	var req flagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid flags request")
		return
	}
	if req.ReadOnly != nil {
		s.runtime.SetReadOnly(*req.ReadOnly)
	}
	if req.PresignEnabled != nil {
		s.runtime.SetPresignEnabled(*req.PresignEnabled)
	}
	writeJSON(w, http.StatusOK, flagsResponse{
		ReadOnly:       s.runtime.ReadOnly(),
		PresignEnabled: s.runtime.PresignEnabled(),
	})
}

// metadataFromHeader collects X-Object-Meta-* headers into object metadata.
func metadataFromHeader(h http.Header) map[string]string {
	const prefix = "X-Object-Meta-"
	var meta map[string]string
	for name, values := range h {
		if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[name[len(prefix):]] = values[0]
	}
	return meta
}

func setObjectHeaders(w http.ResponseWriter, info blob.Info) {
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}
	for k, v := range info.Metadata {
		w.Header().Set("X-Object-Meta-"+k, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
