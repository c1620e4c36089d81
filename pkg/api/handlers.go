package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/bjson"
	"github.com/ssargent/bencodec/pkg/storage"
)

// Server holds the API server state
type Server struct {
	store   IDocumentStore
	config  ServerConfig
	metrics *Metrics
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(store IDocumentStore, config ServerConfig, metrics *Metrics, logger zerolog.Logger) *Server {
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDecode godoc
//
//	@Summary		Decode bencode
//	@Description	Parse a bencoded body and return it as JSON
//	@Tags			codec
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"Bencoded value"
//	@Success		200		{object}	DecodeResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/decode [post]
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	v, err := bencode.Unmarshal(body, s.config.DecoderOptions...)
	s.metrics.RecordCodecOperation("decode", err == nil, len(body))
	if err != nil {
		sendCodecError(w, err)
		return
	}

	value, err := bjson.ToJSON(v)
	if err != nil {
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sendSuccess(w, DecodeResponse{
		Value:     value,
		Kind:      v.Kind().String(),
		Canonical: bencode.IsCanonical(body),
	})
}

// handleEncode godoc
//
//	@Summary		Encode JSON
//	@Description	Convert a JSON body into canonical bencode
//	@Tags			codec
//	@Accept			json
//	@Produce		octet-stream
//	@Param			body	body		object	true	"JSON value"
//	@Success		200		{string}	string	"Bencoded value"
//	@Failure		400		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/encode [post]
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	v, err := bjson.FromJSON(body)
	if err != nil {
		s.metrics.RecordCodecOperation("encode", false, 0)
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := bencode.Marshal(v)
	s.metrics.RecordCodecOperation("encode", err == nil, len(data))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to encode value: %v", err), http.StatusInternalServerError)
		return
	}

	writeBencode(w, data)
}

// handleValidate godoc
//
//	@Summary		Validate bencode
//	@Description	Report whether a body is well-formed and canonical bencode
//	@Tags			codec
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"Bencoded value"
//	@Success		200		{object}	ValidateResponse
//	@Security		ApiKeyAuth
//	@Router			/validate [post]
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	v, err := bencode.Unmarshal(body, s.config.DecoderOptions...)
	s.metrics.RecordCodecOperation("validate", err == nil, len(body))

	response := ValidateResponse{Valid: err == nil}
	if err != nil {
		response.Error = err.Error()
		var syntaxErr *bencode.SyntaxError
		if errors.As(err, &syntaxErr) {
			offset := syntaxErr.Offset
			response.Offset = &offset
		}
	} else {
		response.Kind = v.Kind().String()
		response.Canonical = bencode.IsCanonical(body)
	}
	sendSuccess(w, response)
}

// handleCreateDocument godoc
//
//	@Summary		Store a document
//	@Description	Validate a bencoded body and store its canonical form
//	@Tags			documents
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"Bencoded value"
//	@Success		200		{object}	DocumentResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/documents [post]
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	info, v, err := s.store.CreateRaw(body)
	s.metrics.RecordStoreOperation("create", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	sendSuccess(w, DocumentResponse{
		ID:   info.ID.String(),
		Kind: v.Kind().String(),
		Size: info.Size,
	})
}

// handleListDocuments godoc
//
//	@Summary		List documents
//	@Description	List stored document ids in creation order
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of ids"
//	@Success		200		{object}	DocumentListResponse
//	@Failure		400		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	start := time.Now()
	ids, err := s.store.List(limit)
	s.metrics.RecordStoreOperation("list", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sendSuccess(w, DocumentListResponse{IDs: out, Count: len(out)})
}

// handleGetDocument godoc
//
//	@Summary		Get a document
//	@Description	Return a stored document as JSON or as raw bencode
//	@Tags			documents
//	@Produce		json,octet-stream
//	@Param			id		path		string	true	"Document id"
//	@Param			format	query		string	false	"json (default) or raw"
//	@Success		200		{object}	DocumentResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
	case "raw":
		start := time.Now()
		data, err := s.store.ReadRaw(id)
		s.metrics.RecordStoreOperation("read", err == nil, time.Since(start))
		if err != nil {
			s.sendStoreError(w, err)
			return
		}
		writeBencode(w, data)
		return
	default:
		sendError(w, fmt.Sprintf("Unknown format %q", format), http.StatusBadRequest)
		return
	}

	start := time.Now()
	v, err := s.store.Read(id)
	s.metrics.RecordStoreOperation("read", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	value, err := bjson.ToJSON(v)
	if err != nil {
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	sendSuccess(w, DocumentResponse{
		ID:    id.String(),
		Kind:  v.Kind().String(),
		Value: value,
	})
}

// handleUpdateDocument godoc
//
//	@Summary		Replace a document
//	@Description	Validate a bencoded body and replace an existing document
//	@Tags			documents
//	@Accept			octet-stream
//	@Produce		json
//	@Param			id		path		string	true	"Document id"
//	@Param			body	body		[]byte	true	"Bencoded value"
//	@Success		200		{object}	DocumentResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/documents/{id} [put]
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	info, v, err := s.store.UpdateRaw(id, body)
	s.metrics.RecordStoreOperation("update", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	sendSuccess(w, DocumentResponse{
		ID:   id.String(),
		Kind: v.Kind().String(),
		Size: info.Size,
	})
}

// handleDeleteDocument godoc
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Delete(id)
	s.metrics.RecordStoreOperation("delete", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"id": id.String(), "status": "deleted"})
}

// handleStats godoc
//
//	@Summary		Store statistics
//	@Description	Document count and total stored size
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	storage.Stats
//	@Security		ApiKeyAuth
//	@Router			/stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.metrics.UpdateStoreStats(stats.Documents, stats.Bytes)
	sendSuccess(w, stats)
}

// startMetricsUpdater periodically updates document store metrics until ctx is done
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.store.Stats()
			if err != nil {
				s.logger.Warn().Err(err).Msg("failed to collect store stats")
				continue
			}
			s.metrics.UpdateStoreStats(stats.Documents, stats.Bytes)
		}
	}
}

func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sendError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, bencode.ErrInvalidEncoding), errors.Is(err, bencode.ErrTruncatedInput):
		sendCodecError(w, err)
	default:
		s.logger.Error().Err(err).Msg("document store failure")
		sendError(w, "Internal storage error", http.StatusInternalServerError)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(w, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func documentID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid document id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func writeBencode(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", ContentTypeBencode)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
