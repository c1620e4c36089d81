package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/storage"
)

// ContentTypeBencode is the media type of raw bencoded bodies
const ContentTypeBencode = "application/x-bencode"

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Offset  *int64      `json:"offset,omitempty"`
}

// DecodeResponse is returned by POST /decode
type DecodeResponse struct {
	Value     interface{} `json:"value"`
	Kind      string      `json:"kind"`
	Canonical bool        `json:"canonical"`
}

// ValidateResponse is returned by POST /validate
type ValidateResponse struct {
	Valid     bool   `json:"valid"`
	Canonical bool   `json:"canonical"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
	Offset    *int64 `json:"offset,omitempty"`
}

// DocumentResponse describes a stored document
type DocumentResponse struct {
	ID    string      `json:"id"`
	Kind  string      `json:"kind,omitempty"`
	Size  int         `json:"size,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// DocumentListResponse is returned by GET /documents
type DocumentListResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind           string
	Port           int
	APIKey         string
	MaxBodyBytes   int64
	DecoderOptions []bencode.Option
}

// IDocumentStore defines the document store operations used by the API
type IDocumentStore interface {
	CreateRaw(data []byte) (storage.DocumentInfo, bencode.Value, error)
	Read(id ksuid.KSUID) (bencode.Value, error)
	ReadRaw(id ksuid.KSUID) ([]byte, error)
	UpdateRaw(id ksuid.KSUID, data []byte) (storage.DocumentInfo, bencode.Value, error)
	Delete(id ksuid.KSUID) error
	List(limit int) ([]ksuid.KSUID, error)
	Stats() (storage.Stats, error)
}

var _ IDocumentStore = (*storage.DocumentStore)(nil)
