// Package storage persists bencoded documents in a pebble database keyed by KSUID.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/bencodec/pkg/bencode"
)

var ErrNotFound = errors.New("storage: document not found")

// docPrefix namespaces document keys so other record types can share the database.
var docPrefix = []byte("doc/")

// Stats summarizes the stored documents. Bytes counts canonical payload bytes.
// Records too short to hold a header are counted in Corrupt and nowhere else.
type Stats struct {
	Documents int   `json:"documents"`
	Bytes     int64 `json:"bytes"`
	Corrupt   int   `json:"corrupt,omitempty"`
}

// DocumentInfo describes a stored document without decoding it.
type DocumentInfo struct {
	ID       ksuid.KSUID `json:"id"`
	Size     int         `json:"size"`
	Created  time.Time   `json:"created"`
	Modified time.Time   `json:"modified"`
}

// DocumentStore stores values in canonical form. Documents accepted through
// CreateRaw or UpdateRaw are validated with the store's decoder options.
type DocumentStore struct {
	db     *pebble.DB
	opts   []bencode.Option
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*DocumentStore)

func WithDecoderOptions(opts ...bencode.Option) Option {
	return func(s *DocumentStore) {
		s.opts = opts
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *DocumentStore) {
		s.logger = logger
	}
}

func NewDocumentStore(path string, opts ...Option) (*DocumentStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	s := &DocumentStore{db: db, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug().Str("path", path).Msg("document store opened")
	return s, nil
}

// Create stores v under a new id.
func (s *DocumentStore) Create(v bencode.Value) (ksuid.KSUID, error) {
	data, err := bencode.Marshal(v)
	if err != nil {
		return ksuid.Nil, err
	}
	info, err := s.put(data)
	if err != nil {
		return ksuid.Nil, err
	}
	return info.ID, nil
}

// CreateRaw validates data, stores its canonical form and returns the stored
// document's info along with the parsed value.
func (s *DocumentStore) CreateRaw(data []byte) (DocumentInfo, bencode.Value, error) {
	v, canonical, err := s.canonicalize(data)
	if err != nil {
		return DocumentInfo{}, bencode.Value{}, err
	}
	info, err := s.put(canonical)
	if err != nil {
		return DocumentInfo{}, bencode.Value{}, err
	}
	return info, v, nil
}

func (s *DocumentStore) Read(id ksuid.KSUID) (bencode.Value, error) {
	data, err := s.ReadRaw(id)
	if err != nil {
		return bencode.Value{}, err
	}
	v, err := bencode.Unmarshal(data)
	if err != nil {
		return bencode.Value{}, fmt.Errorf("stored document %s is corrupt: %w", id, err)
	}
	return v, nil
}

// ReadRaw returns the stored canonical bytes.
func (s *DocumentStore) ReadRaw(id ksuid.KSUID) ([]byte, error) {
	rec, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return rec.Payload, nil
}

// Info reports the size and timestamps of a document.
func (s *DocumentStore) Info(id ksuid.KSUID) (DocumentInfo, error) {
	rec, err := s.get(id)
	if err != nil {
		return DocumentInfo{}, err
	}
	return documentInfo(id, rec), nil
}

// Update replaces an existing document.
func (s *DocumentStore) Update(id ksuid.KSUID, v bencode.Value) error {
	data, err := bencode.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.replace(id, data)
	return err
}

// UpdateRaw validates data and replaces an existing document with its
// canonical form.
func (s *DocumentStore) UpdateRaw(id ksuid.KSUID, data []byte) (DocumentInfo, bencode.Value, error) {
	v, canonical, err := s.canonicalize(data)
	if err != nil {
		return DocumentInfo{}, bencode.Value{}, err
	}
	info, err := s.replace(id, canonical)
	if err != nil {
		return DocumentInfo{}, bencode.Value{}, err
	}
	return info, v, nil
}

func (s *DocumentStore) Delete(id ksuid.KSUID) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	if err := s.db.Delete(docKey(id), pebble.NoSync); err != nil {
		return err
	}
	s.logger.Debug().Str("id", id.String()).Msg("document deleted")
	return nil
}

// List returns up to limit ids in creation order. limit <= 0 means no limit.
func (s *DocumentStore) List(limit int) ([]ksuid.KSUID, error) {
	var ids []ksuid.KSUID
	err := s.scan(func(key, _ []byte) bool {
		id, err := ksuid.FromBytes(key[len(docPrefix):])
		if err != nil {
			s.logger.Warn().Hex("key", key).Msg("skipping malformed document key")
			return true
		}
		ids = append(ids, id)
		return limit <= 0 || len(ids) < limit
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *DocumentStore) Stats() (Stats, error) {
	var st Stats
	err := s.scan(func(_, value []byte) bool {
		if len(value) < recordHeaderSize {
			st.Corrupt++
			return true
		}
		st.Documents++
		st.Bytes += int64(len(value) - recordHeaderSize)
		return true
	})
	return st, err
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func (s *DocumentStore) put(data []byte) (DocumentInfo, error) {
	id := ksuid.New()
	rec := newRecord(data, s.now())
	if err := s.db.Set(docKey(id), rec.encode(), pebble.NoSync); err != nil {
		return DocumentInfo{}, err
	}
	s.logger.Debug().Str("id", id.String()).Int("bytes", len(data)).Msg("document stored")
	return documentInfo(id, rec), nil
}

func (s *DocumentStore) replace(id ksuid.KSUID, data []byte) (DocumentInfo, error) {
	if _, err := s.get(id); err != nil {
		return DocumentInfo{}, err
	}
	rec := newRecord(data, s.now())
	if err := s.db.Set(docKey(id), rec.encode(), pebble.NoSync); err != nil {
		return DocumentInfo{}, err
	}
	return documentInfo(id, rec), nil
}

func documentInfo(id ksuid.KSUID, rec *record) DocumentInfo {
	return DocumentInfo{
		ID:       id,
		Size:     len(rec.Payload),
		Created:  id.Time().UTC(),
		Modified: rec.modified(),
	}
}

// get loads and verifies the record for id. The result does not alias pebble memory.
func (s *DocumentStore) get(id ksuid.KSUID) (*record, error) {
	data, closer, err := s.db.Get(docKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer closer.Close()

	// data is only valid until closer.Close
	owned := make([]byte, len(data))
	copy(owned, data)

	rec, err := decodeRecord(owned)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id.String()).Msg("corrupt document record")
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	return rec, nil
}

func (s *DocumentStore) canonicalize(data []byte) (bencode.Value, []byte, error) {
	v, err := bencode.Unmarshal(data, s.opts...)
	if err != nil {
		return bencode.Value{}, nil, err
	}
	canonical, err := bencode.Marshal(v)
	if err != nil {
		return bencode.Value{}, nil, err
	}
	return v, canonical, nil
}

func (s *DocumentStore) scan(fn func(key, value []byte) bool) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: docPrefix,
		UpperBound: prefixEnd(docPrefix),
	})
	if err != nil {
		return err
	}
	for valid := iter.First(); valid; valid = iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	return iter.Close()
}

func docKey(id ksuid.KSUID) []byte {
	raw := id.Bytes()
	key := make([]byte, 0, len(docPrefix)+len(raw))
	key = append(key, docPrefix...)
	return append(key, raw...)
}

// prefixEnd returns the smallest key greater than every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
