package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"
)

// recordHeaderSize is CRC32(4) + Timestamp(8)
const recordHeaderSize = 12

var ErrCorrupt = errors.New("storage: document record is corrupt")

// record is the stored form of a document:
//
//	[CRC32(4)][Timestamp(8)][Payload]
//
// The CRC32 covers the timestamp and the payload. Integers are little-endian and
// the timestamp is Unix nanoseconds of the last write.
type record struct {
	CRC32     uint32
	Timestamp uint64
	Payload   []byte
}

func newRecord(payload []byte, now time.Time) *record {
	r := &record{
		Timestamp: uint64(now.UnixNano()),
		Payload:   payload,
	}
	r.CRC32 = r.checksum()
	return r
}

func (r *record) encode() []byte {
	buf := make([]byte, recordHeaderSize+len(r.Payload))
	binary.LittleEndian.PutUint32(buf[0:], r.CRC32)
	binary.LittleEndian.PutUint64(buf[4:], r.Timestamp)
	copy(buf[recordHeaderSize:], r.Payload)
	return buf
}

// decodeRecord parses and verifies data. The payload aliases data.
func decodeRecord(data []byte) (*record, error) {
	if len(data) < recordHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the record header", ErrCorrupt, len(data))
	}

	r := &record{
		CRC32:     binary.LittleEndian.Uint32(data[0:4]),
		Timestamp: binary.LittleEndian.Uint64(data[4:12]),
		Payload:   data[recordHeaderSize:],
	}
	if sum := r.checksum(); sum != r.CRC32 {
		return nil, fmt.Errorf("%w: CRC32 mismatch: %d != %d", ErrCorrupt, r.CRC32, sum)
	}
	return r, nil
}

func (r *record) modified() time.Time {
	return time.Unix(0, int64(r.Timestamp)).UTC()
}

func (r *record) checksum() uint32 {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], r.Timestamp)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(ts[:])
	_, _ = crc.Write(r.Payload)
	return crc.Sum32()
}
