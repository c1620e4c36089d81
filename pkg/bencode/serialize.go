package bencode

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

// Encoder writes values in canonical form.
type Encoder struct {
	w       *bufio.Writer
	scratch []byte
	seen    ancestry
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), scratch: make([]byte, 0, 24), seen: ancestry{}}
}

// Encode writes v and flushes. A tree containing an Empty value fails with
// ErrEmptyValue and a tree containing itself with ErrCyclicValue; output
// written before the offending node is still flushed.
func (e *Encoder) Encode(v Value) error {
	if err := e.value(v); err != nil {
		if flushErr := e.w.Flush(); flushErr != nil {
			return flushErr
		}
		return err
	}
	return e.w.Flush()
}

// Serialize writes the canonical encoding of v to w.
func Serialize(w io.Writer, v Value) error {
	return NewEncoder(w).Encode(v)
}

// Marshal returns the canonical encoding of v.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsCanonical reports whether data is exactly the canonical encoding of the
// value it holds.
func IsCanonical(data []byte) bool {
	v, err := Unmarshal(data, WithStrict())
	if err != nil {
		return false
	}
	out, err := Marshal(v)
	if err != nil {
		return false
	}
	return bytes.Equal(out, data)
}

func (e *Encoder) value(v Value) error {
	switch v.kind {
	case KindInteger:
		return e.integer(v.i)
	case KindByteString:
		return e.byteString(v.s)
	case KindList:
		id, ok := e.seen.enter(v)
		if !ok {
			return ErrCyclicValue
		}
		defer e.seen.leave(id)
		if err := e.w.WriteByte('l'); err != nil {
			return err
		}
		for _, item := range v.list {
			if err := e.value(item); err != nil {
				return err
			}
		}
		return e.w.WriteByte('e')
	case KindDictionary:
		id, ok := e.seen.enter(v)
		if !ok {
			return ErrCyclicValue
		}
		defer e.seen.leave(id)
		if err := e.w.WriteByte('d'); err != nil {
			return err
		}
		for _, k := range v.dict.Keys() {
			if err := e.byteString([]byte(k)); err != nil {
				return err
			}
			if err := e.value(*v.dict.entries[k]); err != nil {
				return err
			}
		}
		return e.w.WriteByte('e')
	default:
		return ErrEmptyValue
	}
}

func (e *Encoder) integer(n int64) error {
	e.scratch = append(e.scratch[:0], 'i')
	e.scratch = strconv.AppendInt(e.scratch, n, 10)
	e.scratch = append(e.scratch, 'e')
	_, err := e.w.Write(e.scratch)
	return err
}

func (e *Encoder) byteString(s []byte) error {
	e.scratch = strconv.AppendInt(e.scratch[:0], int64(len(s)), 10)
	e.scratch = append(e.scratch, ':')
	if _, err := e.w.Write(e.scratch); err != nil {
		return err
	}
	_, err := e.w.Write(s)
	return err
}
