package bencode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Strings up to this size are read into a single allocation; longer ones
// grow as data arrives so a bogus length prefix cannot force a huge buffer.
const directReadLimit = 64 * 1024

// Decoder reads successive bencode values from a stream.
type Decoder struct {
	r     *bufio.Reader
	opts  Options
	off   int64
	depth int
}

// NewDecoder returns a decoder reading from r. If r is a *bufio.Reader it is
// used directly, so after each Decode it is positioned just past the value.
// Any other reader is wrapped and may be read ahead of the decoder.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br, opts: resolveOptions(opts)}
}

// InputOffset is the number of bytes consumed so far.
func (d *Decoder) InputOffset() int64 {
	return d.off
}

// Options returns the effective decoder options.
func (d *Decoder) Options() Options {
	return d.opts
}

// Decode reads exactly one value. It returns io.EOF when the stream ends
// before the first byte of a value; an end of stream anywhere inside a value
// is ErrTruncatedInput. On failure the returned Value is Empty.
func (d *Decoder) Decode() (Value, error) {
	d.depth = 0
	if _, err := d.r.Peek(1); err != nil {
		return Value{}, err
	}
	return d.value()
}

// Parse reads one value from r. Empty input is ErrTruncatedInput.
func Parse(r io.Reader, opts ...Option) (Value, error) {
	v, err := NewDecoder(r, opts...).Decode()
	if errors.Is(err, io.EOF) {
		return Value{}, &SyntaxError{Reason: "empty input", Err: ErrTruncatedInput}
	}
	return v, err
}

// Unmarshal parses data, which must hold exactly one value.
func Unmarshal(data []byte, opts ...Option) (Value, error) {
	d := NewDecoder(bytes.NewReader(data), opts...)
	v, err := d.Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, &SyntaxError{Reason: "empty input", Err: ErrTruncatedInput}
		}
		return Value{}, err
	}
	if d.off != int64(len(data)) {
		return Value{}, d.errorf(ErrInvalidEncoding, "%d trailing bytes after value", int64(len(data))-d.off)
	}
	return v, nil
}

func (d *Decoder) value() (Value, error) {
	c, err := d.peek()
	if err != nil {
		return Value{}, err
	}
	switch {
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dictionary()
	case isDigit(c):
		s, err := d.byteString()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindByteString, s: s}, nil
	default:
		return Value{}, d.errorf(ErrInvalidEncoding, "unrecognized lead byte %q", c)
	}
}

func (d *Decoder) integer() (Value, error) {
	start := d.off
	if _, err := d.next(); err != nil {
		return Value{}, err
	}
	c, err := d.peek()
	if err != nil {
		return Value{}, err
	}
	neg := c == '-'
	if neg {
		if _, err := d.next(); err != nil {
			return Value{}, err
		}
	}

	digits, err := d.digits()
	if err != nil {
		return Value{}, err
	}
	if err := d.expect('e', len(digits) == 0, "no digits", "bad terminator"); err != nil {
		return Value{}, err
	}

	if d.opts.RejectLeadingZeros && len(digits) > 1 && digits[0] == '0' {
		return Value{}, errorAt(start, ErrInvalidEncoding, "leading zero in integer")
	}
	if neg && d.opts.RejectNegativeZero && allZeros(digits) {
		return Value{}, errorAt(start, ErrInvalidEncoding, "negative zero")
	}

	text := string(digits)
	if neg {
		text = "-" + text
	}
	n, err := strconv.ParseInt(text, 10, d.opts.IntBits)
	if err != nil {
		return Value{}, errorAt(start, ErrInvalidEncoding, "malformed number %q for %d-bit integer", text, d.opts.IntBits)
	}
	return NewInteger(n), nil
}

func (d *Decoder) byteString() ([]byte, error) {
	start := d.off
	digits, err := d.digits()
	if err != nil {
		return nil, err
	}
	if err := d.expect(':', len(digits) == 0, "missing length", "missing ':' separator"); err != nil {
		return nil, err
	}

	if d.opts.RejectLeadingZeros && len(digits) > 1 && digits[0] == '0' {
		return nil, errorAt(start, ErrInvalidEncoding, "leading zero in length")
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil, errorAt(start, ErrInvalidEncoding, "malformed length %q", digits)
	}
	if d.opts.MaxStringLength > 0 && n > d.opts.MaxStringLength {
		return nil, errorAt(start, ErrStringTooLong, "length %d, limit %d", n, d.opts.MaxStringLength)
	}
	return d.readN(n)
}

func (d *Decoder) list() (Value, error) {
	if err := d.enter(); err != nil {
		return Value{}, err
	}
	defer d.leave()
	if _, err := d.next(); err != nil {
		return Value{}, err
	}

	items := make([]Value, 0)
	for {
		c, err := d.peek()
		if err != nil {
			return Value{}, err
		}
		if c == 'e' {
			if _, err := d.next(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, list: items}, nil
		}
		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
}

func (d *Decoder) dictionary() (Value, error) {
	if err := d.enter(); err != nil {
		return Value{}, err
	}
	defer d.leave()
	if _, err := d.next(); err != nil {
		return Value{}, err
	}

	out := NewDictionary()
	var prev string
	for n := 0; ; n++ {
		c, err := d.peek()
		if err != nil {
			return Value{}, err
		}
		if c == 'e' {
			if _, err := d.next(); err != nil {
				return Value{}, err
			}
			return out, nil
		}
		if !isDigit(c) {
			return Value{}, d.errorf(ErrInvalidEncoding, "key must be a byte string")
		}

		keyOff := d.off
		raw, err := d.byteString()
		if err != nil {
			return Value{}, err
		}
		key := string(raw)
		if _, dup := out.dict.entries[key]; dup && d.opts.DuplicateKeys == DuplicateReject {
			return Value{}, errorAt(keyOff, ErrDuplicateKey, "key %q", key)
		}
		if d.opts.RejectUnsortedKeys && n > 0 && key < prev {
			return Value{}, errorAt(keyOff, ErrInvalidEncoding, "key %q sorts before %q", key, prev)
		}

		v, err := d.value()
		if err != nil {
			return Value{}, err
		}
		out.dict.put(key, v)
		prev = key
	}
}

// expect consumes want. empty reports whether the preceding digit run was
// empty, in which case a mismatch is reported with emptyReason.
func (d *Decoder) expect(want byte, empty bool, emptyReason, badReason string) error {
	c, err := d.peek()
	if err != nil {
		return err
	}
	if empty {
		return d.errorf(ErrInvalidEncoding, "%s", emptyReason)
	}
	if c != want {
		return d.errorf(ErrInvalidEncoding, "%s: found %q", badReason, c)
	}
	_, err = d.next()
	return err
}

// digits consumes a maximal run of ASCII digits. End of input simply ends
// the run; the caller decides whether that is an error.
func (d *Decoder) digits() ([]byte, error) {
	var buf []byte
	for {
		b, err := d.r.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return nil, err
		}
		c := b[0]
		if !isDigit(c) {
			return buf, nil
		}
		if _, err := d.next(); err != nil {
			return nil, err
		}
		buf = append(buf, c)
	}
}

func (d *Decoder) readN(n int64) ([]byte, error) {
	if n <= directReadLimit {
		buf := make([]byte, n)
		k, err := io.ReadFull(d.r, buf)
		d.off += int64(k)
		if err != nil {
			return nil, d.readErr(err)
		}
		return buf, nil
	}
	var buf bytes.Buffer
	k, err := io.CopyN(&buf, d.r, n)
	d.off += k
	if err != nil {
		return nil, d.readErr(err)
	}
	return buf.Bytes(), nil
}

func (d *Decoder) peek() (byte, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		return 0, d.readErr(err)
	}
	return b[0], nil
}

func (d *Decoder) next() (byte, error) {
	c, err := d.r.ReadByte()
	if err != nil {
		return 0, d.readErr(err)
	}
	d.off++
	return c, nil
}

func (d *Decoder) enter() error {
	d.depth++
	if d.opts.MaxDepth > 0 && d.depth > d.opts.MaxDepth {
		return d.errorf(ErrNestingTooDeep, "depth %d, limit %d", d.depth, d.opts.MaxDepth)
	}
	return nil
}

func (d *Decoder) leave() {
	d.depth--
}

// readErr turns an end of stream into ErrTruncatedInput and passes every
// other reader error through unchanged.
func (d *Decoder) readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return d.errorf(ErrTruncatedInput, "unexpected end of input")
	}
	return err
}

func (d *Decoder) errorf(kind error, format string, args ...any) error {
	return errorAt(d.off, kind, format, args...)
}

func errorAt(off int64, kind error, format string, args ...any) error {
	return &SyntaxError{Offset: off, Reason: fmt.Sprintf(format, args...), Err: kind}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allZeros(digits []byte) bool {
	for _, c := range digits {
		if c != '0' {
			return false
		}
	}
	return true
}
