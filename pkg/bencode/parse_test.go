package bencode

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_WellFormed(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  Value
	}{
		{"positive integer", "i42e", NewInteger(42)},
		{"negative integer", "i-5e", NewInteger(-5)},
		{"zero", "i0e", NewInteger(0)},
		{"int64 max", "i9223372036854775807e", NewInteger(9223372036854775807)},
		{"int64 min", "i-9223372036854775808e", NewInteger(-9223372036854775808)},
		{"byte string", "4:spam", NewString("spam")},
		{"empty byte string", "0:", NewString("")},
		{"binary byte string", "3:\x00\xffe", NewByteString([]byte{0x00, 0xff, 'e'})},
		{"string containing grammar bytes", "5:i1e:d", NewString("i1e:d")},
		{"empty list", "le", NewList()},
		{"empty dictionary", "de", NewDictionary()},
		{"list", "l4:spami42ee", NewList(NewString("spam"), NewInteger(42))},
		{"nested list", "llleee", NewList(NewList(NewList()))},
		{
			"dictionary",
			"d3:bari2e3:fooi1ee",
			NewDictionaryFrom(map[string]Value{"bar": NewInteger(2), "foo": NewInteger(1)}),
		},
		{
			"unsorted dictionary is accepted",
			"d3:fooi1e3:bari2ee",
			NewDictionaryFrom(map[string]Value{"bar": NewInteger(2), "foo": NewInteger(1)}),
		},
		{
			"heterogeneous nesting",
			"d4:listli1e1:xde3:subd1:k1:vee",
			NewDictionaryFrom(map[string]Value{
				"list": NewList(NewInteger(1), NewString("x"), NewDictionary()),
				"sub":  NewDictionaryFrom(map[string]Value{"k": NewString("v")}),
			}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Unmarshal([]byte(tc.input))
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "got %s, want %s", got, tc.want)
		})
	}
}

func TestUnmarshal_EndToEnd(t *testing.T) {
	input := "d3:agei42e4:name4:Jakee"

	v, err := Unmarshal([]byte(input))
	require.NoError(t, err)
	require.Equal(t, KindDictionary, v.Kind())

	age, ok, err := v.Lookup("age")
	require.NoError(t, err)
	require.True(t, ok)
	n, err := age.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	name, ok, err := v.Lookup("name")
	require.NoError(t, err)
	require.True(t, ok)
	s, err := name.AsByteString()
	require.NoError(t, err)
	assert.Equal(t, "Jake", string(s))

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestUnmarshal_Malformed(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		kind   error
		reason string
		offset int64
	}{
		{"empty input", "", ErrTruncatedInput, "empty input", 0},
		{"unrecognized lead byte", "x", ErrInvalidEncoding, "unrecognized lead byte", 0},
		{"integer without digits", "ie", ErrInvalidEncoding, "no digits", 1},
		{"integer sign without digits", "i-e", ErrInvalidEncoding, "no digits", 2},
		{"integer bad terminator", "i12x", ErrInvalidEncoding, "bad terminator", 3},
		{"integer plus sign", "i+1e", ErrInvalidEncoding, "no digits", 1},
		{"integer truncated", "i12", ErrTruncatedInput, "unexpected end of input", 3},
		{"integer only lead byte", "i", ErrTruncatedInput, "unexpected end of input", 1},
		{"integer overflow", "i9223372036854775808e", ErrInvalidEncoding, "malformed number", 0},
		{"string truncated", "5:ab", ErrTruncatedInput, "unexpected end of input", 4},
		{"string missing separator", "4spam", ErrInvalidEncoding, "missing ':' separator", 1},
		{"string length then eof", "4", ErrTruncatedInput, "unexpected end of input", 1},
		{"string length overflow", "99999999999999999999:", ErrInvalidEncoding, "malformed length", 0},
		{"list unterminated", "li1e", ErrTruncatedInput, "unexpected end of input", 4},
		{"list bad element", "lxe", ErrInvalidEncoding, "unrecognized lead byte", 1},
		{"dictionary integer key", "di1ei2ee", ErrInvalidEncoding, "key must be a byte string", 1},
		{"dictionary list key", "dlei1ee", ErrInvalidEncoding, "key must be a byte string", 1},
		{"dictionary later key not string", "d1:ai1ei2ei3ee", ErrInvalidEncoding, "key must be a byte string", 7},
		{"dictionary missing value", "d1:ae", ErrInvalidEncoding, "unrecognized lead byte", 4},
		{"dictionary unterminated", "d1:ai1e", ErrTruncatedInput, "unexpected end of input", 7},
		{"trailing data", "i1ei2e", ErrInvalidEncoding, "trailing bytes", 3},
		{"bare terminator", "e", ErrInvalidEncoding, "unrecognized lead byte", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Unmarshal([]byte(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.True(t, v.IsEmpty())

			var syn *SyntaxError
			require.True(t, errors.As(err, &syn))
			assert.Contains(t, syn.Reason, tc.reason)
			assert.Equal(t, tc.offset, syn.Offset)
		})
	}
}

func TestParse_ErrorKindsAreDistinct(t *testing.T) {
	_, err := Unmarshal([]byte("5:ab"))
	assert.False(t, errors.Is(err, ErrInvalidEncoding))

	_, err = Unmarshal([]byte("ie"))
	assert.False(t, errors.Is(err, ErrTruncatedInput))
}

func TestParse_IntBits(t *testing.T) {
	v, err := Unmarshal([]byte("i2147483647e"), WithIntBits(32))
	require.NoError(t, err)
	assert.True(t, Equal(NewInteger(2147483647), v))

	v, err = Unmarshal([]byte("i-2147483648e"), WithIntBits(32))
	require.NoError(t, err)
	assert.True(t, Equal(NewInteger(-2147483648), v))

	_, err = Unmarshal([]byte("i2147483648e"), WithIntBits(32))
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = Unmarshal([]byte("i128e"), WithIntBits(8))
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	// unsupported widths fall back to 64 bits
	v, err = Unmarshal([]byte("i2147483648e"), WithIntBits(12))
	require.NoError(t, err)
	assert.True(t, Equal(NewInteger(2147483648), v))
}

func TestParse_DuplicateKeyPolicy(t *testing.T) {
	input := []byte("d1:ai1e1:ai2ee")

	t.Run("overwrite by default", func(t *testing.T) {
		v, err := Unmarshal(input)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Len())
		got, _, err := v.Lookup("a")
		require.NoError(t, err)
		assert.True(t, Equal(NewInteger(2), got))
	})

	t.Run("reject", func(t *testing.T) {
		_, err := Unmarshal(input, WithDuplicateKeys(DuplicateReject))
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.ErrorIs(t, err, ErrInvalidEncoding)

		var syn *SyntaxError
		require.True(t, errors.As(err, &syn))
		assert.Equal(t, int64(7), syn.Offset)
	})
}

func TestParse_LeadingZeroPolicy(t *testing.T) {
	testCases := []struct {
		input string
		want  Value
	}{
		{"i00e", NewInteger(0)},
		{"i007e", NewInteger(7)},
		{"i-05e", NewInteger(-5)},
		{"05:hello", NewString("hello")},
		{"00:", NewString("")},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			v, err := Unmarshal([]byte(tc.input))
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, v))

			_, err = Unmarshal([]byte(tc.input), WithRejectLeadingZeros(true))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEncoding)
			assert.Contains(t, err.Error(), "leading zero")
		})
	}

	t.Run("single zero is not a leading zero", func(t *testing.T) {
		_, err := Unmarshal([]byte("i0e"), WithRejectLeadingZeros(true))
		assert.NoError(t, err)
		_, err = Unmarshal([]byte("0:"), WithRejectLeadingZeros(true))
		assert.NoError(t, err)
		_, err = Unmarshal([]byte("10:0123456789"), WithRejectLeadingZeros(true))
		assert.NoError(t, err)
	})
}

func TestParse_NegativeZeroPolicy(t *testing.T) {
	v, err := Unmarshal([]byte("i-0e"))
	require.NoError(t, err)
	assert.True(t, Equal(NewInteger(0), v))

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "i0e", string(out))

	_, err = Unmarshal([]byte("i-0e"), WithRejectNegativeZero(true))
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Contains(t, err.Error(), "negative zero")
}

func TestParse_UnsortedKeyPolicy(t *testing.T) {
	_, err := Unmarshal([]byte("d3:fooi1e3:bari2ee"), WithRejectUnsortedKeys(true))
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = Unmarshal([]byte("d3:bari2e3:fooi1ee"), WithRejectUnsortedKeys(true))
	assert.NoError(t, err)
}

func TestParse_Strict(t *testing.T) {
	for _, input := range []string{"i-0e", "i01e", "01:a", "d1:bi1e1:ai1ee", "d1:ai1e1:ai1ee"} {
		_, err := Unmarshal([]byte(input), WithStrict())
		assert.ErrorIs(t, err, ErrInvalidEncoding, input)
	}
	_, err := Unmarshal([]byte("d1:ai1e1:bl0:i-3eee"), WithStrict())
	assert.NoError(t, err)
}

func TestParse_MaxDepth(t *testing.T) {
	_, err := Unmarshal([]byte("llee"), WithMaxDepth(2))
	assert.NoError(t, err)

	_, err = Unmarshal([]byte("llleee"), WithMaxDepth(2))
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	_, err = Unmarshal([]byte("ld1:alee"), WithMaxDepth(1))
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	deep := strings.Repeat("l", 1000) + strings.Repeat("e", 1000)
	_, err = Unmarshal([]byte(deep))
	assert.NoError(t, err)
}

func TestParse_MaxStringLength(t *testing.T) {
	_, err := Unmarshal([]byte("4:spam"), WithMaxStringLength(4))
	assert.NoError(t, err)

	_, err = Unmarshal([]byte("5:spams"), WithMaxStringLength(4))
	assert.ErrorIs(t, err, ErrStringTooLong)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestParse_LargeStringTruncated(t *testing.T) {
	// A large length prefix with little data must fail without reading past the input.
	input := "1000000:" + strings.Repeat("a", 10)
	_, err := Unmarshal([]byte(input))
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestParse_LargeString(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, directReadLimit*3+17)
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, NewByteString(payload)))

	v, err := Unmarshal(buf.Bytes())
	require.NoError(t, err)
	s, err := v.AsByteString()
	require.NoError(t, err)
	assert.Equal(t, payload, s)
}

func TestDecoder_Sequential(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("i1e4:spamlei-2eXYZ"))
	dec := NewDecoder(br)

	var got []Value
	for i := 0; i < 4; i++ {
		v, err := dec.Decode()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.True(t, Equal(NewInteger(1), got[0]))
	assert.True(t, Equal(NewString("spam"), got[1]))
	assert.True(t, Equal(NewList(), got[2]))
	assert.True(t, Equal(NewInteger(-2), got[3]))
	assert.Equal(t, int64(15), dec.InputOffset())

	// the stream is positioned right after the last value
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "XYZ", string(rest))
}

func TestDecoder_ContainerTerminatorsConsumed(t *testing.T) {
	dec := NewDecoder(strings.NewReader("ldeleei7e"))

	v, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, "ldelee", v.String())
	assert.Equal(t, int64(6), dec.InputOffset())

	v, err = dec.Decode()
	require.NoError(t, err)
	assert.True(t, Equal(NewInteger(7), v))
	assert.Equal(t, int64(9), dec.InputOffset())

	_, err = dec.Decode()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_EOFAtBoundary(t *testing.T) {
	dec := NewDecoder(strings.NewReader("i1e"))
	_, err := dec.Decode()
	require.NoError(t, err)

	_, err = dec.Decode()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_OptionsAreResolved(t *testing.T) {
	dec := NewDecoder(strings.NewReader(""), WithStrict(), WithIntBits(32), nil)
	opts := dec.Options()
	assert.Equal(t, 32, opts.IntBits)
	assert.Equal(t, DuplicateReject, opts.DuplicateKeys)
	assert.True(t, opts.RejectLeadingZeros)
	assert.True(t, opts.RejectNegativeZero)
	assert.True(t, opts.RejectUnsortedKeys)
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestParse_ReaderErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")

	_, err := Parse(&failingReader{data: []byte("l4:spa"), err: boom})
	assert.Equal(t, boom, err)

	_, err = Parse(&failingReader{err: boom})
	assert.Equal(t, boom, err)
}

func TestParse_EmptyReader(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, DuplicateReject, p)
	assert.Equal(t, "reject", p.String())

	p, err = ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicateOverwrite, p)

	_, err = ParseDuplicatePolicy("merge")
	assert.Error(t, err)
}
