// Package bencode provides parsing and serialization of bencoded values.
//
// Bencode is a compact, self-delimiting and binary-safe encoding with four
// value kinds. Every value starts with a lead byte that identifies its kind,
// so the format needs no header, version field or checksum.
//
// # Wire Format
//
//	Integer      i<digits>e            i42e, i-7e
//	Byte string  <length>:<bytes>      4:spam
//	List         l<value>*e            l4:spami42ee
//	Dictionary   d(<string><value>)*e  d3:bari2e3:fooi1ee
//
// Byte strings carry raw bytes with no text encoding assumed. Dictionary keys
// are byte strings; the canonical form lists them in ascending lexicographic
// byte order.
//
// # Value Model
//
// A Value holds one of Integer, ByteString, List or Dictionary. The zero Value
// is Empty, the sentinel returned alongside a parse error; it is never
// produced by a successful parse and cannot be serialized.
//
//	v := bencode.NewDictionary()
//	_ = v.Set("name", bencode.NewString("Jake"))
//	_ = v.Set("age", bencode.NewInteger(42))
//
//	age, _, _ := v.Lookup("age")
//	n, err := age.AsInteger()
//
// Typed accessors never coerce between kinds and fail with ErrTypeMismatch.
// Lookup reads a dictionary entry without side effects; IndexByKey and Upsert
// insert an Empty entry when the key is missing. IndexByPosition fails with
// ErrIndexOutOfRange outside [0, Len()).
//
// # Parsing
//
// Parse and Decoder.Decode consume exactly one value using one byte of
// lookahead. Parsing is single pass: any failure aborts the call and no
// partial value is returned. Syntax errors are *SyntaxError values carrying
// the byte offset and wrapping ErrInvalidEncoding or ErrTruncatedInput:
//
//	v, err := bencode.Unmarshal(data)
//	if errors.Is(err, bencode.ErrTruncatedInput) {
//	    // wait for more data
//	}
//
// To read several values from one stream, keep one Decoder (or pass a
// *bufio.Reader) and call Decode until it returns io.EOF.
//
// # Decoder Policies
//
// The grammar leaves a few questions open. By default the decoder accepts
// them; options turn each into a hard error:
//
//   - WithDuplicateKeys(DuplicateReject): a repeated dictionary key
//   - WithRejectLeadingZeros: i00e, 05:hello
//   - WithRejectNegativeZero: i-0e
//   - WithRejectUnsortedKeys: dictionary keys out of canonical order
//   - WithStrict: all of the above
//
// WithIntBits bounds integers to a signed width (64 by default); a value that
// does not fit is ErrInvalidEncoding rather than wrapping around. WithMaxDepth
// and WithMaxStringLength bound resource use on untrusted input.
//
// # Serialization
//
// Serialize, Marshal and Encoder write the canonical form. Serializing a well
// formed tree cannot fail except through the underlying writer.
//
// # Thread Safety
//
// Parse, Unmarshal, Serialize and Marshal share no state and are safe to call
// concurrently on independent inputs. Decoder and Encoder instances are not
// safe for concurrent use, and a Value tree must not be mutated while it is
// being serialized.
package bencode
