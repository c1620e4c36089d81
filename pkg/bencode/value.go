package bencode

import (
	"bytes"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Kind identifies which alternative a Value holds.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindInteger
	KindByteString
	KindList
	KindDictionary
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindInteger:
		return "Integer"
	case KindByteString:
		return "ByteString"
	case KindList:
		return "List"
	case KindDictionary:
		return "Dictionary"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one node of a bencode tree. The zero Value is Empty.
//
// A tree owns its children. The constructors, Set and Append store deep
// copies of the values they are given, so later changes to the argument do
// not reach the tree and a value inserted into itself becomes a snapshot
// rather than a cycle.
//
// Assigning a Value to another variable copies only the top-level node, the
// way assigning a map does: both variables then address the same children.
// Use Clone for an independent tree. References returned by Upsert and
// IndexByPosition write straight into the tree; a tree made to contain
// itself through one of them is reported as ErrCyclicValue by Marshal.
type Value struct {
	kind Kind
	i    int64
	s    []byte
	list []Value
	dict *Dict
}

// NewInteger returns an Integer value.
func NewInteger(n int64) Value {
	return Value{kind: KindInteger, i: n}
}

// NewByteString copies b.
func NewByteString(b []byte) Value {
	s := make([]byte, len(b))
	copy(s, b)
	return Value{kind: KindByteString, s: s}
}

// NewString returns a ByteString holding the bytes of s.
func NewString(s string) Value {
	return Value{kind: KindByteString, s: []byte(s)}
}

// NewList returns a List holding deep copies of items.
func NewList(items ...Value) Value {
	list := make([]Value, len(items))
	for i, item := range items {
		list[i] = item.Clone()
	}
	return Value{kind: KindList, list: list}
}

// NewDictionary returns an empty Dictionary.
func NewDictionary() Value {
	return Value{kind: KindDictionary, dict: newDict()}
}

// NewDictionaryFrom returns a Dictionary holding deep copies of entries.
func NewDictionaryFrom(entries map[string]Value) Value {
	v := NewDictionary()
	for k, e := range entries {
		v.dict.Set(k, e)
	}
	return v
}

// TypeOf returns the tag of v. It never fails.
func TypeOf(v Value) Kind {
	return v.kind
}

// Kind is the method form of TypeOf.
func (v Value) Kind() Kind {
	return v.kind
}

// IsEmpty reports whether v is the Empty placeholder.
func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// AsInteger returns the integer held by v, or ErrTypeMismatch.
func (v Value) AsInteger() (int64, error) {
	if v.kind != KindInteger {
		return 0, typeMismatch(KindInteger, v.kind)
	}
	return v.i, nil
}

// AsByteString returns the payload without copying it.
func (v Value) AsByteString() ([]byte, error) {
	if v.kind != KindByteString {
		return nil, typeMismatch(KindByteString, v.kind)
	}
	return v.s, nil
}

// AsList returns the elements without copying them. Assigning to an element
// of the returned slice changes the list.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, typeMismatch(KindList, v.kind)
	}
	return v.list, nil
}

// AsDictionary returns the dictionary payload of v. Changes made through it
// are changes to v.
func (v Value) AsDictionary() (*Dict, error) {
	if v.kind != KindDictionary {
		return nil, typeMismatch(KindDictionary, v.kind)
	}
	return v.dict, nil
}

// IndexByKey returns the entry stored under key, inserting an Empty entry
// when the key is absent. It is the same operation as Upsert; use Lookup to
// read without inserting.
func (v *Value) IndexByKey(key string) (*Value, error) {
	return v.Upsert(key)
}

// Upsert returns a mutable reference to the entry under key, creating an
// Empty entry if needed.
func (v *Value) Upsert(key string) (*Value, error) {
	if v.kind != KindDictionary {
		return nil, typeMismatch(KindDictionary, v.kind)
	}
	return v.dict.Upsert(key), nil
}

// Lookup reads the entry under key without modifying the dictionary.
func (v Value) Lookup(key string) (Value, bool, error) {
	if v.kind != KindDictionary {
		return Value{}, false, typeMismatch(KindDictionary, v.kind)
	}
	e, ok := v.dict.Get(key)
	return e, ok, nil
}

// Set stores a deep copy of e under key, replacing any previous entry.
func (v *Value) Set(key string, e Value) error {
	if v.kind != KindDictionary {
		return typeMismatch(KindDictionary, v.kind)
	}
	v.dict.Set(key, e)
	return nil
}

// Delete removes key from a dictionary. Deleting a missing key is a no-op.
func (v *Value) Delete(key string) error {
	if v.kind != KindDictionary {
		return typeMismatch(KindDictionary, v.kind)
	}
	v.dict.Delete(key)
	return nil
}

// IndexByPosition returns a mutable reference to element i of a list.
func (v *Value) IndexByPosition(i int) (*Value, error) {
	if v.kind != KindList {
		return nil, typeMismatch(KindList, v.kind)
	}
	if i < 0 || i >= len(v.list) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, len(v.list))
	}
	return &v.list[i], nil
}

// Append adds deep copies of items to the end of a list. References
// previously returned by IndexByPosition may no longer alias the list
// afterwards.
func (v *Value) Append(items ...Value) error {
	if v.kind != KindList {
		return typeMismatch(KindList, v.kind)
	}
	for _, item := range items {
		v.list = append(v.list, item.Clone())
	}
	return nil
}

// Len reports the number of bytes, elements or entries. Integers and Empty
// have length 0.
func (v Value) Len() int {
	switch v.kind {
	case KindByteString:
		return len(v.s)
	case KindList:
		return len(v.list)
	case KindDictionary:
		return v.dict.Len()
	default:
		return 0
	}
}

// Clone returns a deep copy of v. In a tree that contains itself, the
// reference that closes the loop is copied as Empty.
func (v Value) Clone() Value {
	return v.clone(ancestry{})
}

func (v Value) clone(seen ancestry) Value {
	switch v.kind {
	case KindByteString:
		return NewByteString(v.s)
	case KindList, KindDictionary:
		id, ok := seen.enter(v)
		if !ok {
			return Value{}
		}
		defer seen.leave(id)
		if v.kind == KindList {
			list := make([]Value, len(v.list))
			for i, e := range v.list {
				list[i] = e.clone(seen)
			}
			return Value{kind: KindList, list: list}
		}
		out := NewDictionary()
		for k, e := range v.dict.entries {
			out.dict.put(k, e.clone(seen))
		}
		return out
	default:
		return v
	}
}

// CheckAcyclic returns ErrCyclicValue if v contains itself.
func CheckAcyclic(v Value) error {
	return v.checkAcyclic(ancestry{})
}

func (v Value) checkAcyclic(seen ancestry) error {
	if v.kind != KindList && v.kind != KindDictionary {
		return nil
	}
	id, ok := seen.enter(v)
	if !ok {
		return ErrCyclicValue
	}
	defer seen.leave(id)
	if v.kind == KindList {
		for _, e := range v.list {
			if err := e.checkAcyclic(seen); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range v.dict.entries {
		if err := e.checkAcyclic(seen); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether a and b are structurally identical. A tree that
// contains itself is equal only to itself.
func Equal(a, b Value) bool {
	return equal(a, b, ancestry{})
}

func equal(a, b Value, seen ancestry) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindEmpty:
		return true
	case KindInteger:
		return a.i == b.i
	case KindByteString:
		return bytes.Equal(a.s, b.s)
	}

	if a.kind != KindList && a.kind != KindDictionary {
		return false
	}
	if a.Len() != b.Len() {
		return false
	}
	if ida := containerID(a); ida != nil && ida == containerID(b) {
		return true
	}
	id, ok := seen.enter(a)
	if !ok {
		return false
	}
	defer seen.leave(id)

	if a.kind == KindList {
		for i := range a.list {
			if !equal(a.list[i], b.list[i], seen) {
				return false
			}
		}
		return true
	}
	for k, ea := range a.dict.entries {
		eb, ok := b.dict.entries[k]
		if !ok || !equal(*ea, *eb, seen) {
			return false
		}
	}
	return true
}

// ancestry holds the containers on the path from the root to the node being
// visited. Only trees built through raw references can revisit one.
type ancestry map[any]struct{}

func (a ancestry) enter(v Value) (any, bool) {
	id := containerID(v)
	if id == nil {
		return nil, true
	}
	if _, ok := a[id]; ok {
		return id, false
	}
	a[id] = struct{}{}
	return id, true
}

func (a ancestry) leave(id any) {
	if id != nil {
		delete(a, id)
	}
}

// containerID identifies the storage behind a list or dictionary. Empty
// containers have none since they cannot hold anything.
func containerID(v Value) any {
	switch v.kind {
	case KindList:
		if len(v.list) > 0 {
			return &v.list[0]
		}
	case KindDictionary:
		if v.dict.Len() > 0 {
			return v.dict
		}
	}
	return nil
}

// String renders v in its canonical encoding, or "<empty>" when v cannot be
// serialized because it holds an Empty value or contains itself.
func (v Value) String() string {
	b, err := Marshal(v)
	if err != nil {
		return "<empty>"
	}
	return string(b)
}

// Dict is the dictionary payload of a Value. Keys are unique and always
// visited in ascending byte order.
type Dict struct {
	entries map[string]*Value
}

func newDict() *Dict {
	return &Dict{entries: make(map[string]*Value)}
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Keys returns the keys in ascending lexicographic byte order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	keys := maps.Keys(d.entries)
	slices.Sort(keys)
	return keys
}

// Get returns the entry under key without inserting one.
func (d *Dict) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	e, ok := d.entries[key]
	if !ok {
		return Value{}, false
	}
	return *e, true
}

// Upsert returns a reference to the entry under key, inserting Empty if the
// key is absent.
func (d *Dict) Upsert(key string) *Value {
	if e, ok := d.entries[key]; ok {
		return e
	}
	e := &Value{}
	d.entries[key] = e
	return e
}

// Set stores a deep copy of v under key.
func (d *Dict) Set(key string, v Value) {
	d.put(key, v.Clone())
}

// put stores v without copying it. The caller must own v.
func (d *Dict) put(key string, v Value) {
	d.entries[key] = &v
}

// Delete removes key.
func (d *Dict) Delete(key string) {
	delete(d.entries, key)
}

// Range calls fn for every entry in key order until fn returns false.
func (d *Dict) Range(fn func(key string, v *Value) bool) {
	for _, k := range d.Keys() {
		if !fn(k, d.entries[k]) {
			return
		}
	}
}
