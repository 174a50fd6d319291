package nucleus

import "sync/atomic"

// Tag identifies the variant held by a Value.
type Tag uint8

const (
	TagNil Tag = iota
	TagInt
	TagNumber
	TagBool
	TagCString
	TagString
	TagArray
	TagTable
	TagUserdata
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagInt:
		return "int"
	case TagNumber:
		return "number"
	case TagBool:
		return "bool"
	case TagCString:
		return "cstring"
	case TagString:
		return "string"
	case TagArray:
		return "array"
	case TagTable:
		return "table"
	case TagUserdata:
		return "userdata"
	default:
		return "unknown"
	}
}

// Pair is a (key, value) entry of a TABLE Value. Keys are not deduplicated;
// that is the constructor's responsibility, per spec section 3.
type Pair struct {
	Key Value
	Val Value
}

// shared is the reference-counted payload backing STR, ARRAY and TABLE
// values. It is never copied; Values sharing a variant share a pointer to
// the same shared instance.
type shared struct {
	count    int32
	str      []byte
	arr      []Value
	pairs    []Pair
	userdata any
}

// Value is a tagged sum type for marshaled data exchanged between guest
// programs and host peripherals. NIL/INT/NUMBER/BOOL/CSTR are held inline;
// STR/ARRAY/TABLE/USERDATA share a reference-counted buffer.
//
// CSTR is always a borrow: cstr aliases a caller-owned, NUL-terminated byte
// slice whose lifetime must outlast any retain of the Value. Because Go byte
// slices are garbage collected there is no explicit free to forget -- the
// discipline that matters is never writing into a CSTR's backing array and
// never holding it past the caller's frame, both of which are enforced by
// convention and documented here, not by the type system.
type Value struct {
	tag  Tag
	i    int64
	n    float64
	cstr []byte
	ref  *shared
}

// Nil returns the NIL value.
func Nil() Value { return Value{tag: TagNil} }

// Int constructs an INT value.
func Int(i int64) Value { return Value{tag: TagInt, i: i} }

// Number constructs a NUMBER value.
func Number(n float64) Value { return Value{tag: TagNumber, n: n} }

// Bool constructs a BOOL value.
func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}

	return Value{tag: TagBool, i: i}
}

// CString constructs a CSTR value that borrows b. b must outlive every
// retain of the returned Value; the core never copies or frees it.
func CString(b []byte) Value {
	return Value{tag: TagCString, cstr: b}
}

// String constructs an owned STR value by copying b into a fresh,
// reference-counted buffer (refcount 1). The bytes may contain interior
// NULs; length is explicit, not NUL-terminated.
func String(b []byte) Value {
	buf := make([]byte, len(b))
	copy(buf, b)

	return Value{tag: TagString, ref: &shared{count: 1, str: buf}}
}

// Array constructs a reference-counted ARRAY of the given length, every cell
// initialized to NIL (refcount 1).
func Array(length int) Value {
	arr := make([]Value, length)
	for i := range arr {
		arr[i] = Nil()
	}

	return Value{tag: TagArray, ref: &shared{count: 1, arr: arr}}
}

// Table constructs a reference-counted TABLE with pairCount (NIL, NIL)
// pairs, ready for the caller to fill in with SetPair (refcount 1).
func Table(pairCount int) Value {
	pairs := make([]Pair, pairCount)
	for i := range pairs {
		pairs[i] = Pair{Key: Nil(), Val: Nil()}
	}

	return Value{tag: TagTable, ref: &shared{count: 1, pairs: pairs}}
}

// Userdata wraps an opaque host handle. Values containing a Userdata can
// never be measured for packet size and are rejected by the signal queue.
func Userdata(v any) Value {
	return Value{tag: TagUserdata, ref: &shared{count: 1, userdata: v}}
}

// Tag returns the variant held by the value.
func (v Value) Tag() Tag { return v.tag }

// Retain increments the value's reference count, if it has one, and returns
// the same value for chaining (v2 := Retain(v1)).
func Retain(v Value) Value {
	if v.ref != nil {
		atomic.AddInt32(&v.ref.count, 1)
	}

	return v
}

// Drop decrements the value's reference count. On the last release it
// recursively drops every element of an ARRAY or every key and value of a
// TABLE, matching the "deep-drops on last release" invariant of spec
// section 3.
func Drop(v Value) {
	if v.ref == nil {
		return
	}

	if atomic.AddInt32(&v.ref.count, -1) > 0 {
		return
	}

	switch v.tag {
	case TagArray:
		for _, e := range v.ref.arr {
			Drop(e)
		}
	case TagTable:
		for _, p := range v.ref.pairs {
			Drop(p.Key)
			Drop(p.Val)
		}
	}

	v.ref.arr = nil
	v.ref.pairs = nil
	v.ref.str = nil
	v.ref.userdata = nil
}

// Len returns the length of a STR, CSTR, ARRAY or TABLE value, or 0 for
// anything else.
func (v Value) Len() int {
	switch v.tag {
	case TagString:
		return len(v.ref.str)
	case TagArray:
		return len(v.ref.arr)
	case TagTable:
		return len(v.ref.pairs)
	case TagCString:
		return len(v.cstr)
	default:
		return 0
	}
}

// Get reads the i'th element of an ARRAY. Out-of-range indices or a
// non-ARRAY value yield NIL; it never aborts.
func Get(arr Value, i int) Value {
	if arr.tag != TagArray || i < 0 || i >= len(arr.ref.arr) {
		return Nil()
	}

	return arr.ref.arr[i]
}

// Set stores val into the i'th element of an ARRAY, retaining val and
// dropping the cell's previous occupant. Out-of-range indices or a
// non-ARRAY value make it a no-op.
func Set(arr Value, i int, val Value) {
	if arr.tag != TagArray || i < 0 || i >= len(arr.ref.arr) {
		return
	}

	old := arr.ref.arr[i]
	arr.ref.arr[i] = Retain(val)
	Drop(old)
}

// GetPair reads the i'th (key, value) pair of a TABLE. Out-of-range indices
// or a non-TABLE value yield (NIL, NIL).
func GetPair(tbl Value, i int) (Value, Value) {
	if tbl.tag != TagTable || i < 0 || i >= len(tbl.ref.pairs) {
		return Nil(), Nil()
	}

	p := tbl.ref.pairs[i]

	return p.Key, p.Val
}

// SetPair stores (key, val) into the i'th pair of a TABLE, retaining both
// and dropping whatever occupied the slot. Out-of-range indices or a
// non-TABLE value make it a no-op.
func SetPair(tbl Value, i int, key, val Value) {
	if tbl.tag != TagTable || i < 0 || i >= len(tbl.ref.pairs) {
		return
	}

	old := tbl.ref.pairs[i]
	tbl.ref.pairs[i] = Pair{Key: Retain(key), Val: Retain(val)}
	Drop(old.Key)
	Drop(old.Val)
}

// ToBoolean treats only NIL and BOOL-false as false; every other variant,
// including 0 and the empty string, is true.
func (v Value) ToBoolean() bool {
	switch v.tag {
	case TagNil:
		return false
	case TagBool:
		return v.i != 0
	default:
		return true
	}
}

// ToInt converts the value to an integer. NUMBER truncates towards zero;
// BOOL is 0 or 1; anything else is 0.
func (v Value) ToInt() int64 {
	switch v.tag {
	case TagInt, TagBool:
		return v.i
	case TagNumber:
		return int64(v.n)
	default:
		return 0
	}
}

// ToNumber converts the value to a float64. INT/BOOL widen exactly; anything
// else is 0.
func (v Value) ToNumber() float64 {
	switch v.tag {
	case TagNumber:
		return v.n
	case TagInt, TagBool:
		return float64(v.i)
	default:
		return 0
	}
}

// ToCString returns the value's bytes if it is a CSTR or STR, else nil.
func (v Value) ToCString() []byte {
	switch v.tag {
	case TagCString:
		return v.cstr
	case TagString:
		return v.ref.str
	default:
		return nil
	}
}

// ToString returns the value's bytes if it is a STR or CSTR, else nil. It is
// an alias of ToCString kept for readability at call sites that only ever
// handle owned strings.
func (v Value) ToString() []byte { return v.ToCString() }

// IsMeasurable reports whether the value (and everything it contains) is
// free of USERDATA, making it eligible for PacketSize.
func (v Value) IsMeasurable() bool {
	switch v.tag {
	case TagUserdata:
		return false
	case TagArray:
		for _, e := range v.ref.arr {
			if !e.IsMeasurable() {
				return false
			}
		}
	case TagTable:
		for _, p := range v.ref.pairs {
			if !p.Key.IsMeasurable() || !p.Val.IsMeasurable() {
				return false
			}
		}
	}

	return true
}

// PacketSize estimates the wire size of a value per spec section 4.2: 2
// bytes of overhead plus a per-tag payload. It returns ok=false if the value
// (or anything nested inside it) is a USERDATA and therefore unmeasurable.
func PacketSize(v Value) (size int, ok bool) {
	const overhead = 2

	switch v.tag {
	case TagNil, TagBool:
		return overhead + 4, true
	case TagInt, TagNumber:
		return overhead + 8, true
	case TagString, TagCString:
		n := v.Len()
		if n == 0 {
			n = 1
		}

		return overhead + n, true
	case TagArray:
		total := overhead + 2
		for _, e := range v.ref.arr {
			sz, ok := PacketSize(e)
			if !ok {
				return 0, false
			}

			total += sz
		}

		return total, true
	case TagTable:
		total := overhead + 2
		for _, p := range v.ref.pairs {
			ks, ok := PacketSize(p.Key)
			if !ok {
				return 0, false
			}

			vs, ok := PacketSize(p.Val)
			if !ok {
				return 0, false
			}

			total += ks + vs
		}

		return total, true
	default: // USERDATA
		return 0, false
	}
}

// PacketSizeAll sums the packet size of every value in the sequence, e.g. a
// signal's values or a CallFrame's returns. It returns ok=false if any value
// is unmeasurable.
func PacketSizeAll(vals []Value) (size int, ok bool) {
	for _, v := range vals {
		sz, ok := PacketSize(v)
		if !ok {
			return 0, false
		}

		size += sz
	}

	return size, true
}
