package wire

import (
	"fmt"
	"io"
	"reflect"
)

// Tag identifies the active alternative of a Variant. Alternatives are
// numbered from 1 in declaration order, 0 means no value.
type Tag = uint8

// InvalidTag is the tag of a Variant holding no value.
const InvalidTag Tag = 0

// MaxAlternatives is the maximum number of alternatives of a VariantType.
const MaxAlternatives = 255

// Cloner is implemented by alternatives which need more than a value copy
// to be duplicated, e.g. types holding slices or maps.
type Cloner[T any] interface {
	Clone() T
}

// Alternative describes one type a Variant may hold.
type Alternative struct {
	typ         reflect.Type
	zero        func() any
	clone       func(any) any
	serialize   func(any, io.ByteWriter) Optional[int]
	deserialize func(any, io.ByteReader) Optional[int]
}

// Alt declares T as an alternative encoded with s.
func Alt[T any](s ValueSerializer[T]) Alternative {
	return Alternative{
		typ:  reflect.TypeOf((*T)(nil)).Elem(),
		zero: func() any { return new(T) },
		clone: func(v any) any {
			p := v.(*T)
			if c, ok := any(p).(Cloner[T]); ok {
				x := c.Clone()
				return &x
			}
			x := *p
			return &x
		},
		serialize: func(v any, w io.ByteWriter) Optional[int] {
			return s.Serialize(v.(*T), w)
		},
		deserialize: func(v any, r io.ByteReader) Optional[int] {
			return s.Deserialize(v.(*T), r)
		},
	}
}

// AltOf declares T as an alternative encoded with Of[T].
func AltOf[T any]() Alternative {
	return Alt(Of[T]())
}

// Type returns the Go type of the alternative.
func (a Alternative) Type() reflect.Type {
	return a.typ
}

// VariantType is a closed, ordered set of alternatives.
// It is also the ValueSerializer of the Variants it creates.
type VariantType struct {
	alts []Alternative
	tags map[reflect.Type]Tag
}

// NewVariantType creates a VariantType. It panics if alts is empty, has
// more than MaxAlternatives entries or repeats a type.
func NewVariantType(alts ...Alternative) *VariantType {
	if len(alts) == 0 {
		panic("wire: variant needs at least one alternative")
	}
	if len(alts) > MaxAlternatives {
		panic(fmt.Sprintf("wire: variant has %d alternatives, max %d", len(alts), MaxAlternatives))
	}
	vt := &VariantType{
		alts: alts,
		tags: make(map[reflect.Type]Tag, len(alts)),
	}
	for n, alt := range alts {
		if _, exists := vt.tags[alt.typ]; exists {
			panic(fmt.Sprintf("wire: variant alternative %s declared twice", alt.typ))
		}
		vt.tags[alt.typ] = Tag(n + 1)
	}
	return vt
}

// Len returns the number of alternatives.
func (vt *VariantType) Len() int {
	return len(vt.alts)
}

// Alternative returns the alternative with tag. It panics if the tag is
// out of range.
func (vt *VariantType) Alternative(tag Tag) Alternative {
	if !vt.valid(tag) {
		panic(fmt.Sprintf("wire: invalid variant tag %d", tag))
	}
	return vt.alts[tag-1]
}

// TagOf returns the tag of type T in vt. It panics if T is not an
// alternative.
func TagOf[T any](vt *VariantType) Tag {
	return vt.mustTag(reflect.TypeOf((*T)(nil)).Elem())
}

// New creates an invalid Variant of this type.
func (vt *VariantType) New() *Variant {
	return &Variant{typ: vt}
}

func (vt *VariantType) valid(tag Tag) bool {
	return tag != InvalidTag && int(tag) <= len(vt.alts)
}

func (vt *VariantType) mustTag(t reflect.Type) Tag {
	tag, ok := vt.tags[t]
	if !ok {
		panic(fmt.Sprintf("wire: %s is not an alternative of the variant", t))
	}
	return tag
}

// Serialize implements ValueSerializer. An invalid variant fails.
func (vt *VariantType) Serialize(v *Variant, w io.ByteWriter) Optional[int] {
	v.bind(vt)
	if v.IsInvalid() {
		return None[int]()
	}
	if w.WriteByte(v.tag) != nil {
		return None[int]()
	}
	return add(Some(1), vt.alts[v.tag-1].serialize(v.val, w))
}

// Deserialize implements ValueSerializer. The tag is read first, then the
// zero value of the matching alternative is decoded in place. On a payload
// failure the variant keeps the partially decoded alternative.
func (vt *VariantType) Deserialize(v *Variant, r io.ByteReader) Optional[int] {
	v.bind(vt)
	tag, err := r.ReadByte()
	if err != nil || !vt.valid(tag) {
		return None[int]()
	}
	alt := vt.alts[tag-1]
	v.tag, v.val = tag, alt.zero()
	return add(Some(1), alt.deserialize(v.val, r))
}

// noCopy is flagged by go vet's copylocks check when copied.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Variant holds at most one value among the alternatives of its
// VariantType. Variants are handled by pointer; use Clone or CopyFrom to
// duplicate one.
type Variant struct {
	noCopy noCopy

	typ *VariantType
	tag Tag
	val any // *T of the active alternative
}

// NewVariant creates a Variant of vt holding val.
func NewVariant[T any](vt *VariantType, val T) *Variant {
	v := vt.New()
	Emplace(v, val)
	return v
}

// Emplace replaces the content of v with val. T must be exactly one of
// the alternatives.
func Emplace[T any](v *Variant, val T) {
	v.mustBound()
	tag := v.typ.mustTag(reflect.TypeOf((*T)(nil)).Elem())
	p := new(T)
	*p = val
	v.tag, v.val = tag, p
}

// EmplaceTag replaces the content of v with the zero value of the
// alternative numbered tag. It panics if tag is out of range.
func (v *Variant) EmplaceTag(tag Tag) {
	v.mustBound()
	alt := v.typ.Alternative(tag)
	v.tag, v.val = tag, alt.zero()
}

// Get returns a pointer to the active value. It panics if v is invalid or
// the active alternative is not T.
func Get[T any](v *Variant) *T {
	if v.IsInvalid() {
		panic("wire: get on invalid variant")
	}
	p, ok := v.val.(*T)
	if !ok {
		panic(fmt.Sprintf("wire: variant holds %s, not %s",
			v.typ.alts[v.tag-1].typ, reflect.TypeOf((*T)(nil)).Elem()))
	}
	return p
}

// Is reports whether the active alternative is T.
func Is[T any](v *Variant) bool {
	_, ok := v.val.(*T)
	return ok && !v.IsInvalid()
}

// Type returns the VariantType of v, nil if never bound.
func (v *Variant) Type() *VariantType {
	return v.typ
}

// Tag returns the tag of the active alternative, InvalidTag if none.
func (v *Variant) Tag() Tag {
	return v.tag
}

// IsInvalid reports whether v holds no value.
func (v *Variant) IsInvalid() bool {
	return v.tag == InvalidTag
}

// Value returns the pointer to the active value as any, nil if invalid.
func (v *Variant) Value() any {
	if v.IsInvalid() {
		return nil
	}
	return v.val
}

// Reset drops the active value.
func (v *Variant) Reset() {
	v.tag, v.val = InvalidTag, nil
}

// Clone returns a deep copy of v.
func (v *Variant) Clone() *Variant {
	c := &Variant{typ: v.typ}
	c.CopyFrom(v)
	return c
}

// CopyFrom replaces the content of v with a deep copy of src's.
// Both must be of the same VariantType.
func (v *Variant) CopyFrom(src *Variant) {
	if v == src {
		return
	}
	if src.typ != nil {
		v.bind(src.typ)
	}
	if src.IsInvalid() {
		v.Reset()
		return
	}
	v.tag, v.val = src.tag, src.typ.alts[src.tag-1].clone(src.val)
}

// String is used by fmt.
func (v *Variant) String() string {
	if v.IsInvalid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%s%+v", v.typ.alts[v.tag-1].typ.Name(), reflect.ValueOf(v.val).Elem().Interface())
}

// Case is one branch of Visit.
type Case struct {
	typ reflect.Type
	fn  func(any)
}

// On creates a Visit case invoked when the active alternative is T.
func On[T any](fn func(*T)) Case {
	return Case{
		typ: reflect.TypeOf((*T)(nil)).Elem(),
		fn:  func(v any) { fn(v.(*T)) },
	}
}

// Visit invokes the case matching the active alternative. It panics if v
// is invalid or no case matches.
func (v *Variant) Visit(cases ...Case) {
	if v.IsInvalid() {
		panic("wire: visit on invalid variant")
	}
	active := v.typ.alts[v.tag-1].typ
	for _, c := range cases {
		if c.typ == active {
			c.fn(v.val)
			return
		}
	}
	panic(fmt.Sprintf("wire: no visit case for %s", active))
}

func (v *Variant) bind(vt *VariantType) {
	if v.typ == nil {
		v.typ = vt
	} else if v.typ != vt {
		panic("wire: variant used with a different VariantType")
	}
}

func (v *Variant) mustBound() {
	if v.typ == nil {
		panic("wire: variant has no VariantType")
	}
}
