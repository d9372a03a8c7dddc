package jdwp

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// wireValue is the common surface of every concrete value: a JDWP tag
// plus the payload bits used when the value is written back.
type wireValue interface {
	wireTag() byte
	wireBits() uint64
}

// primValue is a host-side snapshot of a primitive.
type primValue struct {
	tag  byte
	bits uint64
}

func (p *primValue) wireTag() byte { return p.tag }
func (p *primValue) wireBits() uint64 { return p.bits }

func (p *primValue) TypeName() string { return signatureToName(string(p.tag)) }

func (p *primValue) Literal() string {
	switch p.tag {
	case tagBoolean:
		if p.bits != 0 {
			return "true"
		}
		return "false"
	case tagChar:
		return "'" + string(rune(p.bits)) + "'"
	case tagByte:
		return strconv.FormatInt(int64(int8(p.bits)), 10)
	case tagShort:
		return strconv.FormatInt(int64(int16(p.bits)), 10)
	case tagInt:
		return strconv.FormatInt(int64(int32(p.bits)), 10)
	case tagLong:
		return strconv.FormatInt(int64(p.bits), 10)
	case tagFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(p.bits))), 'g', -1, 32)
	case tagDouble:
		return strconv.FormatFloat(math.Float64frombits(p.bits), 'g', -1, 64)
	}
	return fmt.Sprintf("0x%x", p.bits)
}

// objectValue is a reference to a target heap object.
type objectValue struct {
	t   *target
	id  uint64
	tag byte
}

func (o *objectValue) wireTag() byte { return o.tag }
func (o *objectValue) wireBits() uint64 { return o.id }

func (o *objectValue) UniqueID() int64 { return int64(o.id) }

func (o *objectValue) TypeName() string {
	ref := o.refType()
	if ref == nil {
		return "java.lang.Object"
	}
	return ref.Name()
}

func (o *objectValue) ReferenceType() jdi.TypeRef {
	ref := o.refType()
	if ref == nil {
		return nil
	}
	return ref
}

func (o *objectValue) refType() *typeRef {
	r, err := o.t.send(cmdSetObjectReference, objRefReferenceType,
		o.t.w().objectID(o.id).data)
	if err != nil {
		return nil
	}
	tag := r.byteVal()
	return o.t.typeRefByID(r.refTypeID(), tag)
}

func (o *objectValue) GetField(f jdi.FieldRef) (jdi.Value, error) {
	field, ok := f.(*fieldRef)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign field ref")
	}
	r, err := o.t.send(cmdSetObjectReference, objRefGetValues,
		o.t.w().objectID(o.id).int32(1).fieldID(field.id).data)
	if err != nil {
		return nil, err
	}
	if r.int32() != 1 {
		return nil, fmt.Errorf("jdwp: no value returned for field %s", field.name)
	}
	return o.t.taggedValue(r), nil
}

func (o *objectValue) InvokeMethod(thread jdi.ThreadRef, m jdi.MethodRef, args []jdi.Value) (jdi.Value, error) {
	th, ok := thread.(*threadRef)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign thread ref")
	}
	method, ok := m.(*methodRef)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign method ref")
	}

	w := o.t.w().objectID(o.id).objectID(th.id).refTypeID(method.owner.id).methodID(method.id)
	if err := writeArgs(w, args); err != nil {
		return nil, err
	}
	w.int32(invokeSingleThreaded)

	r, err := o.t.send(cmdSetObjectReference, objRefInvokeMethod, w.data)
	if err != nil {
		return nil, err
	}
	return o.t.invokeReply(r)
}

// stringValue is an interned mirror of a target string; the text is
// fetched once at construction.
type stringValue struct {
	objectValue
	text string
}

func (s *stringValue) TypeName() string { return "java.lang.String" }
func (s *stringValue) Text() string { return s.text }

// arrayValue is a reference to a target array.
type arrayValue struct {
	objectValue
}

func (a *arrayValue) Length() int {
	r, err := a.t.send(cmdSetArrayReference, arrayRefLength,
		a.t.w().objectID(a.id).data)
	if err != nil {
		return 0
	}
	return int(r.int32())
}

func (a *arrayValue) Slice(start, count int) ([]jdi.Value, error) {
	r, err := a.t.send(cmdSetArrayReference, arrayRefGetValues,
		a.t.w().objectID(a.id).int32(int32(start)).int32(int32(count)).data)
	if err != nil {
		return nil, err
	}
	// arrayregion: tag byte, then count values (untagged for primitives,
	// tagged for object element types).
	tag := r.byteVal()
	n := int(r.int32())
	out := make([]jdi.Value, 0, n)
	for i := 0; i < n; i++ {
		if isObjectTag(tag) {
			out = append(out, a.t.taggedValue(r))
		} else {
			out = append(out, a.t.untaggedValue(r, tag))
		}
	}
	return out, nil
}

func isObjectTag(tag byte) bool {
	switch tag {
	case tagObject, tagArray, tagString, tagThread:
		return true
	}
	return false
}

// taggedValue reads a tag byte plus payload.
func (t *target) taggedValue(r *reader) jdi.Value {
	tag := r.byteVal()
	return t.untaggedValue(r, tag)
}

// untaggedValue reads a payload whose tag is already known.
func (t *target) untaggedValue(r *reader, tag byte) jdi.Value {
	switch tag {
	case tagBoolean, tagByte:
		return &primValue{tag: tag, bits: uint64(r.byteVal())}
	case tagChar, tagShort:
		return &primValue{tag: tag, bits: uint64(uint16(r.int16Val()))}
	case tagInt, tagFloat:
		return &primValue{tag: tag, bits: uint64(uint32(r.int32()))}
	case tagLong, tagDouble:
		return &primValue{tag: tag, bits: uint64(r.int64Val())}
	case tagVoid:
		return nil
	default:
		id := r.objectID()
		if id == 0 {
			return nil
		}
		return t.objectFor(id, tag)
	}
}

// objectFor wraps an object id in the right mirror kind.
func (t *target) objectFor(id uint64, tag byte) jdi.Value {
	base := objectValue{t: t, id: id, tag: tag}
	switch tag {
	case tagString:
		text := ""
		if r, err := t.send(cmdSetStringReference, stringRefValue, t.w().objectID(id).data); err == nil {
			text = r.stringVal()
		}
		return &stringValue{objectValue: base, text: text}
	case tagArray:
		return &arrayValue{objectValue: base}
	default:
		return &base
	}
}

// writeArgs appends an invocation argument list.
func writeArgs(w *writer, args []jdi.Value) error {
	w.int32(int32(len(args)))
	for _, a := range args {
		if a == nil {
			w.byteVal(tagObject)
			w.objectID(0)
			continue
		}
		wv, ok := a.(wireValue)
		if !ok {
			return fmt.Errorf("jdwp: foreign value %T", a)
		}
		writeTagged(w, wv)
	}
	return nil
}

func writeTagged(w *writer, v wireValue) {
	tag := v.wireTag()
	w.byteVal(tag)
	writeUntagged(w, tag, v.wireBits())
}

func writeUntagged(w *writer, tag byte, bits uint64) {
	switch tag {
	case tagBoolean, tagByte:
		w.byteVal(byte(bits))
	case tagChar, tagShort:
		w.data = append(w.data, byte(bits>>8), byte(bits))
	case tagInt, tagFloat:
		w.int32(int32(uint32(bits)))
	case tagLong, tagDouble:
		w.int64Val(int64(bits))
	default:
		w.objectID(bits)
	}
}

// invokeReply decodes "value + thrown exception" replies shared by every
// invoke command.
func (t *target) invokeReply(r *reader) (jdi.Value, error) {
	val := t.taggedValue(r)
	excTag := r.byteVal()
	excID := r.objectID()
	if excID != 0 {
		exc, _ := t.objectFor(excID, excTag).(jdi.ObjectValue)
		return nil, &jdi.InvocationError{Exception: exc}
	}
	return val, nil
}
