package jdwp

import (
	"encoding/binary"
	"math"
	"strings"
)

// reader walks a reply or event payload. JDWP is big-endian throughout;
// identifier widths come from the VM's IDSizes reply.
type reader struct {
	data  []byte
	pos   int
	sizes *idSizes
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) byteVal() byte {
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) boolVal() bool { return r.byteVal() != 0 }

func (r *reader) int16Val() int16 {
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return int16(v)
}

func (r *reader) int32() int32 {
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return int32(v)
}

func (r *reader) int64Val() int64 {
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return int64(v)
}

func (r *reader) float32Val() float32 { return math.Float32frombits(uint32(r.int32())) }
func (r *reader) float64Val() float64 { return math.Float64frombits(uint64(r.int64Val())) }

func (r *reader) id(width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<8 | uint64(r.data[r.pos])
		r.pos++
	}
	return v
}

func (r *reader) objectID() uint64 { return r.id(r.sizes.objectID) }
func (r *reader) refTypeID() uint64 { return r.id(r.sizes.refTypeID) }
func (r *reader) methodID() uint64 { return r.id(r.sizes.methodID) }
func (r *reader) fieldID() uint64 { return r.id(r.sizes.fieldID) }
func (r *reader) frameID() uint64 { return r.id(r.sizes.frameID) }

func (r *reader) stringVal() string {
	n := int(r.int32())
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s
}

// location reads the 1+ref+method+8 byte location layout.
type wireLocation struct {
	typeTag   byte
	classID   uint64
	methodID  uint64
	codeIndex uint64
}

func (r *reader) location() wireLocation {
	return wireLocation{
		typeTag:   r.byteVal(),
		classID:   r.refTypeID(),
		methodID:  r.methodID(),
		codeIndex: uint64(r.int64Val()),
	}
}

// writer builds a command payload.
type writer struct {
	data  []byte
	sizes *idSizes
}

func newWriter(sizes *idSizes) *writer { return &writer{sizes: sizes} }

func (w *writer) byteVal(b byte) *writer {
	w.data = append(w.data, b)
	return w
}

func (w *writer) boolVal(b bool) *writer {
	if b {
		return w.byteVal(1)
	}
	return w.byteVal(0)
}

func (w *writer) int32(v int32) *writer {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	w.data = append(w.data, buf[:]...)
	return w
}

func (w *writer) int64Val(v int64) *writer {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.data = append(w.data, buf[:]...)
	return w
}

func (w *writer) id(width int, v uint64) *writer {
	for i := width - 1; i >= 0; i-- {
		w.data = append(w.data, byte(v>>(8*i)))
	}
	return w
}

func (w *writer) objectID(v uint64) *writer { return w.id(w.sizes.objectID, v) }
func (w *writer) refTypeID(v uint64) *writer { return w.id(w.sizes.refTypeID, v) }
func (w *writer) methodID(v uint64) *writer { return w.id(w.sizes.methodID, v) }
func (w *writer) fieldID(v uint64) *writer { return w.id(w.sizes.fieldID, v) }
func (w *writer) frameID(v uint64) *writer { return w.id(w.sizes.frameID, v) }

func (w *writer) stringVal(s string) *writer {
	w.int32(int32(len(s)))
	w.data = append(w.data, s...)
	return w
}

func (w *writer) location(loc wireLocation) *writer {
	w.byteVal(loc.typeTag)
	w.refTypeID(loc.classID)
	w.methodID(loc.methodID)
	w.int64Val(int64(loc.codeIndex))
	return w
}

// --- signature helpers ---

// signatureToName turns a JNI signature into a source-level type name:
// "Ljava/lang/String;" -> "java.lang.String", "[I" -> "int[]".
func signatureToName(sig string) string {
	if sig == "" {
		return ""
	}
	switch sig[0] {
	case tagBoolean:
		return "boolean"
	case tagByte:
		return "byte"
	case tagChar:
		return "char"
	case tagShort:
		return "short"
	case tagInt:
		return "int"
	case tagLong:
		return "long"
	case tagFloat:
		return "float"
	case tagDouble:
		return "double"
	case tagVoid:
		return "void"
	case tagObject:
		return strings.ReplaceAll(strings.TrimSuffix(sig[1:], ";"), "/", ".")
	case tagArray:
		return signatureToName(sig[1:]) + "[]"
	}
	return sig
}

// nameToSignature is the inverse for reference types and primitives.
func nameToSignature(name string) string {
	switch name {
	case "boolean":
		return "Z"
	case "byte":
		return "B"
	case "char":
		return "C"
	case "short":
		return "S"
	case "int":
		return "I"
	case "long":
		return "J"
	case "float":
		return "F"
	case "double":
		return "D"
	case "void":
		return "V"
	}
	if strings.HasSuffix(name, "[]") {
		return "[" + nameToSignature(strings.TrimSuffix(name, "[]"))
	}
	return "L" + strings.ReplaceAll(name, ".", "/") + ";"
}

// methodSignatureArgs splits "(ILjava/lang/String;)V" into its argument
// signatures.
func methodSignatureArgs(sig string) []string {
	var out []string
	i := strings.IndexByte(sig, '(')
	if i < 0 {
		return nil
	}
	i++
	for i < len(sig) && sig[i] != ')' {
		start := i
		for sig[i] == tagArray {
			i++
		}
		if sig[i] == tagObject {
			for sig[i] != ';' {
				i++
			}
		}
		i++
		out = append(out, sig[start:i])
	}
	return out
}

// methodSignatureReturn extracts the return signature.
func methodSignatureReturn(sig string) string {
	i := strings.IndexByte(sig, ')')
	if i < 0 || i+1 >= len(sig) {
		return "V"
	}
	return sig[i+1:]
}
