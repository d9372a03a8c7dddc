package jdwp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureToName(t *testing.T) {
	cases := []struct{ sig, want string }{
		{"I", "int"},
		{"Z", "boolean"},
		{"J", "long"},
		{"D", "double"},
		{"V", "void"},
		{"Ljava/lang/String;", "java.lang.String"},
		{"Lcom/example/Main;", "com.example.Main"},
		{"[I", "int[]"},
		{"[[I", "int[][]"},
		{"[Ljava/lang/Object;", "java.lang.Object[]"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, signatureToName(tc.sig), tc.sig)
	}
}

func TestNameToSignature(t *testing.T) {
	cases := []struct{ name, want string }{
		{"int", "I"},
		{"boolean", "Z"},
		{"void", "V"},
		{"java.lang.String", "Ljava/lang/String;"},
		{"int[]", "[I"},
		{"java.lang.Object[][]", "[[Ljava/lang/Object;"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, nameToSignature(tc.name), tc.name)
	}
}

func TestMethodSignatureArgs(t *testing.T) {
	assert.Empty(t, methodSignatureArgs("()V"))
	assert.Equal(t, []string{"I"}, methodSignatureArgs("(I)V"))
	assert.Equal(t,
		[]string{"I", "Ljava/lang/String;", "[J", "Z"},
		methodSignatureArgs("(ILjava/lang/String;[JZ)V"))
	assert.Equal(t,
		[]string{"[Ljava/lang/Object;"},
		methodSignatureArgs("([Ljava/lang/Object;)I"))
}

func TestMethodSignatureReturn(t *testing.T) {
	assert.Equal(t, "V", methodSignatureReturn("()V"))
	assert.Equal(t, "I", methodSignatureReturn("(JJ)I"))
	assert.Equal(t, "Ljava/lang/String;", methodSignatureReturn("()Ljava/lang/String;"))
}

func TestReaderWriterRoundTrip(t *testing.T) {
	sizes := &idSizes{fieldID: 8, methodID: 8, objectID: 8, refTypeID: 8, frameID: 8}

	w := newWriter(sizes)
	w.byteVal(7)
	w.boolVal(true)
	w.int32(-42)
	w.int64Val(1 << 40)
	w.objectID(0xDEADBEEF)
	w.stringVal("hello")
	w.location(wireLocation{typeTag: typeTagClass, classID: 11, methodID: 22, codeIndex: 33})

	r := &reader{data: w.data, sizes: sizes}
	assert.Equal(t, byte(7), r.byteVal())
	assert.True(t, r.boolVal())
	assert.Equal(t, int32(-42), r.int32())
	assert.Equal(t, int64(1<<40), r.int64Val())
	assert.Equal(t, uint64(0xDEADBEEF), r.objectID())
	assert.Equal(t, "hello", r.stringVal())
	loc := r.location()
	assert.Equal(t, byte(typeTagClass), loc.typeTag)
	assert.Equal(t, uint64(11), loc.classID)
	assert.Equal(t, uint64(22), loc.methodID)
	assert.Equal(t, uint64(33), loc.codeIndex)
	assert.Equal(t, 0, r.remaining())
}

func TestReaderWriter_NarrowIDSizes(t *testing.T) {
	sizes := &idSizes{fieldID: 4, methodID: 4, objectID: 4, refTypeID: 4, frameID: 4}

	w := newWriter(sizes)
	w.objectID(0x01020304)
	assert.Len(t, w.data, 4)

	r := &reader{data: w.data, sizes: sizes}
	assert.Equal(t, uint64(0x01020304), r.objectID())
}

func TestWireError(t *testing.T) {
	assert.Error(t, wireError(errAbsentInformation))
	assert.Error(t, wireError(errVMDead))
	assert.Error(t, wireError(9999))
}
