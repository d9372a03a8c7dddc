package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

type litValue struct{ typ, lit string }

func (v *litValue) TypeName() string { return v.typ }
func (v *litValue) Literal() string { return v.lit }

type strValue struct{ text string }

func (v *strValue) TypeName() string { return "java.lang.String" }
func (v *strValue) Text() string { return v.text }

type objValue struct {
	typ string
	id  int64
}

func (v *objValue) TypeName() string { return v.typ }
func (v *objValue) UniqueID() int64 { return v.id }
func (v *objValue) ReferenceType() jdi.TypeRef { return nil }
func (v *objValue) GetField(f jdi.FieldRef) (jdi.Value, error) {
	return nil, nil
}
func (v *objValue) InvokeMethod(t jdi.ThreadRef, m jdi.MethodRef, args []jdi.Value) (jdi.Value, error) {
	return nil, nil
}

type arrValue struct {
	objValue
	length int
}

func (v *arrValue) Length() int { return v.length }
func (v *arrValue) Slice(start, count int) ([]jdi.Value, error) {
	return nil, nil
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, "42", formatValue(&litValue{typ: "int", lit: "42"}))
	assert.Equal(t, "true", formatValue(&litValue{typ: "boolean", lit: "true"}))
	assert.Equal(t, `"hi"`, formatValue(&strValue{text: "hi"}))
	assert.Equal(t, "com.example.Cart @17", formatValue(&objValue{typ: "com.example.Cart", id: 17}))
	assert.Equal(t, "int[5] @9", formatValue(&arrValue{objValue: objValue{typ: "int[]", id: 9}, length: 5}))
}

func TestShortenClassName(t *testing.T) {
	assert.Equal(t, "Main", shortenClassName("Main"))
	assert.Equal(t, "example.Main", shortenClassName("example.Main"))
	assert.Equal(t, "c.e.Main", shortenClassName("com.example.Main"))
	assert.Equal(t, "j.u.c.CompletableFuture", shortenClassName("java.util.concurrent.CompletableFuture"))
}
