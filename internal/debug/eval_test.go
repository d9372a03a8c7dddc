package debug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// evalFixture builds a session suspended in a frame of
// com.example.Cart.process with:
//
//	this       com.example.Cart { counter = 41, name = "cart", items = null }
//	local x    int 7
//	local list com.example.ItemList with size() -> 3
func evalFixture(t *testing.T) (*Session, *fakeTarget) {
	t.Helper()
	target := newFakeTarget()

	listType := target.addClass(newFakeType("com.example.ItemList"))
	listType.withMethod(&fakeMethod{
		name: "size", sig: "()I", retType: "int",
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return &fakePrim{typ: "int", lit: "3"}, nil
		},
	})
	listObj := newFakeObject(200, listType)

	cartType := target.addClass(newFakeType("com.example.Cart", 10).
		withField("counter", "int").
		withField("name", "java.lang.String").
		withField("items", "com.example.ItemList"))
	cartType.withMethod(&fakeMethod{
		name: "total", sig: "(I)I", retType: "int", argTypes: []string{"int"},
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return &fakePrim{typ: "int", lit: "48"}, nil
		},
	})

	this := newFakeObject(100, cartType)
	this.fields["counter"] = &fakePrim{typ: "int", lit: "41"}
	this.fields["name"] = &fakeString{text: "cart"}
	this.fields["items"] = nil

	method := &fakeMethod{owner: cartType, name: "process", sig: "(I)V"}
	frame := newFakeFrame(&fakeLocation{typ: cartType, method: method, line: 10})
	frame.this = this
	frame.withLocal("x", "int", true, &fakePrim{typ: "int", lit: "7"})
	frame.withLocal("list", "com.example.ItemList", false, listObj)

	target.addThread(&fakeThread{id: 1, name: "main", suspended: true, frames: []*fakeFrame{frame}})

	s, _, err := connect(target)
	require.NoError(t, err)
	t.Cleanup(s.Disconnect)
	return s, target
}

func TestEvaluate_Literals(t *testing.T) {
	s, _ := evalFixture(t)

	cases := []struct {
		expr string
		want string
		typ  string
	}{
		{"42", "42", "int"},
		{"-17", "-17", "int"},
		{"3.5", "3.5", "double"},
		{"true", "true", "boolean"},
		{"false", "false", "boolean"},
		{"'x'", "'x'", "char"},
	}
	for _, tc := range cases {
		val, err := s.Evaluate(1, 0, tc.expr)
		require.NoError(t, err, tc.expr)
		prim, ok := val.(jdi.PrimitiveValue)
		require.True(t, ok, tc.expr)
		assert.Equal(t, tc.want, prim.Literal(), tc.expr)
		assert.Equal(t, tc.typ, prim.TypeName(), tc.expr)
	}
}

func TestEvaluate_NullAndStringLiterals(t *testing.T) {
	s, _ := evalFixture(t)

	val, err := s.Evaluate(1, 0, "null")
	require.NoError(t, err)
	assert.Nil(t, val)

	val, err = s.Evaluate(1, 0, `"hello"`)
	require.NoError(t, err)
	str, ok := val.(jdi.StringValue)
	require.True(t, ok)
	assert.Equal(t, "hello", str.Text())
}

func TestEvaluate_This(t *testing.T) {
	s, _ := evalFixture(t)

	val, err := s.Evaluate(1, 0, "this")
	require.NoError(t, err)
	obj, ok := val.(jdi.ObjectValue)
	require.True(t, ok)
	assert.Equal(t, int64(100), obj.UniqueID())
}

func TestEvaluate_LocalThenThisField(t *testing.T) {
	s, _ := evalFixture(t)

	// Visible local wins.
	val, err := s.Evaluate(1, 0, "x")
	require.NoError(t, err)
	assert.Equal(t, "7", val.(jdi.PrimitiveValue).Literal())

	// Falls back to a field on `this`.
	val, err = s.Evaluate(1, 0, "counter")
	require.NoError(t, err)
	assert.Equal(t, "41", val.(jdi.PrimitiveValue).Literal())
}

func TestEvaluate_FieldChain(t *testing.T) {
	s, _ := evalFixture(t)

	val, err := s.Evaluate(1, 0, "this.counter")
	require.NoError(t, err)
	assert.Equal(t, "41", val.(jdi.PrimitiveValue).Literal())

	val, err = s.Evaluate(1, 0, "this.name")
	require.NoError(t, err)
	assert.Equal(t, "cart", val.(jdi.StringValue).Text())
}

func TestEvaluate_MethodCall(t *testing.T) {
	s, _ := evalFixture(t)

	val, err := s.Evaluate(1, 0, "list.size()")
	require.NoError(t, err)
	assert.Equal(t, "3", val.(jdi.PrimitiveValue).Literal())

	// Call with an argument, on the implicit this.
	val, err = s.Evaluate(1, 0, "total(7)")
	require.NoError(t, err)
	assert.Equal(t, "48", val.(jdi.PrimitiveValue).Literal())
}

func TestEvaluate_NullDereference(t *testing.T) {
	s, _ := evalFixture(t)

	_, err := s.Evaluate(1, 0, "null.f")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNullDereference, errors.FromError(err).Code)

	// A null field mid-chain fails the same way.
	_, err = s.Evaluate(1, 0, "this.items.size()")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNullDereference, errors.FromError(err).Code)
}

func TestEvaluate_Unresolved(t *testing.T) {
	s, _ := evalFixture(t)

	_, err := s.Evaluate(1, 0, "nosuch")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidExpression, errors.FromError(err).Code)

	_, err = s.Evaluate(1, 0, "this.nosuch")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidExpression, errors.FromError(err).Code)
}

func TestEvaluate_PrimitiveChainRejected(t *testing.T) {
	s, _ := evalFixture(t)

	_, err := s.Evaluate(1, 0, "x.intValue()")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidExpression, errors.FromError(err).Code)
}

func TestEvaluate_LengthLimit(t *testing.T) {
	s, _ := evalFixture(t)

	_, err := s.Evaluate(1, 0, strings.Repeat("a", maxExpressionLen+1))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidExpression, errors.FromError(err).Code)
}

func TestEvaluate_RequiresSuspendedThread(t *testing.T) {
	s, target := evalFixture(t)
	target.threads[0].suspended = false

	_, err := s.Evaluate(1, 0, "x")
	require.Error(t, err)
	assert.Equal(t, errors.CodeThreadNotSuspended, errors.FromError(err).Code)
}

func TestEvaluate_TrailingInputRejected(t *testing.T) {
	s, _ := evalFixture(t)

	_, err := s.Evaluate(1, 0, "x y")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidExpression, errors.FromError(err).Code)
}

func TestEvaluateAllWatches_Memoises(t *testing.T) {
	s, _ := evalFixture(t)

	good, err := s.Watches.Add("this.counter")
	require.NoError(t, err)
	bad, err := s.Watches.Add("nosuch")
	require.NoError(t, err)

	results := s.EvaluateAllWatches(1, 0)
	require.Len(t, results, 2)

	goodAfter := s.Watches.Get(good.ID)
	assert.Equal(t, "41", goodAfter.LastValue)
	assert.Empty(t, goodAfter.LastError)

	badAfter := s.Watches.Get(bad.ID)
	assert.Empty(t, badAfter.LastValue)
	assert.NotEmpty(t, badAfter.LastError)
}
