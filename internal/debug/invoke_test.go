package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// invokeFixture builds a session whose suspended frame exposes an object
// with overloaded methods, one throwing method, and a static method.
func invokeFixture(t *testing.T) (*Session, *fakeObject) {
	t.Helper()
	target := newFakeTarget()

	excType := target.addClass(newFakeType("java.lang.IllegalStateException"))
	thrown := newFakeObject(900, excType)

	svcType := target.addClass(newFakeType("com.example.Service", 10))
	svcType.withMethod(&fakeMethod{
		name: "compute", sig: "(I)I", retType: "int", argTypes: []string{"int"},
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return &fakePrim{typ: "int", lit: "10"}, nil
		},
	})
	svcType.withMethod(&fakeMethod{
		name: "compute", sig: "(II)I", retType: "int", argTypes: []string{"int", "int"},
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return &fakePrim{typ: "int", lit: "20"}, nil
		},
	})
	svcType.withMethod(&fakeMethod{
		name: "fail", sig: "()V", retType: "void",
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return nil, &jdi.InvocationError{Exception: thrown}
		},
	})
	svcType.withMethod(&fakeMethod{
		name: "describe", sig: "(Ljava/lang/String;)Ljava/lang/String;",
		retType: "java.lang.String", argTypes: []string{"java.lang.String"},
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return &fakeString{text: "described: " + args[0].(jdi.StringValue).Text()}, nil
		},
	})
	svcType.withMethod(&fakeMethod{
		name: "create", sig: "()Lcom/example/Service;", retType: "com.example.Service", static: true,
		impl: func(args []jdi.Value) (jdi.Value, error) {
			return &fakeString{text: "created"}, nil
		},
	})

	svc := newFakeObject(100, svcType)

	method := &fakeMethod{owner: svcType, name: "run", sig: "()V"}
	frame := newFakeFrame(&fakeLocation{typ: svcType, method: method, line: 10})
	frame.withLocal("svc", "com.example.Service", false, svc)

	target.addThread(&fakeThread{id: 1, name: "main", suspended: true, frames: []*fakeFrame{frame}})

	s, _, err := connect(target)
	require.NoError(t, err)
	t.Cleanup(s.Disconnect)
	return s, svc
}

func TestInvokeInstance_BySignature(t *testing.T) {
	s, _ := invokeFixture(t)

	res, err := s.InvokeInstance(1, 100, "compute", "(II)I", "[1, 2]")
	require.NoError(t, err)
	assert.Nil(t, res.Thrown)
	assert.Equal(t, "20", res.Value.(jdi.PrimitiveValue).Literal())
	assert.Equal(t, "int", res.ReturnType)
}

func TestInvokeInstance_AmbiguousOverload(t *testing.T) {
	s, _ := invokeFixture(t)

	_, err := s.InvokeInstance(1, 100, "compute", "", "[1]")
	require.Error(t, err)
	assert.Equal(t, errors.CodeOverloadAmbiguous, errors.FromError(err).Code)
}

func TestInvokeInstance_StringArgument(t *testing.T) {
	s, _ := invokeFixture(t)

	res, err := s.InvokeInstance(1, 100, "describe", "", `["widget"]`)
	require.NoError(t, err)
	assert.Equal(t, "described: widget", res.Value.(jdi.StringValue).Text())
}

func TestInvokeInstance_BadArguments(t *testing.T) {
	s, _ := invokeFixture(t)

	// A bare word where an int is expected does not coerce.
	_, err := s.InvokeInstance(1, 100, "compute", "(I)I", `["word"]`)
	require.Error(t, err)
	assert.Equal(t, errors.CodeTypeMismatch, errors.FromError(err).Code)

	// A malformed object handle is rejected.
	_, err = s.InvokeInstance(1, 100, "compute", "(I)I", `["@abc"]`)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParameter, errors.FromError(err).Code)
}

func TestInvokeInstance_ThrownException(t *testing.T) {
	s, _ := invokeFixture(t)

	res, err := s.InvokeInstance(1, 100, "fail", "", "")
	require.NoError(t, err)
	require.NotNil(t, res.Thrown)
	assert.Equal(t, "java.lang.IllegalStateException", res.Thrown.TypeName())
	assert.Equal(t, int64(900), res.Thrown.UniqueID())
}

func TestInvokeInstance_ArgumentCountMismatch(t *testing.T) {
	s, _ := invokeFixture(t)

	_, err := s.InvokeInstance(1, 100, "compute", "(I)I", "[1, 2, 3]")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParameter, errors.FromError(err).Code)
}

func TestInvokeInstance_RequiresSuspendedThread(t *testing.T) {
	s, _ := invokeFixture(t)
	target, err := s.Target()
	require.NoError(t, err)
	target.AllThreads()[0].Resume()

	_, err = s.InvokeInstance(1, 100, "compute", "(I)I", "[1]")
	require.Error(t, err)
	assert.Equal(t, errors.CodeThreadNotSuspended, errors.FromError(err).Code)
}

func TestInvokeStatic(t *testing.T) {
	s, _ := invokeFixture(t)

	res, err := s.InvokeStatic(1, "com.example.Service", "create", "", "")
	require.NoError(t, err)
	assert.Equal(t, "created", res.Value.(jdi.StringValue).Text())
}

func TestInvokeStatic_RejectsInstanceMethod(t *testing.T) {
	s, _ := invokeFixture(t)

	_, err := s.InvokeStatic(1, "com.example.Service", "fail", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParameter, errors.FromError(err).Code)
}

func TestInvokeStatic_ClassNotFound(t *testing.T) {
	s, _ := invokeFixture(t)

	_, err := s.InvokeStatic(1, "com.example.Missing", "create", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeClassNotFound, errors.FromError(err).Code)
}

func TestInvoke_MethodNotFound(t *testing.T) {
	s, _ := invokeFixture(t)

	_, err := s.InvokeInstance(1, 100, "nosuch", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeMethodNotFound, errors.FromError(err).Code)
}
