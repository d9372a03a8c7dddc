package jdi

// ThreadRef mirrors a thread in the target.
type ThreadRef interface {
	UniqueID() int64
	Name() string
	// StatusName is a human-readable scheduling state (RUNNING, SLEEPING,
	// MONITOR, WAIT, ZOMBIE, ...).
	StatusName() string
	IsSuspended() bool
	Suspend()
	Resume()
	// FrameCount and Frames fail with ErrIncompatibleThreadState when the
	// thread is running.
	FrameCount() (int, error)
	Frames() ([]FrameRef, error)
	Frame(index int) (FrameRef, error)
}

// FrameRef mirrors a single stack frame of a suspended thread. Frames are
// invalidated by any resume of their thread.
type FrameRef interface {
	Location() Location
	// ThisObject is nil in a static or native frame.
	ThisObject() ObjectValue
	// VisibleVariables fails with ErrAbsentInformation without debug info.
	VisibleVariables() ([]LocalVar, error)
	// Arguments is the subset of visible variables that are parameters.
	Arguments() ([]LocalVar, error)
	VariableByName(name string) (LocalVar, error)
	GetValue(v LocalVar) (Value, error)
	SetValue(v LocalVar, val Value) error
}

// LocalVar describes a local slot (argument or variable) in a frame.
type LocalVar interface {
	Name() string
	TypeName() string
	IsArgument() bool
}

// Location is a code position in a loaded class.
type Location interface {
	DeclaringType() TypeRef
	Method() MethodRef
	// LineNumber is <= 0 in native or synthetic code.
	LineNumber() int
	// SourceName fails with ErrAbsentInformation.
	SourceName() (string, error)
	// Same reports location identity as defined by the target (same method
	// and code index).
	Same(other Location) bool
}

// TypeRef mirrors a loaded reference type.
type TypeRef interface {
	Name() string
	// Superclass is nil for java.lang.Object, interfaces and arrays.
	Superclass() TypeRef
	// FieldByName is nil when the type declares no such field.
	FieldByName(name string) FieldRef
	Fields() []FieldRef
	MethodsByName(name string) []MethodRef
	Methods() []MethodRef
	// LocationsAtLine fails with ErrAbsentInformation; an empty slice means
	// the line holds no executable code.
	LocationsAtLine(line int) ([]Location, error)
	GetStaticField(f FieldRef) (Value, error)
	// InvokeStatic runs a static method on the given suspended thread.
	InvokeStatic(t ThreadRef, m MethodRef, args []Value) (Value, error)
}

// FieldRef mirrors a field declaration.
type FieldRef interface {
	Name() string
	TypeName() string
	DeclaringTypeName() string
	IsStatic() bool
}

// MethodRef mirrors a method declaration.
type MethodRef interface {
	Name() string
	// Signature is the JVM descriptor, e.g. "(ILjava/lang/String;)V".
	Signature() string
	ReturnTypeName() string
	ArgumentTypeNames() []string
	IsConstructor() bool
	IsStaticInitializer() bool
	IsStatic() bool
	IsNative() bool
}

// Value is a snapshot of a target-side value. Concrete kinds are
// PrimitiveValue, StringValue, ObjectValue and ArrayValue; a nil Value is
// the null reference.
type Value interface {
	TypeName() string
}

// PrimitiveValue is a scalar (boolean, byte, char, short, int, long,
// float, double).
type PrimitiveValue interface {
	Value
	// Literal renders the scalar the way the source language would
	// ("42", "3.14", "true", "'x'").
	Literal() string
}

// StringValue is an interned mirror of a target string.
type StringValue interface {
	Value
	Text() string
}

// ObjectValue is a reference to a target heap object.
type ObjectValue interface {
	Value
	UniqueID() int64
	ReferenceType() TypeRef
	GetField(f FieldRef) (Value, error)
	// InvokeMethod runs an instance method on the given suspended thread.
	// A throw inside the target surfaces as *InvocationError.
	InvokeMethod(t ThreadRef, m MethodRef, args []Value) (Value, error)
}

// ArrayValue is a reference to a target array.
type ArrayValue interface {
	ObjectValue
	Length() int
	// Slice returns elements [start, start+count); count is clamped to the
	// array length by the caller, not the adapter.
	Slice(start, count int) ([]Value, error)
}
