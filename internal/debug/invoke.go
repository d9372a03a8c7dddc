package debug

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// SetLocal assigns a new value to a local variable. The value text is
// parsed against the variable's declared type: primitives from bare
// literals, strings from (optionally quoted) text, object references
// from "@id".
func (s *Session) SetLocal(threadID int64, frameIndex int, name, valueText string) (old, newVal jdi.Value, err error) {
	_, frame, err := s.FrameAt(threadID, frameIndex)
	if err != nil {
		return nil, nil, err
	}
	v, err := frame.VariableByName(name)
	if err != nil {
		if err == jdi.ErrAbsentInformation {
			return nil, nil, errors.NoDebugInfo()
		}
		return nil, nil, errors.Internal(err)
	}
	if v == nil {
		return nil, nil, errors.Wrap(errors.CodeNotFound,
			"variable '"+name+"' not found in frame",
			"Use variables_local to list the variables visible here.", nil)
	}

	old, err = frame.GetValue(v)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}

	newVal, derr := s.parseValueText(v.TypeName(), valueText)
	if derr != nil {
		return nil, nil, derr
	}
	if err := frame.SetValue(v, newVal); err != nil {
		return nil, nil, errors.TypeMismatch(valueText, v.TypeName()).WithCause(err)
	}
	return old, newVal, nil
}

// parseValueText converts user text into a target value of the given
// declared type.
func (s *Session) parseValueText(typeName, text string) (jdi.Value, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "null" {
		if isPrimitiveTypeName(typeName) {
			return nil, errors.TypeMismatch("null", typeName)
		}
		return nil, nil
	}

	if isPrimitiveTypeName(typeName) {
		return mirrorPrimitive(target, typeName, text)
	}

	if typeName == "java.lang.String" {
		return mirrorStringText(target, text)
	}

	// Object reference by id: "@123" (a bare number is accepted too).
	idText := strings.TrimPrefix(text, "@")
	objectID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return nil, errors.TypeMismatch(text, typeName)
	}
	return s.ObjectByID(objectID)
}

func isPrimitiveTypeName(name string) bool {
	switch name {
	case "boolean", "byte", "char", "short", "int", "long", "float", "double":
		return true
	}
	return false
}

func mirrorPrimitive(target jdi.Target, typeName, text string) (jdi.Value, error) {
	fail := func() (jdi.Value, error) { return nil, errors.TypeMismatch(text, typeName) }

	switch typeName {
	case "boolean":
		b, err := strconv.ParseBool(text)
		if err != nil {
			return fail()
		}
		return target.MirrorBool(b), nil
	case "byte":
		n, err := strconv.ParseInt(text, 10, 8)
		if err != nil {
			return fail()
		}
		return target.MirrorByte(int8(n)), nil
	case "char":
		inner := text
		if strings.HasPrefix(inner, "'") && strings.HasSuffix(inner, "'") && len(inner) >= 3 {
			inner = inner[1 : len(inner)-1]
		}
		runes := []rune(unescapeChar(inner))
		if len(runes) != 1 {
			return fail()
		}
		return target.MirrorChar(runes[0]), nil
	case "short":
		n, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return fail()
		}
		return target.MirrorShort(int16(n)), nil
	case "int":
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return fail()
		}
		return target.MirrorInt(int32(n)), nil
	case "long":
		n, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimSuffix(text, "L"), "l"), 10, 64)
		if err != nil {
			return fail()
		}
		return target.MirrorLong(n), nil
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSuffix(text, "f"), "F"), 32)
		if err != nil {
			return fail()
		}
		return target.MirrorFloat(float32(f)), nil
	case "double":
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSuffix(text, "d"), "D"), 64)
		if err != nil {
			return fail()
		}
		return target.MirrorDouble(f), nil
	}
	return fail()
}

func unescapeChar(s string) string {
	switch s {
	case `\n`:
		return "\n"
	case `\t`:
		return "\t"
	case `\r`:
		return "\r"
	case `\\`:
		return `\`
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	case `\0`:
		return "\x00"
	}
	return s
}

func mirrorStringText(target jdi.Target, text string) (jdi.Value, error) {
	if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2 {
		text = text[1 : len(text)-1]
	}
	v, err := target.MirrorString(text)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return v, nil
}

// InvokeResult reports the outcome of a method invocation.
type InvokeResult struct {
	Method     jdi.MethodRef
	ClassName  string
	ReturnType string
	Value      jdi.Value
	// Thrown is set instead of Value when the invocation threw inside the
	// target.
	Thrown jdi.ObjectValue
}

// InvokeInstance invokes a method on an object, marshalling a JSON array
// of arguments against the method's parameter types. The thread must be
// suspended by an event.
func (s *Session) InvokeInstance(threadID, objectID int64, methodName, signature, argsJSON string) (*InvokeResult, error) {
	thread, err := s.SuspendedThread(threadID)
	if err != nil {
		return nil, err
	}
	obj, err := s.ObjectByID(objectID)
	if err != nil {
		return nil, err
	}
	ref := obj.ReferenceType()

	method, err := s.selectMethod(ref, methodName, signature)
	if err != nil {
		return nil, err
	}
	args, err := s.marshalArgs(method, argsJSON)
	if err != nil {
		return nil, err
	}

	res := &InvokeResult{Method: method, ClassName: ref.Name(), ReturnType: method.ReturnTypeName()}
	val, err := obj.InvokeMethod(thread, method, args)
	if err != nil {
		if inv, ok := err.(*jdi.InvocationError); ok {
			res.Thrown = inv.Exception
			return res, nil
		}
		return nil, errors.Internal(err)
	}
	res.Value = val
	return res, nil
}

// InvokeStatic invokes a static method on a class.
func (s *Session) InvokeStatic(threadID int64, className, methodName, signature, argsJSON string) (*InvokeResult, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	thread, err := s.SuspendedThread(threadID)
	if err != nil {
		return nil, err
	}

	classes := target.ClassesByName(className)
	if len(classes) == 0 {
		return nil, errors.ClassNotFound(className)
	}
	ref := classes[0]

	method, err := s.selectMethod(ref, methodName, signature)
	if err != nil {
		return nil, err
	}
	if !method.IsStatic() {
		return nil, errors.InvalidParameter("methodName", methodName, "a static method; use invoke_method for instance methods")
	}
	args, err := s.marshalArgs(method, argsJSON)
	if err != nil {
		return nil, err
	}

	res := &InvokeResult{Method: method, ClassName: ref.Name(), ReturnType: method.ReturnTypeName()}
	val, err := ref.InvokeStatic(thread, method, args)
	if err != nil {
		if inv, ok := err.(*jdi.InvocationError); ok {
			res.Thrown = inv.Exception
			return res, nil
		}
		return nil, errors.Internal(err)
	}
	res.Value = val
	return res, nil
}

// selectMethod picks an overload by JVM signature; with one candidate the
// signature is optional.
func (s *Session) selectMethod(ref jdi.TypeRef, methodName, signature string) (jdi.MethodRef, error) {
	methods := ref.MethodsByName(methodName)
	if len(methods) == 0 {
		return nil, errors.MethodNotFound(ref.Name(), methodName)
	}
	if len(methods) == 1 {
		return methods[0], nil
	}
	if signature != "" {
		for _, m := range methods {
			if m.Signature() == signature {
				return m, nil
			}
		}
	}
	sigs := make([]string, len(methods))
	for i, m := range methods {
		sigs[i] = m.Name() + m.Signature()
	}
	return nil, errors.OverloadAmbiguous(methodName, sigs)
}

// marshalArgs decodes a JSON argument array against the method's
// parameter types. Unknown combinations fail with TypeMismatch rather
// than coercing silently.
func (s *Session) marshalArgs(method jdi.MethodRef, argsJSON string) ([]jdi.Value, error) {
	paramTypes := method.ArgumentTypeNames()

	var raw []json.RawMessage
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
			return nil, errors.InvalidParameter("args", argsJSON, `a JSON array, e.g. '[1, "text", true]'`).WithCause(err)
		}
	}
	if len(raw) != len(paramTypes) {
		return nil, errors.InvalidParameter("args", argsJSON,
			"exactly "+strconv.Itoa(len(paramTypes))+" arguments for "+method.Name()+method.Signature())
	}

	args := make([]jdi.Value, len(raw))
	for i, elem := range raw {
		val, err := s.jsonToValue(paramTypes[i], elem)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	return args, nil
}

// jsonToValue converts one JSON argument to a target value of the given
// parameter type.
func (s *Session) jsonToValue(typeName string, elem json.RawMessage) (jdi.Value, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	var asAny interface{}
	if err := json.Unmarshal(elem, &asAny); err != nil {
		return nil, errors.InvalidParameter("args", string(elem), "a valid JSON value").WithCause(err)
	}

	switch v := asAny.(type) {
	case nil:
		if isPrimitiveTypeName(typeName) {
			return nil, errors.TypeMismatch("null", typeName)
		}
		return nil, nil

	case bool:
		if typeName != "boolean" && typeName != "java.lang.Boolean" {
			return nil, errors.TypeMismatch(string(elem), typeName)
		}
		return target.MirrorBool(v), nil

	case float64:
		switch typeName {
		case "byte":
			return target.MirrorByte(int8(v)), nil
		case "char":
			return target.MirrorChar(rune(int32(v))), nil
		case "short":
			return target.MirrorShort(int16(v)), nil
		case "int":
			return target.MirrorInt(int32(v)), nil
		case "long":
			return target.MirrorLong(int64(v)), nil
		case "float":
			return target.MirrorFloat(float32(v)), nil
		case "double":
			return target.MirrorDouble(v), nil
		}
		return nil, errors.TypeMismatch(string(elem), typeName)

	case string:
		if typeName == "java.lang.String" || typeName == "java.lang.CharSequence" || typeName == "java.lang.Object" {
			if strings.HasPrefix(v, "@") {
				return s.objectRefFromText(v)
			}
			return mirrorStringText(target, v)
		}
		if typeName == "char" {
			runes := []rune(v)
			if len(runes) != 1 {
				return nil, errors.TypeMismatch(v, typeName)
			}
			return target.MirrorChar(runes[0]), nil
		}
		if strings.HasPrefix(v, "@") {
			return s.objectRefFromText(v)
		}
		return nil, errors.TypeMismatch(v, typeName)
	}

	return nil, errors.TypeMismatch(string(elem), typeName)
}

func (s *Session) objectRefFromText(text string) (jdi.Value, error) {
	objectID, err := strconv.ParseInt(strings.TrimPrefix(text, "@"), 10, 64)
	if err != nil {
		return nil, errors.InvalidParameter("args", text, "an object reference of the form '@123'")
	}
	return s.ObjectByID(objectID)
}
