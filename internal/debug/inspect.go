package debug

import (
	"strconv"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// SuspendedThread resolves a thread id and verifies it is suspended.
// Every inspection and mutation operation starts here.
func (s *Session) SuspendedThread(threadID int64) (jdi.ThreadRef, error) {
	thread, err := s.FindThread(threadID)
	if err != nil {
		return nil, err
	}
	if !thread.IsSuspended() {
		return nil, errors.ThreadNotSuspended(thread.Name())
	}
	return thread, nil
}

// FrameAt returns frame frameIndex of a suspended thread.
func (s *Session) FrameAt(threadID int64, frameIndex int) (jdi.ThreadRef, jdi.FrameRef, error) {
	thread, err := s.SuspendedThread(threadID)
	if err != nil {
		return nil, nil, err
	}
	count, err := thread.FrameCount()
	if err != nil {
		return nil, nil, errors.ThreadNotSuspended(thread.Name())
	}
	if frameIndex < 0 || frameIndex >= count {
		return nil, nil, errors.FrameOutOfRange(frameIndex, count-1)
	}
	frame, err := thread.Frame(frameIndex)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}
	return thread, frame, nil
}

// VisibleLocals lists the visible local variables of a frame.
func (s *Session) VisibleLocals(threadID int64, frameIndex int) (jdi.FrameRef, []jdi.LocalVar, error) {
	_, frame, err := s.FrameAt(threadID, frameIndex)
	if err != nil {
		return nil, nil, err
	}
	vars, err := frame.VisibleVariables()
	if err != nil {
		if err == jdi.ErrAbsentInformation {
			return nil, nil, errors.NoDebugInfo()
		}
		return nil, nil, errors.Internal(err)
	}
	return frame, vars, nil
}

// Arguments lists the argument variables of a frame.
func (s *Session) Arguments(threadID int64, frameIndex int) (jdi.FrameRef, []jdi.LocalVar, error) {
	_, frame, err := s.FrameAt(threadID, frameIndex)
	if err != nil {
		return nil, nil, err
	}
	args, err := frame.Arguments()
	if err != nil {
		if err == jdi.ErrAbsentInformation {
			return nil, nil, errors.NoDebugInfo()
		}
		return nil, nil, errors.Internal(err)
	}
	return frame, args, nil
}

// LocalValue reads one named variable from a frame.
func (s *Session) LocalValue(threadID int64, frameIndex int, name string) (jdi.Value, jdi.LocalVar, error) {
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
	val, err := frame.GetValue(v)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}
	return val, v, nil
}

// ObjectByID scans every suspended thread's frames for an object or array
// with the given unique id, checking each frame's `this` and visible
// locals. Linear by design: the adapter offers no global object index.
func (s *Session) ObjectByID(objectID int64) (jdi.ObjectValue, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	for _, thread := range target.AllThreads() {
		if !thread.IsSuspended() {
			continue
		}
		frames, err := thread.Frames()
		if err != nil {
			continue
		}
		for _, frame := range frames {
			if this := frame.ThisObject(); this != nil && this.UniqueID() == objectID {
				return this, nil
			}
			vars, err := frame.VisibleVariables()
			if err != nil {
				continue
			}
			for _, v := range vars {
				val, err := frame.GetValue(v)
				if err != nil {
					continue
				}
				if obj, ok := val.(jdi.ObjectValue); ok && obj != nil && obj.UniqueID() == objectID {
					return obj, nil
				}
			}
		}
	}
	return nil, errors.ObjectNotFound(objectID)
}

// ArraySlice reads count elements starting at startIndex from an array
// resolved by object id. startIndex == length is out of range; a count
// reaching past the end returns the truncated suffix.
func (s *Session) ArraySlice(objectID int64, startIndex, count int) (jdi.ArrayValue, []jdi.Value, error) {
	obj, err := s.ObjectByID(objectID)
	if err != nil {
		return nil, nil, err
	}
	arr, ok := obj.(jdi.ArrayValue)
	if !ok {
		return nil, nil, errors.InvalidParameter("objectId", objectID, "an array object; this object is "+obj.TypeName())
	}

	length := arr.Length()
	if startIndex < 0 || startIndex >= length {
		return nil, nil, errors.InvalidParameter("startIndex", startIndex,
			"an index in [0, "+strconv.Itoa(length-1)+"]")
	}
	if startIndex+count > length {
		count = length - startIndex
	}
	values, err := arr.Slice(startIndex, count)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}
	return arr, values, nil
}

// FieldValue pairs a field with its read value (or the read error).
type FieldValue struct {
	Field jdi.FieldRef
	Value jdi.Value
	Err   error
}

// ObjectFields lists the fields of an object resolved by object id.
func (s *Session) ObjectFields(objectID int64) (jdi.ObjectValue, []FieldValue, error) {
	obj, err := s.ObjectByID(objectID)
	if err != nil {
		return nil, nil, err
	}
	ref := obj.ReferenceType()

	var out []FieldValue
	for _, f := range ref.Fields() {
		fv := FieldValue{Field: f}
		if f.IsStatic() {
			fv.Value, fv.Err = ref.GetStaticField(f)
		} else {
			fv.Value, fv.Err = obj.GetField(f)
		}
		out = append(out, fv)
	}
	return obj, out, nil
}

// ThisObject reads the `this` reference of a frame (nil in static code).
func (s *Session) ThisObject(threadID int64, frameIndex int) (jdi.ObjectValue, error) {
	_, frame, err := s.FrameAt(threadID, frameIndex)
	if err != nil {
		return nil, err
	}
	return frame.ThisObject(), nil
}
