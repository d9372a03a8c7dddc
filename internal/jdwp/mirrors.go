package jdwp

import (
	"fmt"
	"sync"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Access flag bits (JVM spec).
const (
	accStatic = 0x0008
	accNative = 0x0100
)

// JDWP thread statuses.
var threadStatusNames = map[int32]string{
	0: "ZOMBIE",
	1: "RUNNING",
	2: "SLEEPING",
	3: "MONITOR",
	4: "WAIT",
}

// typeRef mirrors one loaded reference type. Field and method tables are
// fetched once and cached.
type typeRef struct {
	t   *target
	id  uint64
	tag byte
	sig string

	once    sync.Once
	fields  []*fieldRef
	methods []*methodRef
}

func (c *typeRef) Name() string { return signatureToName(c.sig) }

func (c *typeRef) Superclass() jdi.TypeRef {
	if c.tag != typeTagClass {
		return nil
	}
	r, err := c.t.send(cmdSetClassType, classTypeSuperclass, c.t.w().refTypeID(c.id).data)
	if err != nil {
		return nil
	}
	superID := r.refTypeID()
	if superID == 0 {
		return nil
	}
	super := c.t.typeRefByID(superID, typeTagClass)
	if super == nil {
		return nil
	}
	return super
}

func (c *typeRef) load() {
	c.once.Do(func() {
		if r, err := c.t.send(cmdSetReferenceType, refTypeFields, c.t.w().refTypeID(c.id).data); err == nil {
			n := int(r.int32())
			for i := 0; i < n; i++ {
				f := &fieldRef{
					owner: c,
					id:    r.fieldID(),
					name:  r.stringVal(),
					sig:   r.stringVal(),
					mod:   r.int32(),
				}
				c.fields = append(c.fields, f)
			}
		}
		if r, err := c.t.send(cmdSetReferenceType, refTypeMethods, c.t.w().refTypeID(c.id).data); err == nil {
			n := int(r.int32())
			for i := 0; i < n; i++ {
				m := &methodRef{
					owner: c,
					id:    r.methodID(),
					name:  r.stringVal(),
					sig:   r.stringVal(),
					mod:   r.int32(),
				}
				c.methods = append(c.methods, m)
			}
		}
	})
}

func (c *typeRef) FieldByName(name string) jdi.FieldRef {
	c.load()
	for _, f := range c.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (c *typeRef) Fields() []jdi.FieldRef {
	c.load()
	out := make([]jdi.FieldRef, len(c.fields))
	for i, f := range c.fields {
		out[i] = f
	}
	return out
}

func (c *typeRef) MethodsByName(name string) []jdi.MethodRef {
	c.load()
	var out []jdi.MethodRef
	for _, m := range c.methods {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

func (c *typeRef) Methods() []jdi.MethodRef {
	c.load()
	out := make([]jdi.MethodRef, len(c.methods))
	for i, m := range c.methods {
		out[i] = m
	}
	return out
}

func (c *typeRef) methodByID(id uint64) *methodRef {
	c.load()
	for _, m := range c.methods {
		if m.id == id {
			return m
		}
	}
	return nil
}

// LocationsAtLine scans every method's line table for entries at the
// requested line.
func (c *typeRef) LocationsAtLine(line int) ([]jdi.Location, error) {
	c.load()
	var out []jdi.Location
	sawLineInfo := false
	for _, m := range c.methods {
		if m.IsNative() {
			continue
		}
		table, err := m.lineTable()
		if err != nil {
			continue
		}
		sawLineInfo = sawLineInfo || len(table) > 0
		for _, entry := range table {
			if entry.line == int32(line) {
				out = append(out, &location{
					t:         c.t,
					declaring: c,
					method:    m,
					codeIndex: entry.codeIndex,
					line:      int(entry.line),
				})
			}
		}
	}
	if !sawLineInfo && len(out) == 0 {
		return nil, jdi.ErrAbsentInformation
	}
	return out, nil
}

func (c *typeRef) GetStaticField(f jdi.FieldRef) (jdi.Value, error) {
	field, ok := f.(*fieldRef)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign field ref")
	}
	r, err := c.t.send(cmdSetReferenceType, refTypeGetValues,
		c.t.w().refTypeID(c.id).int32(1).fieldID(field.id).data)
	if err != nil {
		return nil, err
	}
	if r.int32() != 1 {
		return nil, fmt.Errorf("jdwp: no value returned for field %s", field.name)
	}
	return c.t.taggedValue(r), nil
}

func (c *typeRef) InvokeStatic(thread jdi.ThreadRef, m jdi.MethodRef, args []jdi.Value) (jdi.Value, error) {
	th, ok := thread.(*threadRef)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign thread ref")
	}
	method, ok := m.(*methodRef)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign method ref")
	}

	w := c.t.w().refTypeID(c.id).objectID(th.id).methodID(method.id)
	if err := writeArgs(w, args); err != nil {
		return nil, err
	}
	w.int32(invokeSingleThreaded)

	r, err := c.t.send(cmdSetClassType, classTypeInvokeMethod, w.data)
	if err != nil {
		return nil, err
	}
	return c.t.invokeReply(r)
}

// fieldRef mirrors one field declaration.
type fieldRef struct {
	owner *typeRef
	id    uint64
	name  string
	sig   string
	mod   int32
}

func (f *fieldRef) Name() string { return f.name }
func (f *fieldRef) TypeName() string { return signatureToName(f.sig) }
func (f *fieldRef) DeclaringTypeName() string { return f.owner.Name() }
func (f *fieldRef) IsStatic() bool { return f.mod&accStatic != 0 }

// lineEntry is one row of a method line table.
type lineEntry struct {
	codeIndex uint64
	line      int32
}

// slotEntry is one row of a method variable table.
type slotEntry struct {
	codeIndex uint64
	name      string
	sig       string
	length    uint32
	slot      int32
}

// methodRef mirrors one method declaration. Line and variable tables are
// cached after first use.
type methodRef struct {
	owner *typeRef
	id    uint64
	name  string
	sig   string
	mod   int32

	lineOnce sync.Once
	lines    []lineEntry
	lineErr  error

	varOnce  sync.Once
	slots    []slotEntry
	argCount int32
	varErr   error
}

func (m *methodRef) Name() string { return m.name }
func (m *methodRef) Signature() string { return m.sig }

func (m *methodRef) ReturnTypeName() string {
	return signatureToName(methodSignatureReturn(m.sig))
}

func (m *methodRef) ArgumentTypeNames() []string {
	sigs := methodSignatureArgs(m.sig)
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = signatureToName(s)
	}
	return out
}

func (m *methodRef) IsConstructor() bool { return m.name == "<init>" }
func (m *methodRef) IsStaticInitializer() bool { return m.name == "<clinit>" }
func (m *methodRef) IsStatic() bool { return m.mod&accStatic != 0 }
func (m *methodRef) IsNative() bool { return m.mod&accNative != 0 }

func (m *methodRef) lineTable() ([]lineEntry, error) {
	m.lineOnce.Do(func() {
		r, err := m.owner.t.send(cmdSetMethod, methodLineTable,
			m.owner.t.w().refTypeID(m.owner.id).methodID(m.id).data)
		if err != nil {
			m.lineErr = err
			return
		}
		r.int64Val() // start
		r.int64Val() // end
		n := int(r.int32())
		for i := 0; i < n; i++ {
			m.lines = append(m.lines, lineEntry{
				codeIndex: uint64(r.int64Val()),
				line:      r.int32(),
			})
		}
	})
	return m.lines, m.lineErr
}

// lineAt maps a code index to its source line (-1 when unknown).
func (m *methodRef) lineAt(codeIndex uint64) int {
	table, err := m.lineTable()
	if err != nil || len(table) == 0 {
		return -1
	}
	line := -1
	for _, e := range table {
		if e.codeIndex <= codeIndex {
			line = int(e.line)
		} else {
			break
		}
	}
	return line
}

func (m *methodRef) variableTable() ([]slotEntry, int32, error) {
	m.varOnce.Do(func() {
		r, err := m.owner.t.send(cmdSetMethod, methodVariableTable,
			m.owner.t.w().refTypeID(m.owner.id).methodID(m.id).data)
		if err != nil {
			m.varErr = err
			return
		}
		m.argCount = r.int32()
		n := int(r.int32())
		for i := 0; i < n; i++ {
			m.slots = append(m.slots, slotEntry{
				codeIndex: uint64(r.int64Val()),
				name:      r.stringVal(),
				sig:       r.stringVal(),
				length:    uint32(r.int32()),
				slot:      r.int32(),
			})
		}
	})
	return m.slots, m.argCount, m.varErr
}

// location is a code position.
type location struct {
	t         *target
	declaring *typeRef
	method    *methodRef
	codeIndex uint64
	line      int
}

func (l *location) DeclaringType() jdi.TypeRef { return l.declaring }
func (l *location) Method() jdi.MethodRef { return l.method }
func (l *location) LineNumber() int { return l.line }

func (l *location) SourceName() (string, error) {
	r, err := l.t.send(cmdSetReferenceType, refTypeSourceFile, l.t.w().refTypeID(l.declaring.id).data)
	if err != nil {
		return "", err
	}
	return r.stringVal(), nil
}

func (l *location) Same(other jdi.Location) bool {
	o, ok := other.(*location)
	if !ok {
		return false
	}
	return l.declaring.id == o.declaring.id && l.method.id == o.method.id && l.codeIndex == o.codeIndex
}

func (l *location) wire() wireLocation {
	return wireLocation{
		typeTag:   l.declaring.tag,
		classID:   l.declaring.id,
		methodID:  l.method.id,
		codeIndex: l.codeIndex,
	}
}

// threadRef mirrors a target thread.
type threadRef struct {
	t  *target
	id uint64
}

func (th *threadRef) UniqueID() int64 { return int64(th.id) }

func (th *threadRef) Name() string {
	r, err := th.t.send(cmdSetThreadReference, threadRefName, th.t.w().objectID(th.id).data)
	if err != nil {
		return "(unknown)"
	}
	return r.stringVal()
}

func (th *threadRef) status() (int32, int32) {
	r, err := th.t.send(cmdSetThreadReference, threadRefStatus, th.t.w().objectID(th.id).data)
	if err != nil {
		return 0, 0
	}
	return r.int32(), r.int32()
}

func (th *threadRef) StatusName() string {
	threadStatus, _ := th.status()
	if name, ok := threadStatusNames[threadStatus]; ok {
		return name
	}
	return "UNKNOWN"
}

func (th *threadRef) IsSuspended() bool {
	_, suspendStatus := th.status()
	return suspendStatus&1 != 0
}

func (th *threadRef) Suspend() {
	_, _ = th.t.send(cmdSetThreadReference, threadRefSuspend, th.t.w().objectID(th.id).data)
}

func (th *threadRef) Resume() {
	_, _ = th.t.send(cmdSetThreadReference, threadRefResume, th.t.w().objectID(th.id).data)
}

func (th *threadRef) FrameCount() (int, error) {
	r, err := th.t.send(cmdSetThreadReference, threadRefFrameCount, th.t.w().objectID(th.id).data)
	if err != nil {
		return 0, err
	}
	return int(r.int32()), nil
}

func (th *threadRef) Frames() ([]jdi.FrameRef, error) {
	return th.frames(0, -1)
}

func (th *threadRef) Frame(index int) (jdi.FrameRef, error) {
	frames, err := th.frames(index, 1)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, jdi.ErrIncompatibleThreadState
	}
	return frames[0], nil
}

func (th *threadRef) frames(start, length int) ([]jdi.FrameRef, error) {
	r, err := th.t.send(cmdSetThreadReference, threadRefFrames,
		th.t.w().objectID(th.id).int32(int32(start)).int32(int32(length)).data)
	if err != nil {
		return nil, err
	}
	n := int(r.int32())
	out := make([]jdi.FrameRef, 0, n)
	for i := 0; i < n; i++ {
		frameID := r.frameID()
		loc := th.t.locationFromWire(r.location())
		out = append(out, &frameRef{t: th.t, thread: th, id: frameID, loc: loc})
	}
	return out, nil
}

// frameRef mirrors one stack frame. Valid only while its thread stays
// suspended.
type frameRef struct {
	t      *target
	thread *threadRef
	id     uint64
	loc    *location
}

func (f *frameRef) Location() jdi.Location { return f.loc }

func (f *frameRef) ThisObject() jdi.ObjectValue {
	r, err := f.t.send(cmdSetStackFrame, stackFrameThisObject,
		f.t.w().objectID(f.thread.id).frameID(f.id).data)
	if err != nil {
		return nil
	}
	val := f.t.taggedValue(r)
	obj, _ := val.(jdi.ObjectValue)
	return obj
}

// visibleSlots filters the method variable table down to slots in scope
// at this frame's code index.
func (f *frameRef) visibleSlots() ([]slotEntry, int32, error) {
	slots, argCount, err := f.loc.method.variableTable()
	if err != nil {
		return nil, 0, err
	}
	var out []slotEntry
	for _, s := range slots {
		if f.loc.codeIndex >= s.codeIndex && f.loc.codeIndex < s.codeIndex+uint64(s.length) {
			out = append(out, s)
		}
	}
	return out, argCount, nil
}

func (f *frameRef) VisibleVariables() ([]jdi.LocalVar, error) {
	slots, argCount, err := f.visibleSlots()
	if err != nil {
		return nil, err
	}
	out := make([]jdi.LocalVar, 0, len(slots))
	for _, s := range slots {
		out = append(out, &localVar{entry: s, isArg: s.slot < argCount && s.name != "this"})
	}
	return out, nil
}

func (f *frameRef) Arguments() ([]jdi.LocalVar, error) {
	vars, err := f.VisibleVariables()
	if err != nil {
		return nil, err
	}
	var out []jdi.LocalVar
	for _, v := range vars {
		if v.IsArgument() {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *frameRef) VariableByName(name string) (jdi.LocalVar, error) {
	vars, err := f.VisibleVariables()
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, nil
}

func (f *frameRef) GetValue(v jdi.LocalVar) (jdi.Value, error) {
	lv, ok := v.(*localVar)
	if !ok {
		return nil, fmt.Errorf("jdwp: foreign local var")
	}
	w := f.t.w().objectID(f.thread.id).frameID(f.id).int32(1)
	w.int32(lv.entry.slot)
	w.byteVal(lv.entry.sig[0])
	r, err := f.t.send(cmdSetStackFrame, stackFrameGetValues, w.data)
	if err != nil {
		return nil, err
	}
	if r.int32() != 1 {
		return nil, fmt.Errorf("jdwp: no value returned for %s", lv.Name())
	}
	return f.t.taggedValue(r), nil
}

func (f *frameRef) SetValue(v jdi.LocalVar, val jdi.Value) error {
	lv, ok := v.(*localVar)
	if !ok {
		return fmt.Errorf("jdwp: foreign local var")
	}
	w := f.t.w().objectID(f.thread.id).frameID(f.id).int32(1)
	w.int32(lv.entry.slot)
	if val == nil {
		w.byteVal(tagObject)
		w.objectID(0)
	} else {
		wv, ok := val.(wireValue)
		if !ok {
			return fmt.Errorf("jdwp: foreign value %T", val)
		}
		writeTagged(w, wv)
	}
	_, err := f.t.send(cmdSetStackFrame, stackFrameSetValues, w.data)
	return err
}

// localVar is one visible slot.
type localVar struct {
	entry slotEntry
	isArg bool
}

func (l *localVar) Name() string { return l.entry.name }
func (l *localVar) TypeName() string { return signatureToName(l.entry.sig) }
func (l *localVar) IsArgument() bool { return l.isArg }
