package debug

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// In-memory adapter used by the tests in this package. It models just
// enough of a JVM: named classes with fields, methods and line tables,
// suspended threads with frames and locals, and a hand-fed event queue.

type fakeAdapter struct {
	target     *fakeTarget
	connectErr error
}

func (a *fakeAdapter) ConnectSocket(host string, port int) (jdi.Target, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return a.target, nil
}

func (a *fakeAdapter) ConnectPid(pid int) (jdi.Target, error) {
	return a.ConnectSocket("127.0.0.1", 0)
}

type fakeTarget struct {
	mu       sync.Mutex
	classes  map[string]*fakeType
	threads  []*fakeThread
	requests []*fakeRequest
	resumes  int
	suspends int
	disposed bool

	noMonitorEvents bool

	eventCh chan jdi.EventSet
	closeCh chan struct{}
	closed  sync.Once
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		classes: make(map[string]*fakeType),
		eventCh: make(chan jdi.EventSet, 16),
		closeCh: make(chan struct{}),
	}
}

// connect wires a fresh session to a fake target and attaches.
func connect(t *fakeTarget) (*Session, *fakeAdapter, error) {
	adapter := &fakeAdapter{target: t}
	s := newTestSession(adapter)
	err := s.AttachSocket("localhost", 5005, false, 0)
	return s, adapter, err
}

func (t *fakeTarget) addClass(c *fakeType) *fakeType {
	t.mu.Lock()
	defer t.mu.Unlock()
	c.t = t
	t.classes[c.name] = c
	return c
}

func (t *fakeTarget) addThread(th *fakeThread) *fakeThread {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threads = append(t.threads, th)
	return th
}

// deliver pushes an event set into the pump.
func (t *fakeTarget) deliver(set *fakeEventSet) {
	t.eventCh <- set
}

func (t *fakeTarget) Dispose() {
	t.mu.Lock()
	t.disposed = true
	t.mu.Unlock()
	t.closed.Do(func() { close(t.closeCh) })
}

func (t *fakeTarget) Name() string { return "Fake VM" }
func (t *fakeTarget) Version() string { return "21.0.0" }

func (t *fakeTarget) ClassesByName(name string) []jdi.TypeRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.classes[name]; ok {
		return []jdi.TypeRef{c}
	}
	return nil
}

func (t *fakeTarget) AllThreads() []jdi.ThreadRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]jdi.ThreadRef, len(t.threads))
	for i, th := range t.threads {
		out[i] = th
	}
	return out
}

func (t *fakeTarget) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resumes++
	for _, th := range t.threads {
		th.suspended = false
	}
}

func (t *fakeTarget) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspends++
	for _, th := range t.threads {
		th.suspended = true
	}
}

func (t *fakeTarget) CanRequestMonitorEvents() bool { return !t.noMonitorEvents }
func (t *fakeTarget) CanWatchFieldAccess() bool { return true }
func (t *fakeTarget) CanWatchFieldModification() bool { return true }

func (t *fakeTarget) MirrorBool(v bool) jdi.Value {
	return &fakePrim{typ: "boolean", lit: strconv.FormatBool(v)}
}
func (t *fakeTarget) MirrorByte(v int8) jdi.Value {
	return &fakePrim{typ: "byte", lit: strconv.FormatInt(int64(v), 10)}
}
func (t *fakeTarget) MirrorChar(v rune) jdi.Value {
	return &fakePrim{typ: "char", lit: "'" + string(v) + "'"}
}
func (t *fakeTarget) MirrorShort(v int16) jdi.Value {
	return &fakePrim{typ: "short", lit: strconv.FormatInt(int64(v), 10)}
}
func (t *fakeTarget) MirrorInt(v int32) jdi.Value {
	return &fakePrim{typ: "int", lit: strconv.FormatInt(int64(v), 10)}
}
func (t *fakeTarget) MirrorLong(v int64) jdi.Value {
	return &fakePrim{typ: "long", lit: strconv.FormatInt(v, 10)}
}
func (t *fakeTarget) MirrorFloat(v float32) jdi.Value {
	return &fakePrim{typ: "float", lit: strconv.FormatFloat(float64(v), 'g', -1, 32)}
}
func (t *fakeTarget) MirrorDouble(v float64) jdi.Value {
	return &fakePrim{typ: "double", lit: strconv.FormatFloat(v, 'g', -1, 64)}
}
func (t *fakeTarget) MirrorString(s string) (jdi.Value, error) {
	return &fakeString{text: s}, nil
}

func (t *fakeTarget) newRequest(kind string, thread jdi.ThreadRef) *fakeRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	req := &fakeRequest{kind: kind, thread: thread, tags: make(map[string]string)}
	t.requests = append(t.requests, req)
	return req
}

// liveRequests counts undeleted requests of a kind ("" for all).
func (t *fakeTarget) liveRequests(kind string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, r := range t.requests {
		if !r.deleted && (kind == "" || r.kind == kind) {
			n++
		}
	}
	return n
}

func (t *fakeTarget) CreateBreakpoint(loc jdi.Location) (jdi.Request, error) {
	req := t.newRequest("breakpoint", nil)
	req.loc = loc
	return req, nil
}

func (t *fakeTarget) CreateAccessWatch(f jdi.FieldRef) (jdi.Request, error) {
	return t.newRequest("access-watch", nil), nil
}

func (t *fakeTarget) CreateModifyWatch(f jdi.FieldRef) (jdi.Request, error) {
	return t.newRequest("modify-watch", nil), nil
}

func (t *fakeTarget) CreateMethodEntry(classFilter jdi.TypeRef) (jdi.Request, error) {
	return t.newRequest("method-entry", nil), nil
}

func (t *fakeTarget) CreateMethodExit(classFilter jdi.TypeRef) (jdi.Request, error) {
	return t.newRequest("method-exit", nil), nil
}

func (t *fakeTarget) CreateException(exc jdi.TypeRef, caught, uncaught bool) (jdi.Request, error) {
	return t.newRequest("exception", nil), nil
}

func (t *fakeTarget) CreateClassPrepareWatch(classFilter string) (jdi.Request, error) {
	return t.newRequest("class-prepare", nil), nil
}

func (t *fakeTarget) CreateClassUnloadWatch(classFilter string) (jdi.Request, error) {
	return t.newRequest("class-unload", nil), nil
}

func (t *fakeTarget) CreateThreadStartWatch() (jdi.Request, error) {
	return t.newRequest("thread-start", nil), nil
}

func (t *fakeTarget) CreateThreadDeathWatch() (jdi.Request, error) {
	return t.newRequest("thread-death", nil), nil
}

func (t *fakeTarget) CreateMonitorContendWatch() (jdi.Request, error) {
	return t.newRequest("monitor-contend", nil), nil
}

func (t *fakeTarget) CreateStep(thread jdi.ThreadRef, depth jdi.StepDepth, classFilter string, count int) (jdi.Request, error) {
	req := t.newRequest("step", thread)
	req.stepDepth = depth
	req.classFilter = classFilter
	return req, nil
}

func (t *fakeTarget) StepRequests() []jdi.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []jdi.Request
	for _, r := range t.requests {
		if r.kind == "step" && !r.deleted {
			out = append(out, r)
		}
	}
	return out
}

func (t *fakeTarget) EventQueue() jdi.EventQueue { return &fakeQueue{t: t} }

type fakeQueue struct{ t *fakeTarget }

func (q *fakeQueue) Remove(timeout time.Duration) (jdi.EventSet, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case set := <-q.t.eventCh:
		return set, nil
	case <-q.t.closeCh:
		return nil, jdi.ErrDisconnected
	case <-timer.C:
		return nil, nil
	}
}

type fakeRequest struct {
	mu          sync.Mutex
	kind        string
	thread      jdi.ThreadRef
	loc         jdi.Location
	stepDepth   jdi.StepDepth
	classFilter string
	policy      jdi.SuspendPolicy
	enabled     bool
	deleted     bool
	tags        map[string]string
}

func (r *fakeRequest) Enable() { r.mu.Lock(); r.enabled = true; r.mu.Unlock() }
func (r *fakeRequest) Disable() { r.mu.Lock(); r.enabled = false; r.mu.Unlock() }

func (r *fakeRequest) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *fakeRequest) Delete() {
	r.mu.Lock()
	r.deleted = true
	r.enabled = false
	r.mu.Unlock()
}

func (r *fakeRequest) isDeleted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted
}

func (r *fakeRequest) SetSuspendPolicy(p jdi.SuspendPolicy) { r.policy = p }
func (r *fakeRequest) PutTag(key, value string) { r.mu.Lock(); r.tags[key] = value; r.mu.Unlock() }
func (r *fakeRequest) Tag(key string) string { r.mu.Lock(); defer r.mu.Unlock(); return r.tags[key] }
func (r *fakeRequest) Thread() jdi.ThreadRef { return r.thread }

// --- types, fields, methods, locations ---

type fakeType struct {
	t           *fakeTarget
	name        string
	super       *fakeType
	fields      []*fakeField
	methods     []*fakeMethod
	lines       map[int]bool
	noDebugInfo bool

	statics map[string]jdi.Value
}

func newFakeType(name string, lines ...int) *fakeType {
	c := &fakeType{name: name, lines: make(map[int]bool), statics: make(map[string]jdi.Value)}
	for _, l := range lines {
		c.lines[l] = true
	}
	return c
}

func (c *fakeType) withField(name, typeName string) *fakeType {
	c.fields = append(c.fields, &fakeField{owner: c, name: name, typeName: typeName})
	return c
}

func (c *fakeType) withMethod(m *fakeMethod) *fakeType {
	m.owner = c
	c.methods = append(c.methods, m)
	return c
}

func (c *fakeType) Name() string { return c.name }

func (c *fakeType) Superclass() jdi.TypeRef {
	if c.super == nil {
		return nil
	}
	return c.super
}

func (c *fakeType) FieldByName(name string) jdi.FieldRef {
	for _, f := range c.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (c *fakeType) Fields() []jdi.FieldRef {
	out := make([]jdi.FieldRef, len(c.fields))
	for i, f := range c.fields {
		out[i] = f
	}
	return out
}

func (c *fakeType) MethodsByName(name string) []jdi.MethodRef {
	var out []jdi.MethodRef
	for _, m := range c.methods {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeType) Methods() []jdi.MethodRef {
	out := make([]jdi.MethodRef, len(c.methods))
	for i, m := range c.methods {
		out[i] = m
	}
	return out
}

func (c *fakeType) LocationsAtLine(line int) ([]jdi.Location, error) {
	if c.noDebugInfo {
		return nil, jdi.ErrAbsentInformation
	}
	if !c.lines[line] {
		return nil, nil
	}
	method := &fakeMethod{owner: c, name: "run", sig: "()V"}
	if len(c.methods) > 0 {
		method = c.methods[0]
	}
	return []jdi.Location{&fakeLocation{typ: c, method: method, line: line}}, nil
}

func (c *fakeType) GetStaticField(f jdi.FieldRef) (jdi.Value, error) {
	if v, ok := c.statics[f.Name()]; ok {
		return v, nil
	}
	return nil, nil
}

func (c *fakeType) InvokeStatic(t jdi.ThreadRef, m jdi.MethodRef, args []jdi.Value) (jdi.Value, error) {
	method, ok := m.(*fakeMethod)
	if !ok || method.impl == nil {
		return nil, fmt.Errorf("no implementation for %s", m.Name())
	}
	return method.impl(args)
}

type fakeField struct {
	owner    *fakeType
	name     string
	typeName string
	static   bool
}

func (f *fakeField) Name() string { return f.name }
func (f *fakeField) TypeName() string { return f.typeName }
func (f *fakeField) DeclaringTypeName() string { return f.owner.name }
func (f *fakeField) IsStatic() bool { return f.static }

type fakeMethod struct {
	owner    *fakeType
	name     string
	sig      string
	retType  string
	argTypes []string
	static   bool
	impl     func(args []jdi.Value) (jdi.Value, error)
}

func (m *fakeMethod) Name() string { return m.name }
func (m *fakeMethod) Signature() string { return m.sig }
func (m *fakeMethod) ReturnTypeName() string { return m.retType }
func (m *fakeMethod) ArgumentTypeNames() []string { return m.argTypes }
func (m *fakeMethod) IsConstructor() bool { return m.name == "<init>" }
func (m *fakeMethod) IsStaticInitializer() bool { return m.name == "<clinit>" }
func (m *fakeMethod) IsStatic() bool { return m.static }
func (m *fakeMethod) IsNative() bool { return false }

type fakeLocation struct {
	typ    *fakeType
	method *fakeMethod
	line   int
}

func (l *fakeLocation) DeclaringType() jdi.TypeRef { return l.typ }
func (l *fakeLocation) Method() jdi.MethodRef { return l.method }
func (l *fakeLocation) LineNumber() int { return l.line }
func (l *fakeLocation) SourceName() (string, error) {
	return l.typ.name + ".java", nil
}

func (l *fakeLocation) Same(other jdi.Location) bool {
	o, ok := other.(*fakeLocation)
	return ok && o.typ == l.typ && o.line == l.line
}

// --- threads and frames ---

type fakeThread struct {
	id        int64
	name      string
	suspended bool
	frames    []*fakeFrame
}

func (th *fakeThread) UniqueID() int64 { return th.id }
func (th *fakeThread) Name() string { return th.name }
func (th *fakeThread) StatusName() string { return "RUNNING" }
func (th *fakeThread) IsSuspended() bool { return th.suspended }
func (th *fakeThread) Suspend() { th.suspended = true }
func (th *fakeThread) Resume() { th.suspended = false }

func (th *fakeThread) FrameCount() (int, error) {
	if !th.suspended {
		return 0, jdi.ErrIncompatibleThreadState
	}
	return len(th.frames), nil
}

func (th *fakeThread) Frames() ([]jdi.FrameRef, error) {
	if !th.suspended {
		return nil, jdi.ErrIncompatibleThreadState
	}
	out := make([]jdi.FrameRef, len(th.frames))
	for i, f := range th.frames {
		out[i] = f
	}
	return out, nil
}

func (th *fakeThread) Frame(index int) (jdi.FrameRef, error) {
	if !th.suspended {
		return nil, jdi.ErrIncompatibleThreadState
	}
	if index < 0 || index >= len(th.frames) {
		return nil, jdi.ErrIncompatibleThreadState
	}
	return th.frames[index], nil
}

type fakeFrame struct {
	loc         *fakeLocation
	this        *fakeObject
	locals      []*fakeLocal
	values      map[string]jdi.Value
	noDebugInfo bool
}

func newFakeFrame(loc *fakeLocation) *fakeFrame {
	return &fakeFrame{loc: loc, values: make(map[string]jdi.Value)}
}

func (f *fakeFrame) withLocal(name, typeName string, isArg bool, val jdi.Value) *fakeFrame {
	f.locals = append(f.locals, &fakeLocal{name: name, typeName: typeName, isArg: isArg})
	f.values[name] = val
	return f
}

func (f *fakeFrame) Location() jdi.Location { return f.loc }

func (f *fakeFrame) ThisObject() jdi.ObjectValue {
	if f.this == nil {
		return nil
	}
	return f.this
}

func (f *fakeFrame) VisibleVariables() ([]jdi.LocalVar, error) {
	if f.noDebugInfo {
		return nil, jdi.ErrAbsentInformation
	}
	out := make([]jdi.LocalVar, len(f.locals))
	for i, l := range f.locals {
		out[i] = l
	}
	return out, nil
}

func (f *fakeFrame) Arguments() ([]jdi.LocalVar, error) {
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

func (f *fakeFrame) VariableByName(name string) (jdi.LocalVar, error) {
	if f.noDebugInfo {
		return nil, jdi.ErrAbsentInformation
	}
	for _, l := range f.locals {
		if l.name == name {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeFrame) GetValue(v jdi.LocalVar) (jdi.Value, error) {
	return f.values[v.Name()], nil
}

func (f *fakeFrame) SetValue(v jdi.LocalVar, val jdi.Value) error {
	f.values[v.Name()] = val
	return nil
}

type fakeLocal struct {
	name     string
	typeName string
	isArg    bool
}

func (l *fakeLocal) Name() string { return l.name }
func (l *fakeLocal) TypeName() string { return l.typeName }
func (l *fakeLocal) IsArgument() bool { return l.isArg }

// --- values ---

type fakePrim struct {
	typ string
	lit string
}

func (p *fakePrim) TypeName() string { return p.typ }
func (p *fakePrim) Literal() string { return p.lit }

type fakeString struct {
	text string
}

func (s *fakeString) TypeName() string { return "java.lang.String" }
func (s *fakeString) Text() string { return s.text }

type fakeObject struct {
	id     int64
	typ    *fakeType
	fields map[string]jdi.Value
}

func newFakeObject(id int64, typ *fakeType) *fakeObject {
	return &fakeObject{id: id, typ: typ, fields: make(map[string]jdi.Value)}
}

func (o *fakeObject) TypeName() string { return o.typ.name }
func (o *fakeObject) UniqueID() int64 { return o.id }
func (o *fakeObject) ReferenceType() jdi.TypeRef { return o.typ }

func (o *fakeObject) GetField(f jdi.FieldRef) (jdi.Value, error) {
	return o.fields[f.Name()], nil
}

func (o *fakeObject) InvokeMethod(t jdi.ThreadRef, m jdi.MethodRef, args []jdi.Value) (jdi.Value, error) {
	method, ok := m.(*fakeMethod)
	if !ok || method.impl == nil {
		return nil, fmt.Errorf("no implementation for %s", m.Name())
	}
	return method.impl(args)
}

type fakeArray struct {
	fakeObject
	elems []jdi.Value
}

func (a *fakeArray) TypeName() string { return a.typ.name }
func (a *fakeArray) Length() int { return len(a.elems) }

func (a *fakeArray) Slice(start, count int) ([]jdi.Value, error) {
	return a.elems[start : start+count], nil
}

// --- events ---

type fakeEventSet struct {
	mu      sync.Mutex
	events  []jdi.Event
	policy  jdi.SuspendPolicy
	resumed bool
}

func (s *fakeEventSet) Events() []jdi.Event { return s.events }
func (s *fakeEventSet) SuspendPolicy() jdi.SuspendPolicy { return s.policy }
func (s *fakeEventSet) Resume() { s.mu.Lock(); s.resumed = true; s.mu.Unlock() }

func (s *fakeEventSet) wasResumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumed
}

type fakeBaseEvent struct{ req jdi.Request }

func (e fakeBaseEvent) Request() jdi.Request { return e.req }

type fakeBreakpointEvent struct {
	fakeBaseEvent
	thread jdi.ThreadRef
	loc    jdi.Location
}

func (e *fakeBreakpointEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *fakeBreakpointEvent) Location() jdi.Location { return e.loc }

type fakeStepEvent struct {
	fakeBaseEvent
	thread jdi.ThreadRef
	loc    jdi.Location
}

func (e *fakeStepEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *fakeStepEvent) Location() jdi.Location { return e.loc }

type fakeExceptionEvent struct {
	fakeBaseEvent
	thread   jdi.ThreadRef
	loc      jdi.Location
	exc      jdi.ObjectValue
	catchLoc jdi.Location
}

func (e *fakeExceptionEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *fakeExceptionEvent) Location() jdi.Location { return e.loc }
func (e *fakeExceptionEvent) Exception() jdi.ObjectValue { return e.exc }
func (e *fakeExceptionEvent) CatchLocation() jdi.Location { return e.catchLoc }

type fakeModifyWatchEvent struct {
	fakeBaseEvent
	thread    jdi.ThreadRef
	loc       jdi.Location
	field     jdi.FieldRef
	valueToBe jdi.Value
}

func (e *fakeModifyWatchEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *fakeModifyWatchEvent) Location() jdi.Location { return e.loc }
func (e *fakeModifyWatchEvent) Field() jdi.FieldRef { return e.field }
func (e *fakeModifyWatchEvent) ValueToBe() jdi.Value { return e.valueToBe }

type fakeClassPrepareEvent struct {
	fakeBaseEvent
	thread jdi.ThreadRef
	ref    jdi.TypeRef
}

func (e *fakeClassPrepareEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *fakeClassPrepareEvent) ReferenceType() jdi.TypeRef { return e.ref }

type fakeThreadStartEvent struct {
	fakeBaseEvent
	thread jdi.ThreadRef
}

func (e *fakeThreadStartEvent) Thread() jdi.ThreadRef { return e.thread }

type fakeThreadDeathEvent struct {
	fakeBaseEvent
	thread jdi.ThreadRef
}

func (e *fakeThreadDeathEvent) Thread() jdi.ThreadRef { return e.thread }

type fakeClassUnloadEvent struct {
	fakeBaseEvent
	className string
}

func (e *fakeClassUnloadEvent) ClassName() string { return e.className }
