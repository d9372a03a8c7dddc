// Package jdwp implements the jdi adapter surface over the Java Debug
// Wire Protocol: a TCP handshake followed by length-prefixed command and
// reply packets. Only the command sets the broker core needs are
// implemented.
package jdwp

// Command set / command pairs used by this client.
const (
	cmdSetVirtualMachine  = 1
	cmdSetReferenceType   = 2
	cmdSetClassType       = 3
	cmdSetMethod          = 6
	cmdSetObjectReference = 9
	cmdSetStringReference = 10
	cmdSetThreadReference = 11
	cmdSetArrayReference  = 13
	cmdSetEventRequest    = 15
	cmdSetStackFrame      = 16
	cmdSetEvent           = 64
)

const (
	vmVersion         = 1
	vmClassesBySig    = 2
	vmAllThreads      = 4
	vmDispose         = 6
	vmIDSizes         = 7
	vmSuspend         = 8
	vmResume          = 9
	vmCreateString    = 11
	vmCapabilitiesNew = 17

	refTypeSignature  = 1
	refTypeFields     = 4
	refTypeMethods    = 5
	refTypeGetValues  = 6
	refTypeSourceFile = 7

	classTypeSuperclass   = 1
	classTypeInvokeMethod = 3

	methodLineTable     = 1
	methodVariableTable = 2

	objRefReferenceType = 1
	objRefGetValues     = 2
	objRefSetValues     = 3
	objRefInvokeMethod  = 6

	stringRefValue = 1

	threadRefName       = 1
	threadRefSuspend    = 2
	threadRefResume     = 3
	threadRefStatus     = 4
	threadRefFrames     = 6
	threadRefFrameCount = 7

	arrayRefLength    = 1
	arrayRefGetValues = 2

	eventRequestSet   = 1
	eventRequestClear = 2

	eventComposite = 100

	stackFrameGetValues  = 1
	stackFrameSetValues  = 2
	stackFrameThisObject = 3
)

// Event kinds (JDWP EventKind).
const (
	evSingleStep       = 1
	evBreakpoint       = 2
	evException        = 4
	evThreadStart      = 6
	evThreadDeath      = 7
	evClassPrepare     = 8
	evClassUnload      = 9
	evFieldAccess      = 20
	evFieldModify      = 21
	evMethodEntry      = 40
	evMethodExit       = 41
	evMonitorContended = 43
	evMonitorWait      = 45
	evVMStart          = 90
	evVMDeath          = 99
)

// Suspend policies (JDWP SuspendPolicy).
const (
	suspendPolicyNone        = 0
	suspendPolicyEventThread = 1
	suspendPolicyAll         = 2
)

// Step depths and sizes (JDWP StepDepth / StepSize).
const (
	stepDepthInto = 0
	stepDepthOver = 1
	stepDepthOut  = 2
	stepSizeLine  = 1
)

// Event request modifier kinds.
const (
	modCount         = 1
	modClassOnly     = 4
	modClassMatch    = 5
	modLocationOnly  = 7
	modExceptionOnly = 8
	modFieldOnly     = 9
	modStep          = 10
)

// Value tags (JDWP Tag).
const (
	tagArray   = '['
	tagByte    = 'B'
	tagChar    = 'C'
	tagObject  = 'L'
	tagFloat   = 'F'
	tagDouble  = 'D'
	tagInt     = 'I'
	tagLong    = 'J'
	tagShort   = 'S'
	tagVoid    = 'V'
	tagBoolean = 'Z'
	tagString  = 's'
	tagThread  = 't'
)

// Invocation options.
const invokeSingleThreaded = 0x02

// Error codes this client cares about specifically.
const (
	errNone               = 0
	errInvalidThread      = 10
	errThreadNotSuspended = 13
	errAbsentInformation  = 101
	errVMDead             = 112
)

// typeTagClass distinguishes classes from interfaces/arrays in locations.
const (
	typeTagClass     = 1
	typeTagInterface = 2
	typeTagArray     = 3
)
