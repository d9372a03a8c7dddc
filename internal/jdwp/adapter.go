package jdwp

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Adapter connects to debuggees over JDWP sockets.
type Adapter struct {
	log *logrus.Entry
}

// The wire types implement the full adapter surface.
var (
	_ jdi.Adapter     = (*Adapter)(nil)
	_ jdi.Target      = (*target)(nil)
	_ jdi.TypeRef     = (*typeRef)(nil)
	_ jdi.MethodRef   = (*methodRef)(nil)
	_ jdi.FieldRef    = (*fieldRef)(nil)
	_ jdi.ThreadRef   = (*threadRef)(nil)
	_ jdi.FrameRef    = (*frameRef)(nil)
	_ jdi.Location    = (*location)(nil)
	_ jdi.Request     = (*request)(nil)
	_ jdi.EventQueue  = (*eventQueue)(nil)
	_ jdi.EventSet    = (*eventSet)(nil)
	_ jdi.PrimitiveValue = (*primValue)(nil)
	_ jdi.ObjectValue    = (*objectValue)(nil)
	_ jdi.StringValue = (*stringValue)(nil)
	_ jdi.ArrayValue  = (*arrayValue)(nil)

	_ jdi.BreakpointEvent     = (*breakpointEvent)(nil)
	_ jdi.StepCompleteEvent   = (*stepEvent)(nil)
	_ jdi.ExceptionEvent      = (*exceptionEvent)(nil)
	_ jdi.AccessWatchEvent    = (*accessWatchEvent)(nil)
	_ jdi.ModifyWatchEvent    = (*modifyWatchEvent)(nil)
	_ jdi.MethodEntryEvent    = (*methodEntryEvent)(nil)
	_ jdi.MethodExitEvent     = (*methodExitEvent)(nil)
	_ jdi.VMStartEvent        = (*vmStartEvent)(nil)
	_ jdi.ClassPrepareEvent   = (*classPrepareEvent)(nil)
	_ jdi.ClassUnloadEvent    = (*classUnloadEvent)(nil)
	_ jdi.ThreadStartEvent    = (*threadStartEvent)(nil)
	_ jdi.ThreadDeathEvent    = (*threadDeathEvent)(nil)
	_ jdi.MonitorContendEvent = (*monitorContendEvent)(nil)
	_ jdi.MonitorWaitEvent    = (*monitorWaitEvent)(nil)
)

// NewAdapter creates the default wire adapter.
func NewAdapter(log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{log: log.WithField("component", "jdwp")}
}

// ConnectSocket attaches to a JVM listening for a debugger on host:port.
func (a *Adapter) ConnectSocket(host string, port int) (jdi.Target, error) {
	c, err := dial(host, port, a.log)
	if err != nil {
		return nil, err
	}
	return newTarget(c, a.log), nil
}

var jdwpAddressPattern = regexp.MustCompile(`-agentlib:jdwp=[^ ]*address=(?:[\w.*]+:)?(\d+)`)

// ConnectPid attaches to a local JVM by process id. The JDWP port is
// recovered from the process command line; a JVM started without the
// JDWP agent cannot be attached to this way.
func (a *Adapter) ConnectPid(pid int) (jdi.Target, error) {
	cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return nil, fmt.Errorf("cannot read command line of pid %d: %w", pid, err)
	}
	args := strings.ReplaceAll(string(cmdline), "\x00", " ")

	m := jdwpAddressPattern.FindStringSubmatch(args)
	if m == nil {
		return nil, fmt.Errorf("pid %d does not expose a JDWP socket (no -agentlib:jdwp address found on its command line)", pid)
	}
	port, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("pid %d: malformed JDWP address: %w", pid, err)
	}
	return a.ConnectSocket("127.0.0.1", port)
}
