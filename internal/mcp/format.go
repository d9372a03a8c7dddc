package mcp

import (
	"fmt"
	"strings"

	"github.com/jdimcp/jdi-mcp/internal/debug"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// formatValue renders a target value for text output: primitives bare,
// strings quoted, arrays as Type[n] @id, objects as Type @id.
func formatValue(v jdi.Value) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case jdi.PrimitiveValue:
		return val.Literal()
	case jdi.StringValue:
		return fmt.Sprintf("%q", val.Text())
	case jdi.ArrayValue:
		elem := strings.TrimSuffix(val.TypeName(), "[]")
		return fmt.Sprintf("%s[%d] @%d", elem, val.Length(), val.UniqueID())
	case jdi.ObjectValue:
		return fmt.Sprintf("%s @%d", val.TypeName(), val.UniqueID())
	}
	return fmt.Sprintf("(%s)", v.TypeName())
}

// formatLocation renders "com.example.C.method:42".
func formatLocation(loc jdi.Location) string {
	if loc == nil {
		return "(unknown)"
	}
	return fmt.Sprintf("%s.%s:%d", loc.DeclaringType().Name(), loc.Method().Name(), loc.LineNumber())
}

// shortenClassName turns com.example.MyClass into c.e.MyClass.
func shortenClassName(fullName string) string {
	parts := strings.Split(fullName, ".")
	if len(parts) <= 2 {
		return fullName
	}
	var sb strings.Builder
	for _, p := range parts[:len(parts)-1] {
		sb.WriteByte(p[0])
		sb.WriteByte('.')
	}
	sb.WriteString(parts[len(parts)-1])
	return sb.String()
}

// writeStopReason renders a stop reason block shared by wait_for_stop and
// debug_status.
func writeStopReason(sb *strings.Builder, reason *debug.StopReason) {
	fmt.Fprintf(sb, "type: %s\n", reason.Kind())
	if reason.ThreadName() != "" {
		fmt.Fprintf(sb, "thread: %s (id: %d)\n", reason.ThreadName(), reason.ThreadID())
	}
	if loc := reason.Location(); loc != nil {
		sb.WriteString("\nlocation:\n")
		fmt.Fprintf(sb, "  class: %s\n", loc.DeclaringType().Name())
		fmt.Fprintf(sb, "  method: %s\n", loc.Method().Name())
		fmt.Fprintf(sb, "  line: %d\n", loc.LineNumber())
		if source, err := loc.SourceName(); err == nil {
			fmt.Fprintf(sb, "  source: %s\n", source)
		}
	}
	if details := reason.Details(); len(details) > 0 {
		sb.WriteString("\ndetails:\n")
		for _, d := range details {
			fmt.Fprintf(sb, "  %s: %s\n", d.Key, d.Value)
		}
	}
}

// writeThreadStack renders up to maxFrames frames of one thread,
// flagging async plumbing frames.
func writeThreadStack(sb *strings.Builder, thread jdi.ThreadRef, maxFrames int) {
	fmt.Fprintf(sb, "[%s] (ID: %d)\n", thread.Name(), thread.UniqueID())

	if !thread.IsSuspended() {
		sb.WriteString("  (thread not suspended)\n")
		return
	}
	frames, err := thread.Frames()
	if err != nil {
		fmt.Fprintf(sb, "  (unable to get frames: %v)\n", err)
		return
	}
	if len(frames) == 0 {
		sb.WriteString("  (no stack frames)\n")
		return
	}

	total := len(frames)
	if len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}
	for i, frame := range frames {
		loc := frame.Location()
		className := loc.DeclaringType().Name()
		prefix := "  "
		if debug.IsAsyncFrame(className) {
			prefix = "→ "
		}
		fmt.Fprintf(sb, "%s#%d %s.%s:%d\n", prefix, i, shortenClassName(className), loc.Method().Name(), loc.LineNumber())
	}
	if len(frames) < total {
		fmt.Fprintf(sb, "  ... %d more frames\n", total-len(frames))
	}
}
