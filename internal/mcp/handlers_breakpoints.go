package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Line Breakpoint Handlers

func (s *Server) handleBreakpointSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	className, err := request.RequireString("className")
	if err != nil {
		return errResult(errors.MissingParameter("className", "Specify the fully qualified class name, e.g. 'com.example.Main'."))
	}
	line, err := request.RequireFloat("lineNumber")
	if err != nil {
		return errResult(errors.MissingParameter("lineNumber", "Specify the line number to break at."))
	}

	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}

	rec, err := s.session.Breakpoints.Set(target, className, int(line))
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Breakpoint %s at %s:%d\n", rec.ID, rec.ClassName, rec.Line)
	fmt.Fprintf(&sb, "state: %s\n", rec.StateName())
	if rec.Pending {
		sb.WriteString("\nThe class is not loaded yet. The breakpoint activates automatically when it is prepared.")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleBreakpointRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("breakpointId")
	if err != nil {
		return errResult(errors.MissingParameter("breakpointId", "Specify the breakpoint ID, e.g. 'bp-1'."))
	}
	if err := s.session.Breakpoints.Remove(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("Breakpoint " + id + " removed."), nil
}

func (s *Server) handleBreakpointList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.session.Breakpoints.All()
	if len(records) == 0 {
		return mcp.NewToolResultText("No breakpoints set."), nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Breakpoints (%d):\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "  %s  %s:%d  [%s]  hits: %d\n",
			rec.ID, rec.ClassName, rec.Line, rec.StateName(), rec.HitCount)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleBreakpointEnable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setBreakpointEnabled(request, true)
}

func (s *Server) handleBreakpointDisable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setBreakpointEnabled(request, false)
}

func (s *Server) setBreakpointEnabled(request mcp.CallToolRequest, enabled bool) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("breakpointId")
	if err != nil {
		return errResult(errors.MissingParameter("breakpointId", "Specify the breakpoint ID, e.g. 'bp-1'."))
	}
	var opErr error
	verb := "enabled"
	if enabled {
		opErr = s.session.Breakpoints.Enable(id)
	} else {
		opErr = s.session.Breakpoints.Disable(id)
		verb = "disabled"
	}
	if opErr != nil {
		return errResult(opErr)
	}
	return mcp.NewToolResultText("Breakpoint " + id + " " + verb + "."), nil
}

// Watchpoint Handlers

func (s *Server) handleWatchpointAccess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setWatchpoint(request, true)
}

func (s *Server) handleWatchpointModification(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setWatchpoint(request, false)
}

func (s *Server) setWatchpoint(request mcp.CallToolRequest, access bool) (*mcp.CallToolResult, error) {
	className, err := request.RequireString("className")
	if err != nil {
		return errResult(errors.MissingParameter("className", "Specify the fully qualified class declaring the field."))
	}
	fieldName, err := request.RequireString("fieldName")
	if err != nil {
		return errResult(errors.MissingParameter("fieldName", "Specify the field to watch."))
	}

	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}

	if access {
		r, err := s.session.Watchpoints.SetAccess(target, className, fieldName)
		if err != nil {
			return errResult(err)
		}
		return watchpointResult(r.ID, "access", className, fieldName, r.Pending), nil
	}
	r, err := s.session.Watchpoints.SetModify(target, className, fieldName)
	if err != nil {
		return errResult(err)
	}
	return watchpointResult(r.ID, "modification", className, fieldName, r.Pending), nil
}

func watchpointResult(id, kind, className, fieldName string, pending bool) *mcp.CallToolResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Watchpoint %s: %s of %s.%s\n", id, kind, className, fieldName)
	if pending {
		sb.WriteString("state: pending\n\nThe class is not loaded yet. The watchpoint activates when it is prepared.")
	} else {
		sb.WriteString("state: enabled\n\nResume and wait_for_stop; the VM stops when the field is touched.")
	}
	return mcp.NewToolResultText(sb.String())
}

func (s *Server) handleWatchpointRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("watchpointId")
	if err != nil {
		return errResult(errors.MissingParameter("watchpointId", "Specify the watchpoint ID, e.g. 'wa-1' or 'wm-1'."))
	}
	if err := s.session.Watchpoints.Remove(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("Watchpoint " + id + " removed."), nil
}

func (s *Server) handleWatchpointList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.session.Watchpoints.All()
	if len(records) == 0 {
		return mcp.NewToolResultText("No watchpoints set."), nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Watchpoints (%d):\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "  %s  %s %s.%s  [%s]\n",
			rec.ID, strings.ToLower(string(rec.Kind)), rec.ClassName, rec.FieldName, rec.StateName())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// Method Breakpoint Handlers

func (s *Server) handleMethodEntryBreak(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setMethodBreak(request, true)
}

func (s *Server) handleMethodExitBreak(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setMethodBreak(request, false)
}

func (s *Server) setMethodBreak(request mcp.CallToolRequest, entry bool) (*mcp.CallToolResult, error) {
	className, err := request.RequireString("className")
	if err != nil {
		return errResult(errors.MissingParameter("className", "Specify the fully qualified class name."))
	}
	methodName, err := request.RequireString("methodName")
	if err != nil {
		return errResult(errors.MissingParameter("methodName", "Specify the method name, or '*' for all methods."))
	}

	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}

	kind := "entry"
	set := s.session.MethodBreaks.SetEntry
	if !entry {
		kind = "exit"
		set = s.session.MethodBreaks.SetExit
	}

	rec, err := set(target, className, methodName)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Method %s breakpoint %s on %s.%s\n", kind, rec.ID, rec.ClassName, rec.MethodName)
	fmt.Fprintf(&sb, "state: %s\n", rec.StateName())
	if rec.Pending {
		sb.WriteString("\nThe class is not loaded yet. The breakpoint activates when it is prepared.")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleMethodBreakpointRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("breakpointId")
	if err != nil {
		return errResult(errors.MissingParameter("breakpointId", "Specify the method breakpoint ID, e.g. 'me-1' or 'mx-1'."))
	}
	if err := s.session.MethodBreaks.Remove(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("Method breakpoint " + id + " removed."), nil
}

func (s *Server) handleMethodBreakpointList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.session.MethodBreaks.All()
	if len(records) == 0 {
		return mcp.NewToolResultText("No method breakpoints set."), nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Method breakpoints (%d):\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "  %s  %s %s.%s  [%s]\n",
			rec.ID, strings.ToLower(string(rec.Kind)), rec.ClassName, rec.MethodName, rec.StateName())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// Exception Breakpoint Handlers

func (s *Server) handleExceptionBreakOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}

	exceptionClass := strArg(request, "exceptionClass")
	caught := request.GetBool("caught", true)
	uncaught := request.GetBool("uncaught", true)

	rec, err := s.session.Exceptions.Set(target, exceptionClass, caught, uncaught)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Exception breakpoint %s on %s\n", rec.ID, rec.ClassName)
	fmt.Fprintf(&sb, "caught: %v, uncaught: %v\n\n", rec.CatchCaught, rec.CatchUncaught)
	sb.WriteString("Resume and wait_for_stop; the VM stops when a matching exception is thrown.")
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleExceptionBreakRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("breakpointId")
	if err != nil {
		return errResult(errors.MissingParameter("breakpointId", "Specify the exception breakpoint ID, e.g. 'ex-1'."))
	}
	if err := s.session.Exceptions.Remove(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("Exception breakpoint " + id + " removed."), nil
}

func (s *Server) handleExceptionBreakList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.session.Exceptions.All()
	if len(records) == 0 {
		return mcp.NewToolResultText("No exception breakpoints set."), nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Exception breakpoints (%d):\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "  %s  %s  caught=%v uncaught=%v  [%s]\n",
			rec.ID, rec.ClassName, rec.CatchCaught, rec.CatchUncaught, rec.StateName())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleExceptionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.IsConnected() {
		return errResult(errors.NotConnected())
	}

	exc := s.session.LastException()
	if exc == nil {
		return errResult(errors.Wrap(errors.CodeNotFound,
			"no exception at the current stop",
			"Use this tool when stopped at an exception breakpoint (wait_for_stop reported EXCEPTION_THROWN).", nil))
	}

	var sb strings.Builder
	sb.WriteString("=== Exception Information ===\n")
	excObj := exc.Exception()
	if excObj != nil {
		fmt.Fprintf(&sb, "type: %s\n", excObj.ReferenceType().Name())
		fmt.Fprintf(&sb, "object id: @%d\n", excObj.UniqueID())
		if msg := s.exceptionMessage(exc, excObj); msg != "" {
			fmt.Fprintf(&sb, "message: %s\n", msg)
		}
	}

	sb.WriteString("\nthrow location:\n")
	fmt.Fprintf(&sb, "  %s\n", formatLocation(exc.Location()))
	if catchLoc := exc.CatchLocation(); catchLoc != nil {
		sb.WriteString("catch location:\n")
		fmt.Fprintf(&sb, "  %s\n", formatLocation(catchLoc))
	} else {
		sb.WriteString("uncaught: the exception propagates out of the thread\n")
	}
	if excObj != nil {
		fmt.Fprintf(&sb, "\nInspect fields with object_fields(objectId=%d).", excObj.UniqueID())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// exceptionMessage invokes getMessage() on the thrown object while its
// thread is still suspended.
func (s *Server) exceptionMessage(exc jdi.ExceptionEvent, obj jdi.ObjectValue) string {
	thread := exc.Thread()
	if thread == nil || !thread.IsSuspended() {
		return ""
	}
	methods := obj.ReferenceType().MethodsByName("getMessage")
	for _, m := range methods {
		if len(m.ArgumentTypeNames()) != 0 {
			continue
		}
		val, err := obj.InvokeMethod(thread, m, nil)
		if err != nil {
			return ""
		}
		if str, ok := val.(jdi.StringValue); ok {
			return str.Text()
		}
		return ""
	}
	return ""
}
