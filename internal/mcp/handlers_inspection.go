package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jdimcp/jdi-mcp/internal/errors"
)

func (s *Server) handleThreadsList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}

	threads := target.AllThreads()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Threads (%d):\n", len(threads))
	for _, t := range threads {
		suspended := ""
		if t.IsSuspended() {
			suspended = "  [suspended]"
		}
		fmt.Fprintf(&sb, "  %-6d %-40s %s%s\n", t.UniqueID(), t.Name(), t.StatusName(), suspended)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleThreadSuspend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the thread ID from threads_list."))
	}
	thread, err := s.session.FindThread(int64(threadID))
	if err != nil {
		return errResult(err)
	}
	thread.Suspend()
	return mcp.NewToolResultText(fmt.Sprintf("Thread %d (%s) suspended.", thread.UniqueID(), thread.Name())), nil
}

func (s *Server) handleThreadResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the thread ID from threads_list."))
	}
	thread, err := s.session.FindThread(int64(threadID))
	if err != nil {
		return errResult(err)
	}
	thread.Resume()
	return mcp.NewToolResultText(fmt.Sprintf("Thread %d (%s) resumed.", thread.UniqueID(), thread.Name())), nil
}

func (s *Server) handleStackFrames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the thread ID from threads_list."))
	}
	maxFrames := intArg(request, "maxFrames", 25)

	thread, err := s.session.SuspendedThread(int64(threadID))
	if err != nil {
		return errResult(err)
	}
	frames, err := thread.Frames()
	if err != nil {
		return errResult(errors.ThreadNotSuspended(thread.Name()))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Stack of %s (id: %d), %d frames:\n", thread.Name(), thread.UniqueID(), len(frames))
	shown := frames
	if len(shown) > maxFrames {
		shown = shown[:maxFrames]
	}
	for i, frame := range shown {
		fmt.Fprintf(&sb, "  #%-3d %s\n", i, formatLocation(frame.Location()))
	}
	if len(shown) < len(frames) {
		fmt.Fprintf(&sb, "  ... %d more frames\n", len(frames)-len(shown))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleVariablesLocal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.listFrameVariables(request, false)
}

func (s *Server) handleVariablesArguments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.listFrameVariables(request, true)
}

func (s *Server) listFrameVariables(request mcp.CallToolRequest, argsOnly bool) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the thread ID from threads_list."))
	}
	frameIndex := intArg(request, "frameIndex", 0)

	list := s.session.VisibleLocals
	label := "Local variables"
	if argsOnly {
		list = s.session.Arguments
		label = "Arguments"
	}

	frame, vars, err := list(int64(threadID), frameIndex)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s in frame #%d (%s):\n", label, frameIndex, formatLocation(frame.Location()))
	if len(vars) == 0 {
		sb.WriteString("  (none)\n")
		return mcp.NewToolResultText(sb.String()), nil
	}
	for _, v := range vars {
		val, err := frame.GetValue(v)
		if err != nil {
			fmt.Fprintf(&sb, "  %s %s = (unreadable: %v)\n", v.TypeName(), v.Name(), err)
			continue
		}
		fmt.Fprintf(&sb, "  %s %s = %s\n", v.TypeName(), v.Name(), formatValue(val))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleVariableInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the thread ID from threads_list."))
	}
	name, err := request.RequireString("variableName")
	if err != nil {
		return errResult(errors.MissingParameter("variableName", "Specify the variable to inspect."))
	}
	frameIndex := intArg(request, "frameIndex", 0)

	val, v, err := s.session.LocalValue(int64(threadID), frameIndex, name)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Variable: %s\n", v.Name())
	fmt.Fprintf(&sb, "Declared type: %s\n", v.TypeName())
	fmt.Fprintf(&sb, "Value: %s\n", formatValue(val))
	if val != nil {
		fmt.Fprintf(&sb, "Runtime type: %s\n", val.TypeName())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleThisObject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the thread ID from threads_list."))
	}
	frameIndex := intArg(request, "frameIndex", 0)

	this, err := s.session.ThisObject(int64(threadID), frameIndex)
	if err != nil {
		return errResult(err)
	}
	if this == nil {
		return mcp.NewToolResultText("this: null (static or native frame)"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"this: %s\n\nInspect fields with object_fields(objectId=%d).",
		formatValue(this), this.UniqueID())), nil
}

func (s *Server) handleObjectFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectID, err := request.RequireFloat("objectId")
	if err != nil {
		return errResult(errors.MissingParameter("objectId", "Specify the object ID from variables_local or this_object."))
	}

	obj, fields, err := s.session.ObjectFields(int64(objectID))
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Fields of %s:\n", formatValue(obj))
	if len(fields) == 0 {
		sb.WriteString("  (no fields)\n")
		return mcp.NewToolResultText(sb.String()), nil
	}
	for _, fv := range fields {
		marker := ""
		if fv.Field.IsStatic() {
			marker = "static "
		}
		if fv.Err != nil {
			fmt.Fprintf(&sb, "  %s%s %s = (unreadable: %v)\n", marker, fv.Field.TypeName(), fv.Field.Name(), fv.Err)
			continue
		}
		fmt.Fprintf(&sb, "  %s%s %s = %s\n", marker, fv.Field.TypeName(), fv.Field.Name(), formatValue(fv.Value))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleArrayElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectID, err := request.RequireFloat("objectId")
	if err != nil {
		return errResult(errors.MissingParameter("objectId", "Specify the array object ID."))
	}
	startIndex := intArg(request, "startIndex", 0)
	count := intArg(request, "count", 20)

	arr, values, err := s.session.ArraySlice(int64(objectID), startIndex, count)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Array %s, elements [%d..%d) of %d:\n",
		formatValue(arr), startIndex, startIndex+len(values), arr.Length())
	for i, v := range values {
		fmt.Fprintf(&sb, "  [%d] = %s\n", startIndex+i, formatValue(v))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleAsyncStackTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID := int64Arg(request, "threadId", 0)
	showAll := request.GetBool("showAllSuspended", false)
	maxFrames := intArg(request, "maxFrames", 15)

	summary, err := s.session.AsyncStackSummary(threadID)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	sb.WriteString("=== Async Stack Trace Analysis ===\n\n")
	sb.WriteString("--- Primary Thread ---\n")
	writeThreadStack(&sb, summary.Primary, maxFrames)

	if summary.Framework != "" {
		fmt.Fprintf(&sb, "\nDetected async framework: %s\n", summary.Framework)
	}

	if len(summary.Related) > 0 {
		fmt.Fprintf(&sb, "\n--- Related Async Threads (%d) ---\n\n", len(summary.Related))
		for _, t := range summary.Related {
			writeThreadStack(&sb, t, min(maxFrames, 8))
			sb.WriteString("\n")
		}
	}

	if showAll {
		target, err := s.session.Target()
		if err != nil {
			return errResult(err)
		}
		related := make(map[int64]bool, len(summary.Related))
		for _, t := range summary.Related {
			related[t.UniqueID()] = true
		}
		sb.WriteString("\n--- All Suspended Threads ---\n\n")
		shown := 0
		for _, t := range target.AllThreads() {
			if !t.IsSuspended() || t.UniqueID() == summary.Primary.UniqueID() || related[t.UniqueID()] {
				continue
			}
			writeThreadStack(&sb, t, min(maxFrames, 5))
			sb.WriteString("\n")
			shown++
			if shown >= 10 {
				sb.WriteString("... more suspended threads omitted\n")
				break
			}
		}
	}

	sb.WriteString("\n--- Async Debugging Tips ---\n")
	sb.WriteString("- Use watch_add to track async values across steps\n")
	sb.WriteString("- Set method breakpoints on subscribe/onNext for reactive streams\n")
	sb.WriteString("- Use exception_break_on to catch errors in async callbacks\n")
	return mcp.NewToolResultText(sb.String()), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
