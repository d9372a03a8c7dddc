package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jdimcp/jdi-mcp/internal/debug"
	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

func (s *Server) handleResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID := int64Arg(request, "threadId", 0)

	if threadID > 0 {
		thread, err := s.session.FindThread(threadID)
		if err != nil {
			return errResult(err)
		}
		thread.Resume()
		return mcp.NewToolResultText(fmt.Sprintf(
			"Thread %d (%s) resumed.\nUse debug_status or wait_for_stop to check when the VM stops again.",
			threadID, thread.Name())), nil
	}

	if err := s.session.Resume(); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("All threads resumed.\nUse debug_status or wait_for_stop to check when the VM stops again."), nil
}

func (s *Server) handleSuspend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.SuspendAll(); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("All threads suspended. Use threads_list and stack_frames to inspect."), nil
}

func (s *Server) handleStepInto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStep(request, jdi.StepInto)
}

func (s *Server) handleStepOver(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStep(request, jdi.StepOver)
}

func (s *Server) handleStepOut(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleStep(request, jdi.StepOut)
}

func (s *Server) handleStep(request mcp.CallToolRequest, depth jdi.StepDepth) (*mcp.CallToolResult, error) {
	threadID := int64Arg(request, "threadId", 0)
	thread, err := s.session.Step(threadID, depth)
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Step %s initiated on thread: %s\nUse debug_status or wait_for_stop to see where execution stopped.",
		depth, thread.Name())), nil
}

func (s *Server) handleWaitForStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.IsConnected() {
		return errResult(errors.NotConnected())
	}

	timeoutSecs := s.config.ClampWaitForStop(intArg(request, "timeout", 0))
	start := time.Now()
	reason := s.session.WaitForStop(time.Duration(timeoutSecs) * time.Second)
	waitedMs := time.Since(start).Milliseconds()

	var sb strings.Builder
	if reason.Kind() == debug.StopVMDisconnect {
		return errResult(errors.VMDisconnected())
	}

	if reason.IsStopped() {
		sb.WriteString("stopped: true\n")
		fmt.Fprintf(&sb, "waited_ms: %d\n\n", waitedMs)
		sb.WriteString("=== Stop Reason ===\n")
		writeStopReason(&sb, reason)

		sb.WriteString("\n=== Next Steps ===\n")
		switch reason.Kind() {
		case debug.StopBreakpointHit:
			sb.WriteString("Use variables_local, stack_frames, or step_* to inspect/continue.\n")
		case debug.StopStepComplete:
			sb.WriteString("Use variables_local to see current state, or step_* to continue stepping.\n")
		case debug.StopExceptionThrown:
			sb.WriteString("Use exception_info for details, stack_frames for context.\n")
		case debug.StopWatchpointAccess, debug.StopWatchpointModify:
			sb.WriteString("Field access detected. Use variables_local or object_fields to inspect.\n")
		default:
			sb.WriteString("Use debug_status for more info, resume to continue.\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}

	sb.WriteString("stopped: false\n")
	sb.WriteString("state: RUNNING\n")
	fmt.Fprintf(&sb, "waited_ms: %d\n", waitedMs)
	fmt.Fprintf(&sb, "timeout_seconds: %d\n\n", timeoutSecs)
	sb.WriteString("Timeout waiting for the VM to stop.\n")
	sb.WriteString("The VM is still running. You can:\n")
	sb.WriteString("  - Call wait_for_stop again with a longer timeout\n")
	sb.WriteString("  - Call suspend to pause the VM manually\n")
	sb.WriteString("  - Check that breakpoints are set with breakpoint_list\n")
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleRunToLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	className, err := request.RequireString("className")
	if err != nil {
		return errResult(errors.MissingParameter("className", "Specify the fully qualified class name."))
	}
	line, err := request.RequireFloat("lineNumber")
	if err != nil {
		return errResult(errors.MissingParameter("lineNumber", "Specify the line to run to."))
	}
	timeoutSecs := s.config.ClampWaitForStop(intArg(request, "timeout", 0))

	res, err := s.session.RunToLine(className, int(line), time.Duration(timeoutSecs)*time.Second)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	if !res.Stopped {
		fmt.Fprintf(&sb, "Did not reach %s:%d within %d seconds.\n", className, int(line), timeoutSecs)
		sb.WriteString("The temporary breakpoint has been removed; the VM is still running.\n")
		sb.WriteString("The line may be unreachable from the current execution path.")
		return mcp.NewToolResultText(sb.String()), nil
	}

	if res.OnTarget {
		fmt.Fprintf(&sb, "Reached %s:%d.\n", className, int(line))
	} else {
		sb.WriteString("Stopped before reaching the requested line (another stop fired first).\n")
	}
	fmt.Fprintf(&sb, "waited_ms: %d\n\n=== Stop Reason ===\n", res.WaitedMs)
	writeStopReason(&sb, res.Reason)
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSmartStepInto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID := int64Arg(request, "threadId", 0)
	targetMethod := strArg(request, "targetMethod")
	targetClass := strArg(request, "targetClass")

	if targetMethod == "" {
		loc, methods, err := s.session.ListCallableMethods(threadID)
		if err != nil {
			return errResult(err)
		}

		var sb strings.Builder
		sb.WriteString("=== Smart Step Into ===\n")
		fmt.Fprintf(&sb, "Current location: %s\n\n", formatLocation(loc))
		if len(methods) == 0 {
			sb.WriteString("No method calls detected on the current line.\n")
			sb.WriteString("Use step_into for regular stepping.\n")
		} else {
			sb.WriteString("Potential methods to step into:\n\n")
			for _, m := range methods {
				fmt.Fprintf(&sb, "  - %s (%s)\n", m.MethodName, m.ClassName)
			}
			sb.WriteString("\nTo step into a specific method:\n")
			sb.WriteString("  smart_step_into(targetMethod=\"methodName\")\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}

	thread, err := s.session.SmartStepInto(threadID, targetClass)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Stepping into: %s", targetMethod)
	if targetClass != "" {
		fmt.Fprintf(&sb, " in %s", targetClass)
	}
	fmt.Fprintf(&sb, " (thread %s)\n\n", thread.Name())
	sb.WriteString("VM resumed. Use wait_for_stop to wait for the step to complete,\nthen execution_location to see where you stopped.")
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleExecutionLocation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID := int64Arg(request, "threadId", 0)
	loc, err := s.session.CurrentLocation(threadID)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	sb.WriteString("=== Execution Location ===\n")
	fmt.Fprintf(&sb, "thread: %s (id: %d)\n", loc.Thread.Name(), loc.Thread.UniqueID())
	fmt.Fprintf(&sb, "class: %s\n", loc.Location.DeclaringType().Name())
	fmt.Fprintf(&sb, "method: %s%s\n", loc.Location.Method().Name(), loc.Location.Method().Signature())
	fmt.Fprintf(&sb, "line: %d\n", loc.Location.LineNumber())
	if source, err := loc.Location.SourceName(); err == nil {
		fmt.Fprintf(&sb, "source: %s\n", source)
	}
	fmt.Fprintf(&sb, "frames: %d\n", loc.FrameCount)
	return mcp.NewToolResultText(sb.String()), nil
}
