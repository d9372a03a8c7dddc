package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jdimcp/jdi-mcp/internal/debug"
	"github.com/jdimcp/jdi-mcp/internal/errors"
)

// errResult renders any error as an isError tool result. Handlers never
// return protocol-level errors for debuggee state problems.
func errResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(errors.FromError(err).Error()), nil
}

// intArg reads an optional numeric parameter with a default.
func intArg(request mcp.CallToolRequest, name string, def int) int {
	if v, err := request.RequireFloat(name); err == nil {
		return int(v)
	}
	return def
}

// int64Arg reads an optional 64-bit numeric parameter with a default.
func int64Arg(request mcp.CallToolRequest, name string, def int64) int64 {
	if v, err := request.RequireFloat(name); err == nil {
		return int64(v)
	}
	return def
}

// strArg reads an optional string parameter.
func strArg(request mcp.CallToolRequest, name string) string {
	v, _ := request.RequireString(name)
	return v
}

func (s *Server) handleDebugLaunch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mainClass, err := request.RequireString("mainClass")
	if err != nil {
		return errResult(errors.MissingParameter("mainClass",
			"Specify the fully qualified main class to launch, e.g. 'com.example.Main'."))
	}

	classpath := strArg(request, "classpath")
	jvmArgs := strArg(request, "jvmArgs")
	suspend := request.GetBool("suspend", true)

	if err := s.session.Launch(mainClass, classpath, jvmArgs, suspend); err != nil {
		return errResult(err)
	}

	info := s.session.Describe()
	var sb strings.Builder
	sb.WriteString("Debug session started.\n")
	fmt.Fprintf(&sb, "connection: %s\n", info.Details)
	fmt.Fprintf(&sb, "suspended on start: %v\n", suspend)
	if suspend {
		sb.WriteString("\nThe JVM is waiting. Set breakpoints now, then call resume.")
	} else {
		sb.WriteString("\nThe JVM is running. Set breakpoints and wait_for_stop.")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleDebugLaunchGradleTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := debug.GradleTestOptions{
		ProjectDir: strArg(request, "projectDir"),
		TestFilter: strArg(request, "testFilter"),
		Port:       intArg(request, "port", 0),
		UseWrapper: request.GetBool("useWrapper", true),
		Clean:      request.GetBool("clean", false),
	}
	if secs := intArg(request, "waitTimeout", 0); secs > 0 {
		opts.WaitTimeout = time.Duration(secs) * time.Second
	}
	if extra := strArg(request, "gradleArgs"); extra != "" {
		opts.GradleArgs = strings.Fields(extra)
	}

	if err := s.session.LaunchGradleTest(opts); err != nil {
		return errResult(err)
	}

	info := s.session.Describe()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Attached to gradle test JVM.\nconnection: %s\n\nThe test JVM is suspended. Set breakpoints, then resume.",
		info.Details)), nil
}

func (s *Server) handleDebugAttachSocket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	port, err := request.RequireFloat("port")
	if err != nil {
		return errResult(errors.MissingParameter("port", "Specify the JDWP port the target JVM is listening on."))
	}

	host := strArg(request, "host")
	waitForPort := request.GetBool("waitForPort", false)
	waitSecs := s.config.ClampAttachWait(intArg(request, "waitTimeout", 0))

	err = s.session.AttachSocket(host, int(port), waitForPort, time.Duration(waitSecs)*time.Second)
	if err != nil {
		return errResult(err)
	}

	info := s.session.Describe()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Attached.\nconnection: %s\nvm: %s %s\n\nUse breakpoint_set and resume to start debugging.",
		info.Details, info.VMName, info.VMVersion)), nil
}

func (s *Server) handleDebugAttachPid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := request.RequireFloat("pid")
	if err != nil {
		return errResult(errors.MissingParameter("pid", "Specify the process ID of the target JVM."))
	}

	if err := s.session.AttachPid(int(pid)); err != nil {
		return errResult(err)
	}

	info := s.session.Describe()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Attached.\nconnection: %s\nvm: %s %s",
		info.Details, info.VMName, info.VMVersion)), nil
}

func (s *Server) handleDebugDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wasConnected := s.session.IsConnected()
	s.session.Disconnect()
	if !wasConnected {
		return mcp.NewToolResultText("No active session; nothing to disconnect."), nil
	}
	return mcp.NewToolResultText("Disconnected. All breakpoints, watchpoints and event watches removed."), nil
}

func (s *Server) handleDebugStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.session.Describe()

	var sb strings.Builder
	sb.WriteString("=== Debug Status ===\n")
	if !info.Connected {
		sb.WriteString("connected: false\n\nUse debug_launch or debug_attach_socket to start a session.")
		return mcp.NewToolResultText(sb.String()), nil
	}

	fmt.Fprintf(&sb, "connected: true\n")
	fmt.Fprintf(&sb, "session: %s\n", info.InstanceID)
	fmt.Fprintf(&sb, "connection: %s (%s)\n", info.Details, info.ConnectionKind)
	fmt.Fprintf(&sb, "connected_at: %s\n", info.ConnectedAt.Format(time.RFC3339))

	reason := s.session.LastStopReason()
	if reason.IsStopped() {
		sb.WriteString("state: STOPPED\n\n=== Stop Reason ===\n")
		writeStopReason(&sb, reason)
	} else {
		sb.WriteString("state: RUNNING\n")
	}

	if info.OutputTail != "" {
		sb.WriteString("\nrecent debuggee output:\n")
		sb.WriteString(info.OutputTail)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nbreakpoints: %d (%d pending)\n", len(s.session.Breakpoints.All()), s.session.Breakpoints.PendingCount())
	fmt.Fprintf(&sb, "watchpoints: %d\n", len(s.session.Watchpoints.All()))
	fmt.Fprintf(&sb, "method breakpoints: %d\n", len(s.session.MethodBreaks.All()))
	fmt.Fprintf(&sb, "exception breakpoints: %d\n", len(s.session.Exceptions.All()))
	fmt.Fprintf(&sb, "watch expressions: %d\n", s.session.Watches.Count())
	fmt.Fprintf(&sb, "pending events: %d\n", s.session.Events.PendingCount())

	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleVMInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.session.Describe()
	if !info.Connected {
		return errResult(errors.NotConnected())
	}

	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	sb.WriteString("=== VM Info ===\n")
	fmt.Fprintf(&sb, "name: %s\n", info.VMName)
	fmt.Fprintf(&sb, "version: %s\n", info.VMVersion)
	fmt.Fprintf(&sb, "session: %s\n", info.InstanceID)
	fmt.Fprintf(&sb, "connection: %s (%s)\n", info.Details, info.ConnectionKind)
	fmt.Fprintf(&sb, "threads: %d\n", len(target.AllThreads()))
	fmt.Fprintf(&sb, "capabilities:\n")
	fmt.Fprintf(&sb, "  field access watchpoints: %v\n", target.CanWatchFieldAccess())
	fmt.Fprintf(&sb, "  field modification watchpoints: %v\n", target.CanWatchFieldModification())
	fmt.Fprintf(&sb, "  monitor events: %v\n", target.CanRequestMonitorEvents())
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handlePing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong"), nil
}
