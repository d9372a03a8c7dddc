package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jdimcp/jdi-mcp/internal/debug"
	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

func (s *Server) handleClassPrepareWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.addEventWatch(request, "class prepare",
		func(t jdi.Target) (string, error) {
			return s.session.Events.WatchClassPrepare(t, strArg(request, "classFilter"))
		})
}

func (s *Server) handleClassUnloadWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.addEventWatch(request, "class unload",
		func(t jdi.Target) (string, error) {
			return s.session.Events.WatchClassUnload(t, strArg(request, "classFilter"))
		})
}

func (s *Server) handleThreadStartWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.addEventWatch(request, "thread start", s.session.Events.WatchThreadStart)
}

func (s *Server) handleThreadDeathWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.addEventWatch(request, "thread death", s.session.Events.WatchThreadDeath)
}

func (s *Server) handleMonitorContentionWatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.addEventWatch(request, "monitor contention", s.session.Events.WatchMonitorContention)
}

func (s *Server) addEventWatch(request mcp.CallToolRequest, kind string, create func(jdi.Target) (string, error)) (*mcp.CallToolResult, error) {
	target, err := s.session.Target()
	if err != nil {
		return errResult(err)
	}
	id, err := create(target)
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Watching %s events: %s\nEvents are captured without stopping the VM. Drain with events_pending.",
		kind, id)), nil
}

func (s *Server) handleEventsPending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.IsConnected() {
		return errResult(errors.NotConnected())
	}

	peek := request.GetBool("peek", false)
	var events []debug.CapturedEvent
	if peek {
		events = s.session.Events.Peek()
	} else {
		events = s.session.Events.Drain()
	}

	var sb strings.Builder
	if len(events) == 0 {
		sb.WriteString("No pending events.\n")
	} else {
		verb := "Drained"
		if peek {
			verb = "Pending"
		}
		fmt.Fprintf(&sb, "%s %d events:\n", verb, len(events))
		for _, e := range events {
			fmt.Fprintf(&sb, "  %s  %s\n", e.Timestamp.Format(time.TimeOnly), e)
		}
	}

	watches := s.session.Events.ActiveWatches()
	if len(watches) > 0 {
		ids := make([]string, 0, len(watches))
		for id := range watches {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		sb.WriteString("\nActive watches:\n")
		for _, id := range ids {
			fmt.Fprintf(&sb, "  %s  %s\n", id, watches[id])
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleEventWatchRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("watchId")
	if err != nil {
		return errResult(errors.MissingParameter("watchId", "Specify the event watch ID, e.g. 'cp-1'."))
	}
	if err := s.session.Events.RemoveWatch(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("Event watch " + id + " removed."), nil
}
