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
)

func (s *Server) handleEvaluateExpression(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the suspended thread to evaluate in."))
	}
	expression, err := request.RequireString("expression")
	if err != nil {
		return errResult(errors.MissingParameter("expression", "Specify the expression to evaluate."))
	}
	frameIndex := intArg(request, "frameIndex", 0)

	val, err := s.session.Evaluate(int64(threadID), frameIndex, expression)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Expression: %s\n", expression)
	fmt.Fprintf(&sb, "Value: %s\n", formatValue(val))
	if val != nil {
		fmt.Fprintf(&sb, "Type: %s\n", val.TypeName())
	} else {
		sb.WriteString("Type: null\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSetVariable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the suspended thread."))
	}
	name, err := request.RequireString("variableName")
	if err != nil {
		return errResult(errors.MissingParameter("variableName", "Specify the variable to assign."))
	}
	valueText, err := request.RequireString("value")
	if err != nil {
		return errResult(errors.MissingParameter("value", "Specify the new value: '42', '\"text\"', 'true', 'null', or '@123'."))
	}
	frameIndex := intArg(request, "frameIndex", 0)

	oldVal, newVal, err := s.session.SetLocal(int64(threadID), frameIndex, name, valueText)
	if err != nil {
		return errResult(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Variable '%s' updated.\n", name)
	fmt.Fprintf(&sb, "Old value: %s\n", formatValue(oldVal))
	fmt.Fprintf(&sb, "New value: %s\n", formatValue(newVal))
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleInvokeMethod(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the suspended thread to invoke on."))
	}
	objectID, err := request.RequireFloat("objectId")
	if err != nil {
		return errResult(errors.MissingParameter("objectId", "Specify the object ID from variables_local."))
	}
	methodName, err := request.RequireString("methodName")
	if err != nil {
		return errResult(errors.MissingParameter("methodName", "Specify the method to invoke."))
	}

	res, err := s.session.InvokeInstance(int64(threadID), int64(objectID),
		methodName, strArg(request, "methodSignature"), strArg(request, "args"))
	if err != nil {
		return errResult(err)
	}
	return invokeResultText(res), nil
}

func (s *Server) handleInvokeStatic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the suspended thread to invoke on."))
	}
	className, err := request.RequireString("className")
	if err != nil {
		return errResult(errors.MissingParameter("className", "Specify the fully qualified class name."))
	}
	methodName, err := request.RequireString("methodName")
	if err != nil {
		return errResult(errors.MissingParameter("methodName", "Specify the static method to invoke."))
	}

	res, err := s.session.InvokeStatic(int64(threadID), className,
		methodName, strArg(request, "methodSignature"), strArg(request, "args"))
	if err != nil {
		return errResult(err)
	}
	return invokeResultText(res), nil
}

func invokeResultText(res *debug.InvokeResult) *mcp.CallToolResult {
	if res.Thrown != nil {
		return mcp.NewToolResultError(
			errors.ThrownException(res.Thrown.TypeName(), res.Thrown.UniqueID()).Error())
	}

	var sb strings.Builder
	sb.WriteString("Method invoked successfully.\n")
	fmt.Fprintf(&sb, "Method: %s.%s%s\n", res.ClassName, res.Method.Name(), res.Method.Signature())
	fmt.Fprintf(&sb, "Return type: %s\n", res.ReturnType)
	if res.ReturnType == "void" {
		sb.WriteString("Return value: (void)\n")
	} else {
		fmt.Fprintf(&sb, "Return value: %s\n", formatValue(res.Value))
	}
	return mcp.NewToolResultText(sb.String())
}

// Watch Expression Handlers

func (s *Server) handleWatchAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expression, err := request.RequireString("expression")
	if err != nil {
		return errResult(errors.MissingParameter("expression", "Specify the expression to watch, e.g. 'this.counter'."))
	}

	w, err := s.session.Watches.Add(expression)
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Watch %s added: %s\nEvaluate with watch_evaluate_all when the VM is stopped.",
		w.ID, w.Expression)), nil
}

func (s *Server) handleWatchRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("watchId")
	if err != nil {
		return errResult(errors.MissingParameter("watchId", "Specify the watch ID, e.g. 'w-1'."))
	}
	if err := s.session.Watches.Remove(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("Watch " + id + " removed."), nil
}

func (s *Server) handleWatchList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	watches := s.session.Watches.All()
	if len(watches) == 0 {
		return mcp.NewToolResultText("No watch expressions. Add one with watch_add."), nil
	}
	sort.Slice(watches, func(i, j int) bool { return watches[i].ID < watches[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Watch expressions (%d):\n", len(watches))
	for _, w := range watches {
		fmt.Fprintf(&sb, "  %s  %s\n", w.ID, w.Expression)
		switch {
		case !w.Evaluated():
			sb.WriteString("        (not evaluated yet)\n")
		case w.LastError != "":
			fmt.Fprintf(&sb, "        error: %s (at %s)\n", w.LastError, w.LastEvaluatedAt.Format(time.TimeOnly))
		default:
			fmt.Fprintf(&sb, "        = %s (at %s)\n", w.LastValue, w.LastEvaluatedAt.Format(time.TimeOnly))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleWatchEvaluateAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return errResult(errors.MissingParameter("threadId", "Specify the suspended thread to evaluate in."))
	}
	frameIndex := intArg(request, "frameIndex", 0)

	if s.session.Watches.Count() == 0 {
		return mcp.NewToolResultText("No watch expressions to evaluate. Add one with watch_add."), nil
	}

	results := s.session.EvaluateAllWatches(int64(threadID), frameIndex)
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Evaluated %d watch expressions:\n", len(results))
	for _, w := range results {
		if w == nil {
			continue
		}
		if w.LastError != "" {
			fmt.Fprintf(&sb, "  %s  %s  -> error: %s\n", w.ID, w.Expression, w.LastError)
		} else {
			fmt.Fprintf(&sb, "  %s  %s  = %s\n", w.ID, w.Expression, w.LastValue)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
