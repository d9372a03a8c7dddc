package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools wires up the full tool surface.
func (s *Server) registerTools() {
	s.registerSessionTools()
	s.registerExecutionTools()
	s.registerBreakpointTools()
	s.registerWatchpointTools()
	s.registerMethodBreakpointTools()
	s.registerExceptionTools()
	s.registerInspectionTools()
	s.registerMutationTools()
	s.registerWatchTools()
	s.registerEventTools()
}

// Session Management Tools

func (s *Server) registerSessionTools() {
	s.mcpServer.AddTool(mcp.NewTool("debug_launch",
		mcp.WithDescription("Launch a new JVM with debugging enabled and attach to it. Returns once the session is live."),
		mcp.WithString("mainClass",
			mcp.Required(),
			mcp.Description("Fully qualified main class to run, e.g. 'com.example.Main'"),
		),
		mcp.WithString("classpath",
			mcp.Description("Classpath for the debuggee (passed as -cp)"),
		),
		mcp.WithString("jvmArgs",
			mcp.Description("Extra JVM options, whitespace separated"),
		),
		mcp.WithBoolean("suspend",
			mcp.Description("Suspend the JVM until the first resume (default: true). Use true to set breakpoints before any code runs."),
		),
	), s.handleDebugLaunch)

	s.mcpServer.AddTool(mcp.NewTool("debug_launch_gradle_test",
		mcp.WithDescription("Run 'gradle test --debug-jvm' and attach to the waiting test JVM. The test JVM suspends on the JDWP port until attached."),
		mcp.WithString("projectDir",
			mcp.Description("Gradle project directory (default: current directory)"),
		),
		mcp.WithString("testFilter",
			mcp.Description("Test filter passed as --tests, e.g. 'com.example.MyTest'"),
		),
		mcp.WithNumber("port",
			mcp.Description("JDWP port the test JVM waits on (default: 5005)"),
		),
		mcp.WithNumber("waitTimeout",
			mcp.Description("Seconds to wait for the port (default: 120)"),
		),
		mcp.WithString("gradleArgs",
			mcp.Description("Extra gradle arguments, whitespace separated"),
		),
		mcp.WithBoolean("useWrapper",
			mcp.Description("Use ./gradlew instead of gradle (default: true)"),
		),
		mcp.WithBoolean("clean",
			mcp.Description("Run 'clean' before 'test' (default: false)"),
		),
	), s.handleDebugLaunchGradleTest)

	s.mcpServer.AddTool(mcp.NewTool("debug_attach_socket",
		mcp.WithDescription("Attach to a JVM listening for a debugger on a socket (started with -agentlib:jdwp=transport=dt_socket,server=y)."),
		mcp.WithString("host",
			mcp.Description("Host to connect to (default: localhost)"),
		),
		mcp.WithNumber("port",
			mcp.Required(),
			mcp.Description("JDWP port"),
		),
		mcp.WithBoolean("waitForPort",
			mcp.Description("Poll until the port accepts connections before attaching (default: false)"),
		),
		mcp.WithNumber("waitTimeout",
			mcp.Description("Seconds to poll when waitForPort is set (default: 60, max: 300)"),
		),
	), s.handleDebugAttachSocket)

	s.mcpServer.AddTool(mcp.NewTool("debug_attach_pid",
		mcp.WithDescription("Attach to a running local JVM by process ID. The JVM must have been started with the JDWP agent."),
		mcp.WithNumber("pid",
			mcp.Required(),
			mcp.Description("Process ID of the target JVM"),
		),
	), s.handleDebugAttachPid)

	s.mcpServer.AddTool(mcp.NewTool("debug_disconnect",
		mcp.WithDescription("Disconnect from the debuggee, remove every breakpoint and watch, and kill a launched debuggee process."),
	), s.handleDebugDisconnect)

	s.mcpServer.AddTool(mcp.NewTool("debug_status",
		mcp.WithDescription("Show session state: connection, stop reason, breakpoint counts."),
	), s.handleDebugStatus)

	s.mcpServer.AddTool(mcp.NewTool("vm_info",
		mcp.WithDescription("Show target VM name, version and connection details."),
	), s.handleVMInfo)

	s.mcpServer.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Liveness check; replies 'pong'."),
	), s.handlePing)
}

// Execution Control Tools

func (s *Server) registerExecutionTools() {
	s.mcpServer.AddTool(mcp.NewTool("resume",
		mcp.WithDescription("Resume execution. IMPORTANT: call wait_for_stop after this to know when the VM stops again."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID to resume (omit to resume all threads)"),
		),
	), s.handleResume)

	s.mcpServer.AddTool(mcp.NewTool("suspend",
		mcp.WithDescription("Suspend every thread of the VM for inspection."),
	), s.handleSuspend)

	s.mcpServer.AddTool(mcp.NewTool("step_into",
		mcp.WithDescription("Step into the next method call. Call wait_for_stop after this to see where the step landed. Thread must be suspended."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID to step (omit to use the first suspended thread)"),
		),
	), s.handleStepInto)

	s.mcpServer.AddTool(mcp.NewTool("step_over",
		mcp.WithDescription("Step over to the next line. Call wait_for_stop after this. Thread must be suspended."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID to step (omit to use the first suspended thread)"),
		),
	), s.handleStepOver)

	s.mcpServer.AddTool(mcp.NewTool("step_out",
		mcp.WithDescription("Step out of the current method. Call wait_for_stop after this. Thread must be suspended."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID to step (omit to use the first suspended thread)"),
		),
	), s.handleStepOut)

	s.mcpServer.AddTool(mcp.NewTool("wait_for_stop",
		mcp.WithDescription("Block until the VM stops (breakpoint, step, exception, watchpoint). Returns immediately if already stopped. Use after resume or step operations instead of polling debug_status."),
		mcp.WithNumber("timeout",
			mcp.Description("Seconds to wait (default: 30, max: 300)"),
		),
	), s.handleWaitForStop)

	s.mcpServer.AddTool(mcp.NewTool("run_to_line",
		mcp.WithDescription("Run until execution reaches a line: sets a temporary breakpoint, resumes, waits, removes the breakpoint whatever happens."),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class name"),
		),
		mcp.WithNumber("lineNumber",
			mcp.Required(),
			mcp.Description("Line to run to"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Seconds to wait for the line to be reached (default: 30, max: 300)"),
		),
	), s.handleRunToLine)

	s.mcpServer.AddTool(mcp.NewTool("smart_step_into",
		mcp.WithDescription("Step into a specific method call on the current line. Without targetMethod, lists methods plausibly callable from here. Use wait_for_stop after stepping."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID (omit to use the first suspended thread)"),
		),
		mcp.WithString("targetMethod",
			mcp.Description("Method name to step into. Omit to list candidates."),
		),
		mcp.WithString("targetClass",
			mcp.Description("Fully qualified class name restricting where the step may land"),
		),
	), s.handleSmartStepInto)

	s.mcpServer.AddTool(mcp.NewTool("execution_location",
		mcp.WithDescription("Show where a suspended thread currently stands (class, method, line, frame count)."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID (omit to use the first suspended thread)"),
		),
	), s.handleExecutionLocation)
}

// Line Breakpoint Tools

func (s *Server) registerBreakpointTools() {
	s.mcpServer.AddTool(mcp.NewTool("breakpoint_set",
		mcp.WithDescription("Set a line breakpoint. If the class is not loaded yet the breakpoint is created pending and activates when the class is prepared."),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class name, e.g. 'com.example.Main'"),
		),
		mcp.WithNumber("lineNumber",
			mcp.Required(),
			mcp.Description("Line number with executable code"),
		),
	), s.handleBreakpointSet)

	s.mcpServer.AddTool(mcp.NewTool("breakpoint_remove",
		mcp.WithDescription("Remove a breakpoint by ID."),
		mcp.WithString("breakpointId",
			mcp.Required(),
			mcp.Description("Breakpoint ID, e.g. 'bp-1'"),
		),
	), s.handleBreakpointRemove)

	s.mcpServer.AddTool(mcp.NewTool("breakpoint_list",
		mcp.WithDescription("List every breakpoint with its state (enabled, disabled, pending)."),
	), s.handleBreakpointList)

	s.mcpServer.AddTool(mcp.NewTool("breakpoint_enable",
		mcp.WithDescription("Enable a disabled breakpoint."),
		mcp.WithString("breakpointId",
			mcp.Required(),
			mcp.Description("Breakpoint ID, e.g. 'bp-1'"),
		),
	), s.handleBreakpointEnable)

	s.mcpServer.AddTool(mcp.NewTool("breakpoint_disable",
		mcp.WithDescription("Disable a breakpoint without removing it."),
		mcp.WithString("breakpointId",
			mcp.Required(),
			mcp.Description("Breakpoint ID, e.g. 'bp-1'"),
		),
	), s.handleBreakpointDisable)
}

// Watchpoint Tools

func (s *Server) registerWatchpointTools() {
	s.mcpServer.AddTool(mcp.NewTool("watchpoint_access",
		mcp.WithDescription("Break whenever a field is read. Deferred if the class is not loaded yet."),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class declaring the field"),
		),
		mcp.WithString("fieldName",
			mcp.Required(),
			mcp.Description("Field to watch"),
		),
	), s.handleWatchpointAccess)

	s.mcpServer.AddTool(mcp.NewTool("watchpoint_modification",
		mcp.WithDescription("Break whenever a field is written. The stop reason carries the value being assigned. Deferred if the class is not loaded yet."),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class declaring the field"),
		),
		mcp.WithString("fieldName",
			mcp.Required(),
			mcp.Description("Field to watch"),
		),
	), s.handleWatchpointModification)

	s.mcpServer.AddTool(mcp.NewTool("watchpoint_remove",
		mcp.WithDescription("Remove a watchpoint by ID."),
		mcp.WithString("watchpointId",
			mcp.Required(),
			mcp.Description("Watchpoint ID, e.g. 'wa-1' or 'wm-1'"),
		),
	), s.handleWatchpointRemove)

	s.mcpServer.AddTool(mcp.NewTool("watchpoint_list",
		mcp.WithDescription("List every watchpoint with its state."),
	), s.handleWatchpointList)
}

// Method Breakpoint Tools

func (s *Server) registerMethodBreakpointTools() {
	s.mcpServer.AddTool(mcp.NewTool("method_entry_break",
		mcp.WithDescription("Break when a method of a class is entered. Use '*' as methodName to break on every method of the class."),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class name"),
		),
		mcp.WithString("methodName",
			mcp.Required(),
			mcp.Description("Method name, or '*' for all methods"),
		),
	), s.handleMethodEntryBreak)

	s.mcpServer.AddTool(mcp.NewTool("method_exit_break",
		mcp.WithDescription("Break when a method of a class returns. Use '*' as methodName for every method of the class."),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class name"),
		),
		mcp.WithString("methodName",
			mcp.Required(),
			mcp.Description("Method name, or '*' for all methods"),
		),
	), s.handleMethodExitBreak)

	s.mcpServer.AddTool(mcp.NewTool("method_breakpoint_remove",
		mcp.WithDescription("Remove a method breakpoint by ID."),
		mcp.WithString("breakpointId",
			mcp.Required(),
			mcp.Description("Method breakpoint ID, e.g. 'me-1' or 'mx-1'"),
		),
	), s.handleMethodBreakpointRemove)

	s.mcpServer.AddTool(mcp.NewTool("method_breakpoint_list",
		mcp.WithDescription("List every method breakpoint with its state."),
	), s.handleMethodBreakpointList)
}

// Exception Breakpoint Tools

func (s *Server) registerExceptionTools() {
	s.mcpServer.AddTool(mcp.NewTool("exception_break_on",
		mcp.WithDescription("Break when an exception is thrown. Use '*' or omit exceptionClass for all exceptions. At least one of caught/uncaught must be true."),
		mcp.WithString("exceptionClass",
			mcp.Description("Fully qualified exception class (must extend Throwable), or '*' for all"),
		),
		mcp.WithBoolean("caught",
			mcp.Description("Break on caught exceptions (default: true)"),
		),
		mcp.WithBoolean("uncaught",
			mcp.Description("Break on uncaught exceptions (default: true)"),
		),
	), s.handleExceptionBreakOn)

	s.mcpServer.AddTool(mcp.NewTool("exception_break_remove",
		mcp.WithDescription("Remove an exception breakpoint by ID."),
		mcp.WithString("breakpointId",
			mcp.Required(),
			mcp.Description("Exception breakpoint ID, e.g. 'ex-1'"),
		),
	), s.handleExceptionBreakRemove)

	s.mcpServer.AddTool(mcp.NewTool("exception_break_list",
		mcp.WithDescription("List every exception breakpoint."),
	), s.handleExceptionBreakList)

	s.mcpServer.AddTool(mcp.NewTool("exception_info",
		mcp.WithDescription("Show details of the current exception when stopped at an exception breakpoint: type, message, throw and catch locations."),
	), s.handleExceptionInfo)
}

// Inspection Tools

func (s *Server) registerInspectionTools() {
	s.mcpServer.AddTool(mcp.NewTool("threads_list",
		mcp.WithDescription("List every thread with ID, name, status and suspension state."),
	), s.handleThreadsList)

	s.mcpServer.AddTool(mcp.NewTool("thread_suspend",
		mcp.WithDescription("Suspend a single thread."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID to suspend"),
		),
	), s.handleThreadSuspend)

	s.mcpServer.AddTool(mcp.NewTool("thread_resume",
		mcp.WithDescription("Resume a single thread."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID to resume"),
		),
	), s.handleThreadResume)

	s.mcpServer.AddTool(mcp.NewTool("stack_frames",
		mcp.WithDescription("Show the call stack of a suspended thread."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("maxFrames",
			mcp.Description("Maximum frames to show (default: 25)"),
		),
	), s.handleStackFrames)

	s.mcpServer.AddTool(mcp.NewTool("variables_local",
		mcp.WithDescription("List visible local variables of a stack frame with their values. Object values carry an @id usable with object_fields and invoke_method."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
	), s.handleVariablesLocal)

	s.mcpServer.AddTool(mcp.NewTool("variables_arguments",
		mcp.WithDescription("List method arguments of a stack frame with their values."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
	), s.handleVariablesArguments)

	s.mcpServer.AddTool(mcp.NewTool("variable_inspect",
		mcp.WithDescription("Inspect a single variable by name in a stack frame."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
		mcp.WithString("variableName",
			mcp.Required(),
			mcp.Description("Variable name"),
		),
	), s.handleVariableInspect)

	s.mcpServer.AddTool(mcp.NewTool("this_object",
		mcp.WithDescription("Show the 'this' reference of a stack frame (null in static code)."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
	), s.handleThisObject)

	s.mcpServer.AddTool(mcp.NewTool("object_fields",
		mcp.WithDescription("List the fields of an object by its @id with their values."),
		mcp.WithNumber("objectId",
			mcp.Required(),
			mcp.Description("Object unique ID from variables_local or this_object"),
		),
	), s.handleObjectFields)

	s.mcpServer.AddTool(mcp.NewTool("array_elements",
		mcp.WithDescription("Read a slice of an array by its @id. Out-of-range reads past the end are truncated."),
		mcp.WithNumber("objectId",
			mcp.Required(),
			mcp.Description("Array unique ID"),
		),
		mcp.WithNumber("startIndex",
			mcp.Description("First element to read (default: 0)"),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of elements to read (default: 20)"),
		),
	), s.handleArrayElements)

	s.mcpServer.AddTool(mcp.NewTool("async_stack_trace",
		mcp.WithDescription("Show async/reactive stacks across threads: groups suspended threads that belong to the same pool or async framework."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread ID to analyze (omit to use the first suspended thread)"),
		),
		mcp.WithBoolean("showAllSuspended",
			mcp.Description("Also show every other suspended thread (default: false)"),
		),
		mcp.WithNumber("maxFrames",
			mcp.Description("Maximum frames per thread (default: 15)"),
		),
	), s.handleAsyncStackTrace)
}

// Mutation and Evaluation Tools

func (s *Server) registerMutationTools() {
	s.mcpServer.AddTool(mcp.NewTool("evaluate_expression",
		mcp.WithDescription("Evaluate an expression in a suspended frame. Supports: literals, 'this', variables, field chains (a.b.c), method calls (a.b()). Thread MUST be suspended first."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Expression to evaluate"),
		),
	), s.handleEvaluateExpression)

	s.mcpServer.AddTool(mcp.NewTool("set_variable",
		mcp.WithDescription("Assign a new value to a local variable. Primitives take bare literals, strings quoted or bare text, object references '@id'."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
		mcp.WithString("variableName",
			mcp.Required(),
			mcp.Description("Variable to assign"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value: '42', '\"text\"', 'true', 'null', or '@123'"),
		),
	), s.handleSetVariable)

	s.mcpServer.AddTool(mcp.NewTool("invoke_method",
		mcp.WithDescription("Invoke an instance method on an object. Thread MUST be suspended. Get objectId from variables_local. Args as JSON array: '[1, \"str\"]'."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("objectId",
			mcp.Required(),
			mcp.Description("Object unique ID to invoke on"),
		),
		mcp.WithString("methodName",
			mcp.Required(),
			mcp.Description("Method to invoke"),
		),
		mcp.WithString("methodSignature",
			mcp.Description("JVM signature to disambiguate overloads, e.g. '(II)I'"),
		),
		mcp.WithString("args",
			mcp.Description("JSON array of arguments; object references as '@id' strings"),
		),
	), s.handleInvokeMethod)

	s.mcpServer.AddTool(mcp.NewTool("invoke_static",
		mcp.WithDescription("Invoke a static method on a class. Thread MUST be suspended. Args as JSON array."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithString("className",
			mcp.Required(),
			mcp.Description("Fully qualified class name"),
		),
		mcp.WithString("methodName",
			mcp.Required(),
			mcp.Description("Static method to invoke"),
		),
		mcp.WithString("methodSignature",
			mcp.Description("JVM signature to disambiguate overloads"),
		),
		mcp.WithString("args",
			mcp.Description("JSON array of arguments; object references as '@id' strings"),
		),
	), s.handleInvokeStatic)
}

// Watch Expression Tools

func (s *Server) registerWatchTools() {
	s.mcpServer.AddTool(mcp.NewTool("watch_add",
		mcp.WithDescription("Add a persistent watch expression, re-evaluated on demand with watch_evaluate_all."),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Expression to watch, e.g. 'this.counter' or 'list.size()'"),
		),
	), s.handleWatchAdd)

	s.mcpServer.AddTool(mcp.NewTool("watch_remove",
		mcp.WithDescription("Remove a watch expression by ID."),
		mcp.WithString("watchId",
			mcp.Required(),
			mcp.Description("Watch ID, e.g. 'w-1'"),
		),
	), s.handleWatchRemove)

	s.mcpServer.AddTool(mcp.NewTool("watch_list",
		mcp.WithDescription("List every watch expression with its last value or error."),
	), s.handleWatchList)

	s.mcpServer.AddTool(mcp.NewTool("watch_evaluate_all",
		mcp.WithDescription("Re-evaluate every watch expression against a suspended frame."),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("Thread ID (must be suspended)"),
		),
		mcp.WithNumber("frameIndex",
			mcp.Description("Stack frame index, 0 = top (default: 0)"),
		),
	), s.handleWatchEvaluateAll)
}

// Event Monitoring Tools

func (s *Server) registerEventTools() {
	s.mcpServer.AddTool(mcp.NewTool("class_prepare_watch",
		mcp.WithDescription("Record class prepare events without stopping the VM. Drain with events_pending."),
		mcp.WithString("classFilter",
			mcp.Description("Class name pattern, e.g. 'com.example.*' (default: all classes)"),
		),
	), s.handleClassPrepareWatch)

	s.mcpServer.AddTool(mcp.NewTool("class_unload_watch",
		mcp.WithDescription("Record class unload events without stopping the VM."),
		mcp.WithString("classFilter",
			mcp.Description("Class name pattern (default: all classes)"),
		),
	), s.handleClassUnloadWatch)

	s.mcpServer.AddTool(mcp.NewTool("thread_start_watch",
		mcp.WithDescription("Record thread start events without stopping the VM."),
	), s.handleThreadStartWatch)

	s.mcpServer.AddTool(mcp.NewTool("thread_death_watch",
		mcp.WithDescription("Record thread death events without stopping the VM."),
	), s.handleThreadDeathWatch)

	s.mcpServer.AddTool(mcp.NewTool("monitor_contention_watch",
		mcp.WithDescription("Record monitor contended-enter events (lock contention) without stopping the VM."),
	), s.handleMonitorContentionWatch)

	s.mcpServer.AddTool(mcp.NewTool("events_pending",
		mcp.WithDescription("Drain captured monitoring events (class prepare/unload, thread lifecycle, contention). At most the last 100 events are kept."),
		mcp.WithBoolean("peek",
			mcp.Description("Look at the events without removing them (default: false)"),
		),
	), s.handleEventsPending)

	s.mcpServer.AddTool(mcp.NewTool("event_watch_remove",
		mcp.WithDescription("Remove an event watch subscription by ID."),
		mcp.WithString("watchId",
			mcp.Required(),
			mcp.Description("Watch ID, e.g. 'cp-1', 'ts-2'"),
		),
	), s.handleEventWatchRemove)
}
