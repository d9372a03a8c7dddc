package debug

import (
	"strconv"
	"strings"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Thread name fragments that identify async framework worker pools.
var asyncThreadPatterns = []string{
	"ForkJoinPool",
	"parallel-",
	"boundedElastic-",
	"reactor-",
	"rxjava-",
	"Executor",
	"pool-",
	"AsyncTask",
	"CompletableFuture",
	"http-nio-",
	"tomcat-",
	"undertow-",
}

// asyncFrameMarkers flag stack frames belonging to async plumbing.
var asyncFrameMarkers = []string{
	"java.util.concurrent.CompletableFuture",
	"java.util.concurrent.FutureTask",
	"reactor.core",
	"io.reactivex",
	"kotlinx.coroutines",
}

// asyncScanDepth bounds how many top frames the framework detector reads.
const asyncScanDepth = 10

// AsyncStackSummary is the read-only picture of an asynchronous task:
// a primary thread plus the suspended threads heuristically related to it.
// Nothing in the target is mutated to produce it.
type AsyncStackSummary struct {
	Primary   jdi.ThreadRef
	Framework string
	Related   []jdi.ThreadRef
}

// AsyncStackSummary groups suspended threads likely to belong to the same
// logical async task, by shared pool-name prefix or by async framework
// markers in the top frames. threadID <= 0 picks the first suspended
// non-system thread.
func (s *Session) AsyncStackSummary(threadID int64) (*AsyncStackSummary, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	primary, err := s.FirstSuspendedThread(threadID)
	if err != nil {
		return nil, err
	}

	summary := &AsyncStackSummary{
		Primary:   primary,
		Framework: detectAsyncFramework(primary),
	}

	poolPrefix := extractPoolPrefix(primary.Name())
	for _, t := range target.AllThreads() {
		if t.UniqueID() == primary.UniqueID() || !t.IsSuspended() || isSystemThread(t) {
			continue
		}
		if poolPrefix != "" && strings.HasPrefix(t.Name(), poolPrefix) {
			summary.Related = append(summary.Related, t)
			continue
		}
		for _, pattern := range asyncThreadPatterns {
			if strings.Contains(t.Name(), pattern) {
				summary.Related = append(summary.Related, t)
				break
			}
		}
	}

	// Cap the related set so the rendering stays digestible.
	if len(summary.Related) > 5 {
		summary.Related = summary.Related[:5]
	}
	return summary, nil
}

// detectAsyncFramework names the async framework a thread appears to run
// under, from its name or its top frames. "" when nothing is recognised.
func detectAsyncFramework(thread jdi.ThreadRef) string {
	name := thread.Name()
	switch {
	case strings.Contains(name, "ForkJoinPool"):
		return "Java ForkJoinPool (CompletableFuture)"
	case strings.Contains(name, "boundedElastic"), strings.Contains(name, "parallel"):
		return "Project Reactor"
	case strings.Contains(name, "rxjava"), strings.Contains(name, "RxComputation"):
		return "RxJava"
	case strings.Contains(name, "http-nio"):
		return "Tomcat NIO"
	case strings.Contains(name, "undertow"):
		return "Undertow Async"
	}

	if !thread.IsSuspended() {
		return ""
	}
	frames, err := thread.Frames()
	if err != nil {
		return ""
	}
	if len(frames) > asyncScanDepth {
		frames = frames[:asyncScanDepth]
	}
	for _, frame := range frames {
		className := frame.Location().DeclaringType().Name()
		switch {
		case strings.Contains(className, "CompletableFuture"):
			return "Java CompletableFuture"
		case strings.Contains(className, "reactor.core"):
			return "Project Reactor"
		case strings.Contains(className, "io.reactivex"):
			return "RxJava"
		case strings.Contains(className, "kotlinx.coroutines"):
			return "Kotlin Coroutines"
		}
	}
	return ""
}

// extractPoolPrefix turns "ForkJoinPool-1-worker-3" into
// "ForkJoinPool-1-worker"; "" when the name has no numeric worker suffix.
func extractPoolPrefix(threadName string) string {
	lastDash := strings.LastIndex(threadName, "-")
	if lastDash <= 0 {
		return ""
	}
	if _, err := strconv.Atoi(threadName[lastDash+1:]); err != nil {
		return ""
	}
	return threadName[:lastDash]
}

// IsAsyncFrame reports whether a frame's class belongs to async plumbing;
// used to highlight frames in rendered stacks.
func IsAsyncFrame(className string) bool {
	for _, marker := range asyncFrameMarkers {
		if strings.HasPrefix(className, marker) {
			return true
		}
	}
	return strings.Contains(className, "Lambda") ||
		strings.Contains(className, "$$") ||
		strings.Contains(strings.ToLower(className), "async")
}
