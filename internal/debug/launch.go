package debug

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/errors"
)

// outputRing drains a subprocess stream on a background goroutine and
// keeps the last N lines for launch-failure diagnostics. Draining is
// mandatory: an undrained pipe eventually blocks the debuggee.
type outputRing struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newOutputRing(max int) *outputRing {
	return &outputRing{max: max}
}

// drain consumes the reader until EOF, retaining the tail.
func (o *outputRing) drain(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		o.mu.Lock()
		o.lines = append(o.lines, scanner.Text())
		if len(o.lines) > o.max {
			o.lines = o.lines[len(o.lines)-o.max:]
		}
		o.mu.Unlock()
	}
}

// Tail returns the retained output as one string.
func (o *outputRing) Tail() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Join(o.lines, "\n")
}

// freePort asks the kernel for an unused local TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %v", l.Addr())
	}
	return addr.Port, nil
}

// pollPort waits until host:port accepts TCP connections.
func pollPort(host string, port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	addr := addrString(host, port)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("port %s not accepting connections after %s", addr, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func addrString(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// Launch spawns a JVM running mainClass with the JDWP agent on a free
// local port, waits for the port, then attaches. On any failure the
// subprocess is force-killed.
func (s *Session) Launch(mainClass, classpath, jvmArgs string, suspendOnStart bool) error {
	if s.IsConnected() {
		s.mu.Lock()
		details := s.connDetails
		s.mu.Unlock()
		return errors.AlreadyConnected(details)
	}

	port, err := freePort()
	if err != nil {
		return errors.PortUnavailable(err)
	}

	suspendFlag := "n"
	if suspendOnStart {
		suspendFlag = "y"
	}

	args := []string{
		fmt.Sprintf("-agentlib:jdwp=transport=dt_socket,server=y,suspend=%s,address=127.0.0.1:%d", suspendFlag, port),
	}
	if classpath != "" {
		args = append(args, "-cp", classpath)
	}
	for _, opt := range strings.Fields(jvmArgs) {
		args = append(args, opt)
	}
	args = append(args, mainClass)

	//nolint:gosec // G204: launching a user-requested debuggee is the point
	cmd := exec.Command(s.cfg.JavaPath, args...)
	output := newOutputRing(100)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.LaunchFailed(mainClass, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.LaunchFailed(mainClass, err)
	}

	if err := cmd.Start(); err != nil {
		return errors.LaunchFailed(mainClass, err)
	}
	go output.drain(stdout)
	go output.drain(stderr)

	s.log.WithFields(logrus.Fields{"main": mainClass, "port": port, "pid": cmd.Process.Pid}).Info("debuggee launched")

	if err := pollPort("127.0.0.1", port, s.cfg.LaunchPollTimeout); err != nil {
		_ = cmd.Process.Kill()
		return errors.LaunchFailed(mainClass, fmt.Errorf("%v; process output: %s", err, output.Tail()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		_ = cmd.Process.Kill()
		return errors.AlreadyConnected(s.connDetails)
	}

	target, err := s.adapter.ConnectSocket("127.0.0.1", port)
	if err != nil {
		_ = cmd.Process.Kill()
		return errors.LaunchFailed(mainClass, fmt.Errorf("attach failed: %v; process output: %s", err, output.Tail()))
	}

	s.installTargetLocked(target, cmd, output,
		ConnLaunch, fmt.Sprintf("Launched: %s (port %d)", mainClass, port))
	return nil
}

// GradleTestOptions configure a gradle-assisted test launch.
type GradleTestOptions struct {
	ProjectDir  string
	TestFilter  string
	Port        int
	WaitTimeout time.Duration
	GradleArgs  []string
	UseWrapper  bool
	Clean       bool
}

// LaunchGradleTest runs `gradle test --debug-jvm` (which makes the test
// JVM wait on the JDWP port) and attaches once the port is listening.
func (s *Session) LaunchGradleTest(opts GradleTestOptions) error {
	if s.IsConnected() {
		s.mu.Lock()
		details := s.connDetails
		s.mu.Unlock()
		return errors.AlreadyConnected(details)
	}

	if opts.Port == 0 {
		opts.Port = s.cfg.Gradle.Port
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = s.cfg.Gradle.WaitTimeout
	}

	bin := s.cfg.Gradle.GradlePath
	if opts.UseWrapper {
		bin = "./gradlew"
	}

	args := []string{}
	if opts.Clean {
		args = append(args, "clean")
	}
	args = append(args, "test", "--debug-jvm")
	if opts.TestFilter != "" {
		args = append(args, "--tests", opts.TestFilter)
	}
	args = append(args, opts.GradleArgs...)

	//nolint:gosec // G204: running the project's build is the point
	cmd := exec.Command(bin, args...)
	if opts.ProjectDir != "" {
		cmd.Dir = opts.ProjectDir
	}
	output := newOutputRing(100)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.LaunchFailed("gradle test", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.LaunchFailed("gradle test", err)
	}

	if err := cmd.Start(); err != nil {
		return errors.LaunchFailed("gradle test", err)
	}
	go output.drain(stdout)
	go output.drain(stderr)

	s.log.WithFields(logrus.Fields{"port": opts.Port, "pid": cmd.Process.Pid}).Info("gradle test launched")

	if err := pollPort("127.0.0.1", opts.Port, opts.WaitTimeout); err != nil {
		_ = cmd.Process.Kill()
		return errors.LaunchFailed("gradle test", fmt.Errorf("%v; gradle output: %s", err, output.Tail()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		_ = cmd.Process.Kill()
		return errors.AlreadyConnected(s.connDetails)
	}

	target, err := s.adapter.ConnectSocket("127.0.0.1", opts.Port)
	if err != nil {
		_ = cmd.Process.Kill()
		return errors.LaunchFailed("gradle test", fmt.Errorf("attach failed: %v; gradle output: %s", err, output.Tail()))
	}

	s.installTargetLocked(target, cmd, output,
		ConnLaunch, fmt.Sprintf("Gradle test (port %d)", opts.Port))
	return nil
}
