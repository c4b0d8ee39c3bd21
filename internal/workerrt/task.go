package workerrt

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
)

// grace is how long a command is given to exit after SIGTERM before the
// runtime escalates to SIGKILL.
const grace = 5 * time.Second

// emitter is how a running task reports progress back to the orchestrator.
type emitter interface {
	emitStatus(update channel.StatusUpdate)
	emitLog(chunk channel.LogChunk)
}

// runShellTask executes each command in order under env, streaming
// output as log_chunk frames and STAGE/STEP events.
func runShellTask(ctx context.Context, task *channel.WireShell, envVars map[string]string, em emitter) (success bool, exitCode int32, details string) {
	env := buildEnv(envVars)

	for i, cmdline := range task.Commands {
		if i == 0 {
			em.emitStatus(channel.StatusUpdate{EventType: channel.WireStageStarted, Message: "shell task started", Timestamp: time.Now().Unix()})
		}
		em.emitStatus(channel.StatusUpdate{EventType: channel.WireStepStarted, Message: cmdline, Timestamp: time.Now().Unix()})

		code, err := runOneCommand(ctx, cmdline, env, em)

		em.emitStatus(channel.StatusUpdate{EventType: channel.WireStepCompleted, Message: cmdline, Timestamp: time.Now().Unix()})

		if err != nil || code != 0 {
			em.emitStatus(channel.StatusUpdate{EventType: channel.WireStageCompleted, Message: "shell task failed", Timestamp: time.Now().Unix()})
			detail := ""
			if err != nil {
				detail = err.Error()
			}
			return false, int32(code), detail
		}

		if i == len(task.Commands)-1 {
			em.emitStatus(channel.StatusUpdate{EventType: channel.WireStageCompleted, Message: "shell task completed", Timestamp: time.Now().Unix()})
		}
	}
	return true, 0, ""
}

// runScriptTask materializes the script body to a temp file and executes
// it under sh.
func runScriptTask(ctx context.Context, task *channel.WireScript, envVars map[string]string, em emitter) (success bool, exitCode int32, details string) {
	f, err := os.CreateTemp("", "hodei-script-*.sh")
	if err != nil {
		return false, -1, "failed to materialize script: " + err.Error()
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(task.ScriptContent); err != nil {
		f.Close()
		return false, -1, "failed to write script: " + err.Error()
	}
	f.Close()
	os.Chmod(f.Name(), 0o755)

	em.emitStatus(channel.StatusUpdate{EventType: channel.WireStageStarted, Message: "script task started", Timestamp: time.Now().Unix()})
	code, err := runOneCommand(ctx, "sh "+f.Name(), buildEnv(envVars), em)
	em.emitStatus(channel.StatusUpdate{EventType: channel.WireStageCompleted, Message: "script task completed", Timestamp: time.Now().Unix()})

	if err != nil || code != 0 {
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		return false, int32(code), detail
	}
	return true, 0, ""
}

func buildEnv(vars map[string]string) []string {
	env := os.Environ()
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env
}

// runOneCommand runs cmdline under sh -c, streaming stdout/stderr as
// log_chunk frames. On ctx cancellation it sends SIGTERM, escalating to
// SIGKILL after grace.
func runOneCommand(ctx context.Context, cmdline string, env []string, em emitter) (int, error) {
	cmd := exec.Command("sh", "-c", cmdline)
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, err
	}

	if err := cmd.Start(); err != nil {
		return -1, err
	}

	var streams sync.WaitGroup
	streams.Add(2)
	go func() { defer streams.Done(); streamLines(stdout, channel.WireStdout, em) }()
	go func() { defer streams.Done(); streamLines(stderr, channel.WireStderr, em) }()

	waitErr := make(chan error, 1)
	go func() {
		streams.Wait()
		waitErr <- cmd.Wait()
	}()

	select {
	case err := <-waitErr:
		if err == nil {
			return 0, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	case <-ctx.Done():
		terminateGracefully(cmd)
		stdout.Close()
		stderr.Close()
		err := <-waitErr
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), ctx.Err()
		}
		return -1, ctx.Err()
	}
}

func terminateGracefully(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	cmd.Process.Signal(syscall.SIGTERM)
	timer := time.NewTimer(grace)
	defer timer.Stop()
	<-timer.C
	cmd.Process.Signal(syscall.SIGKILL)
}

// streamLines reads r in line-sized chunks, preserving the trailing
// newline on each chunk (bufio.Scanner strips it, but the wire content
// is expected to match what the command actually wrote).
func streamLines(r io.Reader, stream channel.WireStream, em emitter) {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			em.emitLog(channel.LogChunk{Stream: stream, Content: append([]byte(nil), line...)})
		}
		if err != nil {
			return
		}
	}
}
