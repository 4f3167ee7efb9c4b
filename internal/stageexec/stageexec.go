package stageexec

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"reelsmith/internal/job"
	"reelsmith/internal/logclass"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// killGrace is how long a cancelled stage process gets to exit before it is
// killed outright.
const killGrace = 5 * time.Second

// errorTailSize is how many error-signal lines are retained for the failure
// message.
const errorTailSize = 5

// Request describes one stage invocation against a job folder.
type Request struct {
	Stage   string
	Command string
	Job     *job.Job
	Logger  *slog.Logger
	// OnProgress receives advisory percent/message updates parsed from the
	// executor's output. May be nil.
	OnProgress func(percent int, message string)
	// Events receives every classified output line. Sends never block; a full
	// channel drops events rather than stalling the executor. May be nil.
	Events chan<- logclass.Event
}

// percentPattern extracts the last percent figure on a progress line.
var percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)

// Invoke runs the external stage command for a job, streaming its output.
// Stdout is the executor's status channel and is always informational;
// stderr lines are classified, since media tools write progress meters
// there. Error signals are appended to the job's error record as they
// arrive, independent of the exit code, and their tail becomes the failure
// message on a nonzero exit. Context cancellation terminates the process
// and surfaces ctx.Err so callers can tell timeout from stop.
func Invoke(ctx context.Context, req Request) error {
	if req.Job == nil {
		return errors.New("stage request missing job")
	}
	if strings.TrimSpace(req.Command) == "" {
		return services.Wrap(services.ErrConfiguration, req.Stage, "invoke", "no command configured", nil)
	}
	logger := logging.NewComponentLogger(req.Logger, "stage-exec").With(
		logging.String(logging.FieldStage, req.Stage),
		logging.String(logging.FieldJobID, req.Job.ID),
	)

	parts := strings.Fields(req.Command)
	args := append(parts[1:], req.Job.FolderRef)

	cmd := exec.CommandContext(ctx, parts[0], args...) //nolint:gosec
	cmd.Dir = req.Job.FolderRef
	cmd.Cancel = func() error { return cmd.Process.Kill() }
	cmd.WaitDelay = killGrace

	env, err := stageEnv(req)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, req.Stage, "invoke", "encode stage environment", err)
	}
	cmd.Env = env

	stageLog, err := openStageLog(req.Job.FolderRef, req.Stage)
	if err != nil {
		logger.Warn("stage log unavailable", logging.Error(err))
	}
	defer func() {
		if stageLog != nil {
			_ = stageLog.Close()
		}
	}()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("command", parts[0]),
	)
	started := time.Now()

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrStageFailure, req.Stage, "invoke", "start command", err)
	}

	// mu serializes line handling across the two pipes: the job record and
	// the progress callback are not safe for concurrent use.
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errorTail []string
	)

	handleLine := func(line string, fromStderr bool) {
		mu.Lock()
		defer mu.Unlock()
		if stageLog != nil {
			_, _ = fmt.Fprintln(stageLog, line)
		}
		event := logclass.NewEvent(req.Stage, line)
		if !fromStderr {
			// Only stderr text can carry an error signal.
			event.Kind = logclass.KindInfo
		}
		if event.Text == "" {
			return
		}
		if req.Events != nil {
			select {
			case req.Events <- event:
			default:
			}
		}
		switch event.Kind {
		case logclass.KindErrorSignal:
			errorTail = append(errorTail, event.Text)
			if len(errorTail) > errorTailSize {
				errorTail = errorTail[len(errorTail)-errorTailSize:]
			}
			req.Job.AppendError(event.Text)
			logger.Warn("stage output", logging.String("line", event.Text))
		default:
			logger.Debug("stage output", logging.String("line", event.Text))
			reportProgress(req, event.Text)
		}
	}

	scan := func(r io.Reader, fromStderr bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			handleLine(scanner.Text(), fromStderr)
		}
	}

	wg.Add(2)
	go scan(stdout, false)
	go scan(stderr, true)
	wg.Wait()

	waitErr := cmd.Wait()
	elapsed := time.Since(started)

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("stage interrupted",
			logging.String(logging.FieldEventType, "stage_interrupted"),
			logging.Duration("elapsed", elapsed),
		)
		return ctxErr
	}
	if waitErr != nil {
		message := failureMessage(errorTail)
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			message = fmt.Sprintf("%s (exit code %d)", message, exitErr.ExitCode())
		}
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_message", message),
			logging.Duration("elapsed", elapsed),
			logging.Error(waitErr),
		)
		return services.Wrap(services.ErrStageFailure, req.Stage, "invoke", message, waitErr)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

// stageEnv builds the executor environment: the job identity plus the frozen
// settings and link list, both as JSON.
func stageEnv(req Request) ([]string, error) {
	settings, err := json.Marshal(req.Job.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	links, err := json.Marshal(req.Job.Links)
	if err != nil {
		return nil, fmt.Errorf("marshal links: %w", err)
	}
	return append(os.Environ(),
		"REELSMITH_JOB_ID="+req.Job.ID,
		"REELSMITH_STAGE="+req.Stage,
		"REELSMITH_JOB_DIR="+req.Job.FolderRef,
		"REELSMITH_SETTINGS="+string(settings),
		"REELSMITH_LINKS="+string(links),
	), nil
}

func openStageLog(folderRef, stage string) (*os.File, error) {
	path := filepath.Join(folderRef, "logs", stage+".log")
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
}

func reportProgress(req Request, line string) {
	if req.OnProgress == nil {
		return
	}
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value < 0 || value > 100 {
		return
	}
	req.OnProgress(int(value), line)
}

func failureMessage(errorTail []string) string {
	if len(errorTail) == 0 {
		return "exited with failure"
	}
	return strings.Join(errorTail, "; ")
}
