package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"reelsmith/internal/daemon"
	"reelsmith/internal/job"
	"reelsmith/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Reelsmith", srv); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	summary := status.Orchestrator

	counts := make(map[string]int, len(summary.StatusCounts))
	for k, v := range summary.StatusCounts {
		counts[string(k)] = v
	}

	*resp = StatusResponse{
		Running:          status.Running,
		LastError:        summary.LastError,
		ActiveJobID:      summary.ActiveJobID,
		ActiveStage:      summary.ActiveStage,
		ActiveSince:      summary.ActiveSince,
		ActiveEstimate:   summary.ActiveEstimate,
		StatusCounts:     counts,
		PendingEstimates: summary.PendingEstimates,
		OutputRoot:       status.OutputRoot,
		LockPath:         status.LockFilePath,
		HistoryPath:      status.HistoryPath,
		PID:              os.Getpid(),
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Resume(req ResumeRequest, resp *ResumeResponse) error {
	reset, err := s.daemon.Resume(s.ctx, strings.TrimSpace(req.JobID))
	if err != nil {
		return err
	}
	resp.Reset = reset
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	var statuses []job.Status
	for _, raw := range req.Statuses {
		status, ok := job.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}
	jobs, err := s.daemon.ListJobs(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Jobs = make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, summarize(j))
	}
	return nil
}

func (s *service) Integrity(_ IntegrityRequest, resp *IntegrityResponse) error {
	results, err := s.daemon.ScanIntegrity(s.ctx)
	if err != nil {
		return err
	}
	resp.Results = make([]JobHealthReport, 0, len(results))
	for _, r := range results {
		resp.Results = append(resp.Results, JobHealthReport{
			JobID:   r.JobID,
			Status:  string(r.Status),
			Healthy: r.Healthy,
			Missing: r.Missing,
			Detail:  r.Detail,
		})
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func summarize(j *job.Job) JobSummary {
	summary := JobSummary{
		ID:              j.ID,
		Status:          string(j.Status),
		LinkCount:       j.LinkCount(),
		ProgressPercent: j.ProgressPercent,
		ProgressMessage: j.ProgressMessage,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		Folder:          j.FolderRef,
	}
	if len(j.Errors) > 0 {
		summary.LastError = j.Errors[len(j.Errors)-1]
	}
	return summary
}
