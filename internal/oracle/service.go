package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/rxharness/internal/models"
)

// Request is one remote judgment request.
type Request struct {
	System string // System instruction
	User   string // User payload, UserPreamble followed by the rendered batch
}

// Response is the raw text returned by a transport.
type Response struct {
	Text  string
	Usage string // Transport specific usage summary, may be empty
}

// Transport carries a Request to the verdict service.
type Transport interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Logger is the logging surface the service reports progress on.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// ServiceConfig configures the structured text oracle.
type ServiceConfig struct {
	SystemPrompt string // System instruction sent with every batch
	LogDir       string // Raw response and error logs; empty disables them
	Set          string // Test set name used as log file prefix
	RunID        string // Written into diagnostics headers
}

// Service is the StructuredTextOracle: it sends rendered batches through a
// Transport, persists raw diagnostics and resolves the parsed verdicts.
// Build one per run and share it across workers.
type Service struct {
	transport Transport
	cfg       ServiceConfig
	logger    Logger
}

// NewService creates a Service. logger may be nil.
func NewService(transport Transport, cfg ServiceConfig, logger Logger) *Service {
	return &Service{transport: transport, cfg: cfg, logger: logger}
}

// Name returns the strategy name.
func (s *Service) Name() string { return "structured-text" }

// ResetLogDir clears and recreates the diagnostics directory.
func (s *Service) ResetLogDir() error {
	if s.cfg.LogDir == "" {
		return nil
	}
	if err := os.RemoveAll(s.cfg.LogDir); err != nil {
		return fmt.Errorf("clear oracle log dir: %w", err)
	}
	if err := os.MkdirAll(s.cfg.LogDir, 0755); err != nil {
		return fmt.Errorf("create oracle log dir: %w", err)
	}
	return nil
}

// Judge sends batch to the service. A transport failure is logged to
// <set>_batch_<n>_error.log and returned. Otherwise the raw response is logged
// to <set>_batch_<n>_response.log and every requested id is resolved.
func (s *Service) Judge(ctx context.Context, batch models.OracleBatch) ([]models.Verdict, error) {
	content := batch.Content
	if content == "" {
		content = RenderBatch(batch.Entries)
	}

	s.infof("Analyzing batch %d (%d tests)", batch.Number, len(batch.Entries))
	resp, err := s.transport.Complete(ctx, Request{
		System: s.cfg.SystemPrompt,
		User:   UserPreamble + content,
	})
	if err != nil {
		s.writeLog(batch.Number, "error", fmt.Sprintf(
			"An error occurred during the analysis call for batch %d:\n\n%v\n", batch.Number, err))
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("--- API Response ---\n")
	sb.WriteString(resp.Text)
	if resp.Usage != "" {
		sb.WriteString("\n\n--- Usage Info ---\n")
		sb.WriteString(resp.Usage)
	}
	s.writeLog(batch.Number, "response", sb.String())

	verdicts := Resolve(batch, ParseResponse(resp.Text))
	for _, v := range verdicts {
		if v.Reason == NoVerdictReason {
			s.warnf("No verdict returned for %s in batch %d, assuming failure", v.CaseID, batch.Number)
		}
	}
	return verdicts, nil
}

func (s *Service) writeLog(batch int, kind, body string) {
	if s.cfg.LogDir == "" {
		return
	}
	set := s.cfg.Set
	if set == "" {
		set = "all"
	}
	name := fmt.Sprintf("%s_batch_%d_%s.log", strings.ReplaceAll(set, "/", "_"), batch, kind)
	header := ""
	if s.cfg.RunID != "" {
		header = "run: " + s.cfg.RunID + "\n"
	}
	if err := os.MkdirAll(s.cfg.LogDir, 0755); err != nil {
		s.warnf("could not create oracle log dir %s: %v", s.cfg.LogDir, err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.cfg.LogDir, name), []byte(header+body), 0644); err != nil {
		s.warnf("could not write oracle log %s: %v", name, err)
	}
}

func (s *Service) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
	}
}

func (s *Service) warnf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warnf(format, args...)
	}
}
