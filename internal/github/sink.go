package github

import (
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// Sink receives advisory progress and error notifications from a call.
// Notifications are visibility only: nothing a sink does may change control
// flow or error classification.
type Sink interface {
	Info(msg string)
	Error(msg string)
	Progress(done, total int)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) Info(string)       {}
func (NopSink) Error(string)      {}
func (NopSink) Progress(int, int) {}

// LoggerSink forwards notifications to a structured logger.
type LoggerSink struct {
	Logger *logging.Logger
	Tool   string
}

func (s LoggerSink) Info(msg string) {
	if s.Logger != nil {
		s.Logger.Info(msg, zap.String("tool", s.Tool))
	}
}

func (s LoggerSink) Error(msg string) {
	if s.Logger != nil {
		s.Logger.Error(msg, zap.String("tool", s.Tool))
	}
}

func (s LoggerSink) Progress(done, total int) {
	if s.Logger != nil {
		s.Logger.Debug("progress", zap.String("tool", s.Tool), zap.Int("done", done), zap.Int("total", total))
	}
}

// RecorderSink captures notifications for assertions in tests.
type RecorderSink struct {
	Infos      []string
	Errors     []string
	Progresses [][2]int
}

func (s *RecorderSink) Info(msg string)  { s.Infos = append(s.Infos, msg) }
func (s *RecorderSink) Error(msg string) { s.Errors = append(s.Errors, msg) }
func (s *RecorderSink) Progress(done, total int) {
	s.Progresses = append(s.Progresses, [2]int{done, total})
}
