package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"vine-and-dine/server/logging"
)

// JSONSink appends events to a file as JSON lines, batching writes to keep
// the tick thread's sink worker cheap.
type JSONSink struct {
	mu       sync.Mutex
	file     *os.File
	pending  []logging.Event
	maxBatch int
}

func NewJSONSink(cfg logging.JSONConfig) (*JSONSink, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("json sink requires a file path")
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open json sink: %w", err)
	}
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 32
	}
	return &JSONSink{file: file, maxBatch: maxBatch}, nil
}

func (s *JSONSink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, event)
	if len(s.pending) < s.maxBatch {
		return nil
	}
	return s.flushLocked()
}

func (s *JSONSink) flushLocked() error {
	if s.file == nil || len(s.pending) == 0 {
		s.pending = s.pending[:0]
		return nil
	}
	for _, event := range s.pending {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if _, err := s.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *JSONSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	flushErr := s.flushLocked()
	if s.file != nil {
		if err := s.file.Close(); err != nil && flushErr == nil {
			flushErr = err
		}
		s.file = nil
	}
	return flushErr
}
