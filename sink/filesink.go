// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sink provides a [sitepool.Sink] that appends results to a file as
// a stream of YAML documents.
package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/petenewcomb/sitepool"
)

// Record is the document written for one unit.
type Record[R any] struct {
	Seq     int      `yaml:"seq"`
	Round   int      `yaml:"round"`
	Sites   []int    `yaml:"sites,flow"`
	Configs []string `yaml:"configs,flow"`
	Value   R        `yaml:"value"`
}

// FileSink accumulates results in memory and appends them to a file on
// Flush. The file is created on the first flush that has something to
// write.
type FileSink[R any] struct {
	path    string
	logger  *zap.Logger
	pending []Record[R]
	written int
	flushes int
}

// NewFileSink returns a sink appending to path. A nil logger means zap.L().
func NewFileSink[R any](path string, logger *zap.Logger) *FileSink[R] {
	if logger == nil {
		logger = zap.L()
	}
	return &FileSink[R]{path: path, logger: logger}
}

// Path returns the output file name.
func (s *FileSink[R]) Path() string {
	return s.path
}

// Written returns how many records have been flushed so far.
func (s *FileSink[R]) Written() int {
	return s.written
}

// Flushes returns how many flushes wrote at least one record.
func (s *FileSink[R]) Flushes() int {
	return s.flushes
}

func (s *FileSink[R]) Accumulate(results []sitepool.WorkResult[R]) error {
	for _, r := range results {
		ps := r.Unit.Points()
		s.pending = append(s.pending, Record[R]{
			Seq:     r.Seq,
			Round:   r.Round,
			Sites:   ps.Sites(),
			Configs: ps.ConfigIDs(),
			Value:   r.Value,
		})
	}
	return nil
}

// Flush appends the accumulated records and syncs the file. It does nothing
// when there is nothing accumulated.
func (s *FileSink[R]) Flush(ctx context.Context) (err error) {
	if len(s.pending) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	// Each document carries its own start marker so that documents from
	// separate flushes stay separate.
	w := bufio.NewWriter(f)
	for _, rec := range s.pending {
		b, err := yaml.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encoding unit #%d: %w", rec.Seq, err)
		}
		w.WriteString("---\n")
		w.Write(b)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return err
	}
	s.written += len(s.pending)
	s.flushes++
	s.logger.Info("Flushed results",
		zap.String("path", s.path),
		zap.Int("units", len(s.pending)),
		zap.Int("total", s.written))
	return nil
}

func (s *FileSink[R]) ResetAccumulator() {
	s.pending = nil
}

// ReadRecords decodes every record document from r.
func ReadRecords[R any](r io.Reader) ([]Record[R], error) {
	dec := yaml.NewDecoder(r)
	var out []Record[R]
	for {
		var rec Record[R]
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
