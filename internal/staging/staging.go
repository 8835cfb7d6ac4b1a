// Package staging persists processed questions to an append-only JSONL
// file before ingestion, so a batch can be replayed into the store
// independently of the process that produced it.
package staging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"quizforge/internal/processor"
)

// Writer appends processed questions to a JSONL staging file. Records
// whose content hash is already present are skipped, so re-running a
// collection against the same file never duplicates entries.
type Writer struct {
	f      *os.File
	staged map[string]struct{}
}

// NewWriter opens (or creates) the staging file at path and indexes the
// content hashes already present.
func NewWriter(path string) (*Writer, error) {
	staged, err := indexHashes(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open staging file: %w", err)
	}

	return &Writer{f: f, staged: staged}, nil
}

// Append writes the record unless its hash is already staged. It
// reports whether the record was written.
func (w *Writer) Append(q processor.ProcessedQuestion) (bool, error) {
	if _, ok := w.staged[q.ContentHash]; ok {
		return false, nil
	}

	line, err := json.Marshal(q)
	if err != nil {
		return false, fmt.Errorf("marshal staged question: %w", err)
	}
	line = append(line, '\n')

	if _, err := w.f.Write(line); err != nil {
		return false, fmt.Errorf("append to staging file: %w", err)
	}
	w.staged[q.ContentHash] = struct{}{}
	return true, nil
}

// AppendAll appends every record in the batch, returning how many were
// newly written.
func (w *Writer) AppendAll(qs []processor.ProcessedQuestion) (int, error) {
	written := 0
	for _, q := range qs {
		ok, err := w.Append(q)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// Close flushes and closes the staging file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// indexHashes reads an existing staging file and collects the content
// hashes it already holds. A missing file yields an empty index.
func indexHashes(path string) (map[string]struct{}, error) {
	staged := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return staged, nil
		}
		return nil, fmt.Errorf("read staging file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var q processor.ProcessedQuestion
		if err := json.Unmarshal(sc.Bytes(), &q); err != nil {
			return nil, fmt.Errorf("corrupt staging line: %w", err)
		}
		staged[q.ContentHash] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan staging file: %w", err)
	}
	return staged, nil
}

// Reader streams records back out of a staging file.
type Reader struct {
	f  *os.File
	sc *bufio.Scanner
}

// NewReader opens the staging file at path for replay.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open staging file: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{f: f, sc: sc}, nil
}

// Next returns the next staged record, or io.EOF when exhausted.
func (r *Reader) Next() (processor.ProcessedQuestion, error) {
	var q processor.ProcessedQuestion
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return q, fmt.Errorf("scan staging file: %w", err)
		}
		return q, io.EOF
	}
	if err := json.Unmarshal(r.sc.Bytes(), &q); err != nil {
		return q, fmt.Errorf("corrupt staging line: %w", err)
	}
	return q, nil
}

// All reads every remaining record.
func (r *Reader) All() ([]processor.ProcessedQuestion, error) {
	var out []processor.ProcessedQuestion
	for {
		q, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, q)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
