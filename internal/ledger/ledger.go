// Package ledger persists the set of already-ingested lead identifiers as a
// newline-delimited append-only file, the pipeline's sole dedup state.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"
)

// Ledger is the processed-lead set. The file is read fully at load time;
// appends go to both the in-memory set and the file. A failed file append
// degrades the ledger to memory-only for the rest of the run: same-run
// dedup still holds, but the next run will reprocess everything since the
// last successful write. Not safe for concurrent use; runs against the same
// ledger file must be serialized externally.
type Ledger struct {
	path     string
	seen     map[string]struct{}
	degraded bool
	log      *logger.Logger
}

// Load reads the ledger file into memory. A missing file starts an empty
// ledger; an existing but unreadable file is a ledger I/O error, since
// ingesting without the historical set would duplicate every known lead.
func Load(path string, log *logger.Logger) (*Ledger, error) {
	l := &Ledger{
		path: path,
		seen: make(map[string]struct{}),
		log:  log,
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		log.LedgerError("load", path, err)
		return nil, apperr.LedgerIO("open ledger", err).WithOp("ledger.Load")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			l.seen[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		log.LedgerError("load", path, err)
		return nil, apperr.LedgerIO("read ledger", err).WithOp("ledger.Load")
	}

	return l, nil
}

// Contains reports whether the lead ID was already ingested.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// Len returns the number of recorded identifiers.
func (l *Ledger) Len() int {
	return len(l.seen)
}

// Degraded reports whether a file append has failed this run.
func (l *Ledger) Degraded() bool {
	return l.degraded
}

// Append records a lead ID. The in-memory set is updated unconditionally so
// the current run never double-processes; a file write failure is reported
// as a ledger I/O error after marking the ledger degraded.
func (l *Ledger) Append(id string) error {
	l.seen[id] = struct{}{}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.degraded = true
		l.log.LedgerError("append", l.path, err)
		return apperr.LedgerIO("open ledger for append", err).WithOp("ledger.Append")
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, id); err != nil {
		l.degraded = true
		l.log.LedgerError("append", l.path, err)
		return apperr.LedgerIO("append to ledger", err).WithOp("ledger.Append")
	}

	return nil
}
