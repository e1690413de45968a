package kernel

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// TraceEvent is one interpreter step, recorded when a VM runs with tracing
// enabled: which instruction executed (its textual form), at what pc, in
// which function, and the stack height just before the instruction ran.
type TraceEvent struct {
	Invocation string
	PC         int
	FuncIndex  int
	Opcode     string
	StackDepth int
}

// TraceSink accepts trace events as the interpreter dispatches instructions.
// A nil TraceSink is a valid no-op; callers that don't want tracing simply
// leave vm.VM.Trace unset.
type TraceSink interface {
	Record(ev TraceEvent) error
}

// DuckDBTrace is a TraceSink that appends every event to a DuckDB table,
// making per-instruction execution traces queryable with SQL after the run
// (grouping by opcode, plotting stack depth over pc, and so on) rather than
// only readable as a flat printed log.
type DuckDBTrace struct {
	db *sql.DB
}

// OpenDuckDBTrace opens (creating if necessary) a trace sink backed by the
// DuckDB database at path. Use "" for an in-memory, run-scoped trace.
func OpenDuckDBTrace(path string) (*DuckDBTrace, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("kernel: opening trace store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS trace_events (
		invocation VARCHAR,
		pc INTEGER,
		func_index INTEGER,
		opcode VARCHAR,
		stack_depth INTEGER
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kernel: creating trace table: %w", err)
	}
	return &DuckDBTrace{db: db}, nil
}

// Close closes the underlying database handle.
func (t *DuckDBTrace) Close() error {
	return t.db.Close()
}

// Record implements TraceSink.
func (t *DuckDBTrace) Record(ev TraceEvent) error {
	_, err := t.db.Exec(
		`INSERT INTO trace_events (invocation, pc, func_index, opcode, stack_depth) VALUES (?, ?, ?, ?, ?)`,
		ev.Invocation, ev.PC, ev.FuncIndex, ev.Opcode, ev.StackDepth,
	)
	if err != nil {
		return fmt.Errorf("kernel: recording trace event: %w", err)
	}
	return nil
}

// PrintTrace is a TraceSink that passes each event to Write as a single
// line ending in the instruction's textual form, the diagnostic output
// described for the host entry point's tracing mode. It does not depend on
// DuckDB; with -trace, cmd/tvmrun feeds every event both to a DuckDBTrace
// and to a PrintTrace writing to stderr.
type PrintTrace struct {
	Write func(line string)
}

// Record implements TraceSink.
func (p PrintTrace) Record(ev TraceEvent) error {
	p.Write(fmt.Sprintf("%s pc=%d func=%d depth=%d %s", ev.Invocation, ev.PC, ev.FuncIndex, ev.StackDepth, ev.Opcode))
	return nil
}
