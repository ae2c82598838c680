// ABOUTME: Wire log package for recording every JSON-RPC frame to SQLite
// ABOUTME: Provides async frame recording with parsed metadata and query capabilities

package wirelog

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harper/agentwire/internal/jsonrpc"
	"github.com/harper/agentwire/internal/logger"
)

//go:embed schema.sql
var schemaSQL string

// bufferSize bounds how many frames can queue for the writer before
// RecordFrame starts dropping.
const bufferSize = 256

type Log struct {
	conn *sql.DB

	mu     sync.Mutex
	closed bool

	frames chan frame
	done   chan struct{}
}

type frame struct {
	direction string
	payload   []byte
}

// Open opens or creates the SQLite wire log, creating parent directories
// as needed, and starts the background writer.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create wire log directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wire log: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Create tables
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Wire log initialized at %s", path)

	l := &Log{
		conn:   conn,
		frames: make(chan frame, bufferSize),
		done:   make(chan struct{}),
	}
	go l.writeLoop()
	return l, nil
}

// Close stops the writer, flushes queued frames, and closes the database.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.frames)
	l.mu.Unlock()

	<-l.done
	return l.conn.Close()
}

// RecordFrame queues one raw frame for recording. It never blocks: when the
// writer falls behind the frame is dropped with a warning.
func (l *Log) RecordFrame(direction string, payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.frames <- frame{direction: direction, payload: buf}:
	default:
		logger.Warn("Wire log buffer full, dropping %s frame", direction)
	}
}

func (l *Log) writeLoop() {
	defer close(l.done)
	for f := range l.frames {
		l.insert(f)
	}
}

func (l *Log) insert(f frame) {
	// Parse the frame to extract useful fields
	var kind, method string
	var jsonrpcID *int64

	if env, err := jsonrpc.Decode(f.payload); err == nil {
		kind = env.Kind().String()
		method = env.Method
		if id, ok := env.IDInt64(); ok {
			jsonrpcID = &id
		}
	}

	_, err := l.conn.Exec(
		`INSERT INTO frames (direction, kind, method, jsonrpc_id, raw_frame)
		 VALUES (?, ?, ?, ?, ?)`,
		f.direction, kind, method, jsonrpcID, string(f.payload),
	)
	if err != nil {
		logger.Warn("Failed to record frame: %v", err)
	}
}

// Frame represents a logged wire frame
type Frame struct {
	ID        int64
	Direction string
	Kind      string
	Method    string
	JSONRPCId *int64
	RawFrame  string
	Timestamp time.Time
}

// Recent retrieves the most recent frames, newest first.
func (l *Log) Recent(limit int) ([]Frame, error) {
	rows, err := l.conn.Query(
		`SELECT id, direction, kind, method, jsonrpc_id, raw_frame, timestamp
		 FROM frames ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var kind sql.NullString
		var method sql.NullString
		var jsonrpcID sql.NullInt64

		err := rows.Scan(&f.ID, &f.Direction, &kind, &method, &jsonrpcID, &f.RawFrame, &f.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}

		if kind.Valid {
			f.Kind = kind.String
		}
		if method.Valid {
			f.Method = method.String
		}
		if jsonrpcID.Valid {
			f.JSONRPCId = &jsonrpcID.Int64
		}

		frames = append(frames, f)
	}

	return frames, rows.Err()
}

// CountByMethod returns how many frames were recorded per method, for
// notifications and requests. Frames without a method are skipped.
func (l *Log) CountByMethod() (map[string]int64, error) {
	rows, err := l.conn.Query(
		`SELECT method, COUNT(*) FROM frames
		 WHERE method != '' GROUP BY method`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count frames: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var method string
		var n int64
		if err := rows.Scan(&method, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[method] = n
	}

	return counts, rows.Err()
}
