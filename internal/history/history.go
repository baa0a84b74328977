// Package history journals estimation runs in BadgerDB. Run metadata is
// stored as JSON; the sampled points are stored as zstd-compressed columns
// under a separate key so listing runs never touches the traces.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo"
)

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New("history: run not found")

var (
	runPrefix   = []byte("run/")
	tracePrefix = []byte("trace/")
)

// Run is one journaled estimation.
type Run struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Dim      int       `json:"dim"`
	Expr     string    `json:"expr"`
	Bounds   []float64 `json:"bounds"`
	N        int       `json:"n"`
	Estimate float64   `json:"estimate"`
	StdErr   float64   `json:"std_err"`
	Failures int       `json:"failures"`
	Exact    *float64  `json:"exact,omitempty"`
}

// Trace holds a run's samples column-wise: x and f(x) in 1D; x, y and
// f(x,y) in 2D.
type Trace struct {
	Columns [][]float64
}

// Run1D builds a journal entry and trace from a 1D result.
func Run1D(res *montecarlo.Result1D, exact *float64) (*Run, *Trace) {
	xs := make([]float64, len(res.Points))
	ys := make([]float64, len(res.Points))
	for i, p := range res.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	run := &Run{
		Dim:      1,
		Expr:     res.Expr,
		Bounds:   []float64{res.A, res.B},
		N:        res.N,
		Estimate: res.Estimate,
		StdErr:   res.StdErr,
		Failures: res.Failures,
		Exact:    exact,
	}
	return run, &Trace{Columns: [][]float64{xs, ys}}
}

// Run2D builds a journal entry and trace from a 2D result.
func Run2D(res *montecarlo.Result2D) (*Run, *Trace) {
	xs := make([]float64, len(res.Points))
	ys := make([]float64, len(res.Points))
	zs := make([]float64, len(res.Points))
	for i, p := range res.Points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	run := &Run{
		Dim:      2,
		Expr:     res.Expr,
		Bounds:   []float64{res.AX, res.BX, res.CY, res.DY},
		N:        res.N,
		Estimate: res.Estimate,
		StdErr:   res.StdErr,
		Failures: res.Failures,
	}
	return run, &Trace{Columns: [][]float64{xs, ys, zs}}
}

// Options configures Open.
type Options struct {
	Path             string
	InMemory         bool
	CompressionLevel int
	Logger           *zap.Logger
}

// Store is a run journal. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	codec  *Codec
	logger *zap.Logger
}

// Open opens or creates the journal at opts.Path.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	codec, err := NewCodec(opts.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}
	return &Store{db: db, codec: codec, logger: logger}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.codec.Close()
	return s.db.Close()
}

type tracePayload struct {
	Count   int      `json:"count"`
	Columns [][]byte `json:"columns"`
}

// Save assigns run an ID and timestamp and writes it with its trace in one
// transaction. trace may be nil.
func (s *Store) Save(ctx context.Context, run *Run, trace *Trace) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate run id: %w", err)
	}
	run.ID = id.String()
	if run.Time.IsZero() {
		run.Time = time.Now().UTC()
	}
	meta, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run: %w", err)
	}

	var payload []byte
	if trace != nil {
		tp := tracePayload{Columns: make([][]byte, len(trace.Columns))}
		for i, col := range trace.Columns {
			if i == 0 {
				tp.Count = len(col)
			} else if len(col) != tp.Count {
				return "", fmt.Errorf("trace column %d has %d values, want %d", i, len(col), tp.Count)
			}
			tp.Columns[i] = s.codec.EncodeFloats(col)
		}
		if payload, err = json.Marshal(tp); err != nil {
			return "", fmt.Errorf("failed to marshal trace: %w", err)
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key(runPrefix, run.ID), meta); err != nil {
			return err
		}
		if payload != nil {
			return txn.Set(key(tracePrefix, run.ID), payload)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to write run: %w", err)
	}
	s.logger.Debug("run saved",
		zap.String("id", run.ID),
		zap.String("expr", run.Expr),
		zap.Int("trace_bytes", len(payload)),
	)
	return run.ID, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var run Run
	err := s.read(key(runPrefix, id), func(val []byte) error {
		return json.Unmarshal(val, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Trace returns the decompressed samples of a run.
func (s *Store) Trace(ctx context.Context, id string) (*Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tp tracePayload
	err := s.read(key(tracePrefix, id), func(val []byte) error {
		return json.Unmarshal(val, &tp)
	})
	if err != nil {
		return nil, err
	}
	tr := &Trace{Columns: make([][]float64, len(tp.Columns))}
	for i, data := range tp.Columns {
		col, err := s.codec.DecodeFloats(data, tp.Count)
		if err != nil {
			return nil, fmt.Errorf("trace column %d: %w", i, err)
		}
		tr.Columns[i] = col
	}
	return tr, nil
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = runPrefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Run IDs are UUIDv7, so key order is creation order.
		for it.Seek(append(append([]byte{}, runPrefix...), 0xff)); it.ValidForPrefix(runPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var run Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				return err
			}
			runs = append(runs, &run)
			if limit > 0 && len(runs) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) read(k []byte, fn func(val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(fn)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	return err
}

func key(prefix []byte, id string) []byte {
	return append(append([]byte{}, prefix...), id...)
}
