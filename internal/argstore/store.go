// Package argstore implements the signature store (C1): a durable
// mapping from (graph, node) to a signature blob, plus a parallel
// measurement blob per node. Grounded on rflow/_argument.py's
// ArgumentSignatureDB (lmdb-backed in the original; badger here).
package argstore

import (
	"context"
	"path/filepath"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/otaviog/rflow/internal/rerrors"
)

// sharedEnvs mirrors the original's class-level __g_env cache: repeated
// Open calls against the same absolute path share one Badger handle.
var sharedEnvs sync.Map // map[string]*Store

// Store is the signature/measurement key-value store for one graph
// directory's ".rflow.db" database.
type Store struct {
	path string
	db   *badger.DB
	log  hclog.Logger
	mu   sync.Mutex
}

// Open returns the Store for the given absolute database path, creating
// and caching a new Badger handle on first use. log may be nil.
func Open(path string, log hclog.Logger) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &rerrors.IOError{Op: "argstore.Open", Err: err}
	}
	if v, ok := sharedEnvs.Load(abs); ok {
		return v.(*Store), nil
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	opts := badger.DefaultOptions(abs).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &rerrors.IOError{Op: "argstore.Open", Err: err}
	}
	s := &Store{path: abs, db: db, log: log.Named("argstore")}
	actual, loaded := sharedEnvs.LoadOrStore(abs, s)
	if loaded {
		_ = db.Close()
		return actual.(*Store), nil
	}
	return s, nil
}

func sigKey(graph, node string) []byte { return []byte(graph + ":" + node) }
func measKey(graph, node string) []byte { return []byte(graph + ":" + node + ":__meas__") }

// Blob is the self-describing encoding unit stored for both signatures
// and measurements: a plain string-keyed map of opaque values.
type Blob = map[string]any

func (s *Store) get(ctx context.Context, key []byte) (Blob, error) {
	var out Blob
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			out = Blob{}
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded Blob
			if decErr := msgpack.Unmarshal(val, &decoded); decErr != nil {
				// Malformed blob: treated as "no prior signature", never
				// an error, mirroring the original's
				// `except AttributeError: return {}`.
				s.log.Warn("discarding malformed blob", "key", string(key), "error", decErr)
				out = Blob{}
				return nil
			}
			out = decoded
			return nil
		})
	})
	if err != nil {
		return nil, &rerrors.IOError{Op: "argstore.get", Err: err}
	}
	if out == nil {
		out = Blob{}
	}
	return out, nil
}

func (s *Store) put(_ context.Context, key []byte, blob Blob) error {
	data, err := msgpack.Marshal(blob)
	if err != nil {
		return &rerrors.IOError{Op: "argstore.put/encode", Err: err}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return &rerrors.IOError{Op: "argstore.put", Err: err}
	}
	return nil
}

// GetSignature returns the persisted signature blob for (graph, node),
// or an empty map if absent or malformed.
func (s *Store) GetSignature(ctx context.Context, graph, node string) (Blob, error) {
	return s.get(ctx, sigKey(graph, node))
}

// PutSignature atomically persists the signature blob for (graph, node).
func (s *Store) PutSignature(ctx context.Context, graph, node string, blob Blob) error {
	return s.put(ctx, sigKey(graph, node), blob)
}

// GetMeasurement returns the persisted measurement blob for (graph, node).
func (s *Store) GetMeasurement(ctx context.Context, graph, node string) (Blob, error) {
	return s.get(ctx, measKey(graph, node))
}

// SetMeasurement persists the measurement blob for (graph, node).
func (s *Store) SetMeasurement(ctx context.Context, graph, node string, blob Blob) error {
	return s.put(ctx, measKey(graph, node), blob)
}

// Clear removes both the signature and measurement entries for a node.
func (s *Store) Clear(_ context.Context, graph, node string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(sigKey(graph, node)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(measKey(graph, node)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return &rerrors.IOError{Op: "argstore.Clear", Err: err}
	}
	return nil
}

// Close closes the underlying Badger handle. Tests that want isolation
// should use distinct temp directories rather than calling Close on a
// shared-cache Store used elsewhere in the same process.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sharedEnvs.Delete(s.path)
	return s.db.Close()
}
