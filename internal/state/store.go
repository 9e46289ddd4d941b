package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/tidwall/btree"
)

const keyPrefix = "pending:"

var ErrNotFound = errors.New("state: not found")

// Record is the minimal pending-operation state that must survive the
// host process being torn down while an OS capture UI is in front.
// Token and EventName may legitimately be empty after a rebuild from an
// older on-disk format; callers handle that as a degraded path.
type Record struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Token     string    `json:"token,omitempty"`
	EventName string    `json:"event_name,omitempty"`
	DestPath  string    `json:"dest_path,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Multiple  bool      `json:"multiple,omitempty"`
	MaxItems  int       `json:"max_items,omitempty"`
	MaxDur    int       `json:"max_duration,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists pending records in badger and keeps a createdAt-ordered
// index in memory for age-based sweeps.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	mu    sync.Mutex
	index *btree.Map[string, string] // "<createdAtNanos>:<id>" -> id
}

func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", dir, err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		index:  btree.NewMap[string, string](32),
	}
	if err := s.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func indexKey(r Record) string {
	return fmt.Sprintf("%020d:%s", r.CreatedAt.UnixNano(), r.ID)
}

func (s *Store) rebuildIndex() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					s.logger.Warn("state: dropping unreadable record", "key", string(it.Item().Key()), "err", err)
					return nil
				}
				s.mu.Lock()
				s.index.Set(indexKey(rec), rec.ID)
				s.mu.Unlock()
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Put(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("state: put %s: %w", rec.ID, err)
	}
	s.mu.Lock()
	s.index.Set(indexKey(rec), rec.ID)
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) Delete(id string) error {
	rec, err := s.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + id))
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.index.Delete(indexKey(rec))
	s.mu.Unlock()
	return nil
}

// All returns every pending record ordered by creation time.
func (s *Store) All() ([]Record, error) {
	ids := s.orderedIDs()
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// SweepOlderThan deletes records created before now-age and returns
// them so the caller can reap their destination files. The ordered
// index lets the scan stop at the first young record.
func (s *Store) SweepOlderThan(age time.Duration) ([]Record, error) {
	cutoff := time.Now().Add(-age)

	var stale []string
	s.mu.Lock()
	s.index.Scan(func(key, id string) bool {
		var nanos int64
		if _, err := fmt.Sscanf(key, "%d:", &nanos); err != nil {
			return true
		}
		if time.Unix(0, nanos).After(cutoff) {
			return false
		}
		stale = append(stale, id)
		return true
	})
	s.mu.Unlock()

	var swept []Record
	for _, id := range stale {
		rec, err := s.Get(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return swept, err
		}
		if err := s.Delete(id); err != nil {
			return swept, err
		}
		swept = append(swept, rec)
	}
	return swept, nil
}

func (s *Store) orderedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, s.index.Len())
	s.index.Scan(func(_, id string) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}
