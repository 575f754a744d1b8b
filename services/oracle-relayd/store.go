package oraclerelayd

import (
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRelayed = []byte("relayed")

// SeenStore records which (user, submission timestamp) cycles this relay has
// already settled, so a rerun under the same scheduler slot becomes a no-op
// instead of a guaranteed no-pending failure.
type SeenStore struct {
	db *bbolt.DB
}

// OpenSeenStore opens (or creates) the persistence database.
func OpenSeenStore(path string) (*SeenStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRelayed)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SeenStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SeenStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func cycleKey(user string, submittedAt int64) []byte {
	return []byte(user + ":" + strconv.FormatInt(submittedAt, 10))
}

// Handled reports whether the submission cycle has already been relayed.
func (s *SeenStore) Handled(user string, submittedAt int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("seen store not initialised")
	}
	var handled bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		handled = tx.Bucket(bucketRelayed).Get(cycleKey(user, submittedAt)) != nil
		return nil
	})
	return handled, err
}

// Mark records a submission cycle as relayed.
func (s *SeenStore) Mark(user string, submittedAt int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("seen store not initialised")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRelayed).Put(cycleKey(user, submittedAt), []byte("relayed"))
	})
}
