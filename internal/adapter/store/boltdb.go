package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"postenrich/internal/domain"
)

var (
	bucketExtractions = []byte("extractions")
	bucketMeta        = []byte("meta")
)

// BoltCache persists extracted metadata keyed by a hash of the post text, so
// unchanged posts are not sent to the model again on the next run.
type BoltCache struct {
	db *bbolt.DB
}

func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketExtractions, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCache{db: db}, nil
}

func textKey(text string) []byte {
	hash := sha256.Sum256([]byte(text))
	return []byte(hex.EncodeToString(hash[:16]))
}

func (c *BoltCache) Get(text string) (domain.ExtractedMetadata, bool, error) {
	var meta domain.ExtractedMetadata
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketExtractions).Get(textKey(text))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("corrupt cache entry: %w", err)
		}
		found = true
		return nil
	})
	return meta, found, err
}

func (c *BoltCache) Put(text string, meta domain.ExtractedMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExtractions).Put(textKey(text), data)
	})
}

// Count returns the number of cached extractions.
func (c *BoltCache) Count() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketExtractions).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
