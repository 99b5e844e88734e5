package store

import (
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/domain"
)

// Bucket layout of the image database. BucketImages holds the records keyed
// by composite id; the idx buckets are non-unique secondary indexes whose
// keys are "<field>\x00<id>".
var (
	BucketImages       = []byte("images")
	BucketIdxCode      = []byte("idx_code")
	BucketIdxSupplier  = []byte("idx_supplier")
	BucketIdxTimestamp = []byte("idx_timestamp")
)

var allBuckets = [][]byte{BucketImages, BucketIdxCode, BucketIdxSupplier, BucketIdxTimestamp}

// Conn owns the process-wide bbolt handle for the blob store. It is injected
// into the BlobStore rather than held as package state so reconnection logic
// can be exercised with throwaway files in tests.
type Conn struct {
	path string

	mu sync.Mutex
	db *bolt.DB
}

func NewConn(path string) *Conn {
	return &Conn{path: path}
}

// Open opens the database file and creates missing buckets. Existing data is
// never touched by schema initialization.
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked()
}

func (c *Conn) openLocked() error {
	db, err := bolt.Open(c.path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return domain.ConnectionErrorf(err, "open image db %s", c.path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return domain.ConnectionErrorf(err, "initialize image db schema")
	}
	c.db = db
	return nil
}

// Close releases the handle. Safe to call when never opened.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Ensure health-checks the connection with a count probe and transparently
// reopens it once when the probe fails. Callers only see a ConnectionError
// when the reopen itself fails.
func (c *Conn) Ensure() (*bolt.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil && c.probeLocked() == nil {
		return c.db, nil
	}

	zap.L().Info("image db connection unavailable, reopening", zap.String("path", c.path))
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
	if err := c.openLocked(); err != nil {
		return nil, err
	}
	return c.db, nil
}

func (c *Conn) probeLocked() error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(BucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		_ = b.Stats().KeyN
		return nil
	})
}
