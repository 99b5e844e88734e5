package store

import (
	"bytes"
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const idxSep = "\x00"

// BlobStore persists product images keyed by composite id. Every operation
// health-checks the connection first; writes maintain the secondary indexes
// on code, supplier and timestamp.
type BlobStore struct {
	conn *Conn
}

func NewBlobStore(conn *Conn) *BlobStore {
	return &BlobStore{conn: conn}
}

// Put upserts the image under code+supplier. A record already stored at the
// same composite key is overwritten, never duplicated.
func (s *BlobStore) Put(ctx context.Context, code, supplier, file string) error {
	db, err := s.conn.Ensure()
	if err != nil {
		return err
	}

	rec := domain.ImageRecord{
		ID:        domain.CompositeKey(code, supplier),
		Code:      code,
		Supplier:  supplier,
		File:      file,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.StorageErrorf(err, "marshal image %s", rec.ID)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if err := dropIndexEntries(tx, rec.ID); err != nil {
			return err
		}
		if err := tx.Bucket(BucketImages).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		return putIndexEntries(tx, rec)
	})
	if err != nil {
		return domain.StorageErrorf(err, "put image %s", rec.ID)
	}
	return nil
}

// Get is a point lookup by composite key. A missing record returns (nil, nil).
func (s *BlobStore) Get(ctx context.Context, code, supplier string) (*domain.ImageRecord, error) {
	db, err := s.conn.Ensure()
	if err != nil {
		return nil, err
	}

	id := domain.CompositeKey(code, supplier)
	var rec *domain.ImageRecord
	err = db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(BucketImages).Get([]byte(id))
		if data == nil {
			return nil
		}
		rec = new(domain.ImageRecord)
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, domain.StorageErrorf(err, "get image %s", id)
	}
	return rec, nil
}

// GetAll scans every image record. Ordering follows the underlying bucket.
func (s *BlobStore) GetAll(ctx context.Context) ([]domain.ImageRecord, error) {
	db, err := s.conn.Ensure()
	if err != nil {
		return nil, err
	}

	var records []domain.ImageRecord
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketImages).ForEach(func(k, v []byte) error {
			var rec domain.ImageRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, domain.StorageErrorf(err, "scan images")
	}
	return records, nil
}

// ListByCode returns every image whose code matches, across all suppliers,
// resolved through the code index.
func (s *BlobStore) ListByCode(ctx context.Context, code string) ([]domain.ImageRecord, error) {
	db, err := s.conn.Ensure()
	if err != nil {
		return nil, err
	}

	var records []domain.ImageRecord
	prefix := []byte(code + idxSep)
	err = db.View(func(tx *bolt.Tx) error {
		images := tx.Bucket(BucketImages)
		c := tx.Bucket(BucketIdxCode).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id := k[len(prefix):]
			data := images.Get(id)
			if data == nil {
				continue
			}
			var rec domain.ImageRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, domain.StorageErrorf(err, "list images by code %s", code)
	}
	return records, nil
}

// Delete removes the record at the composite id. Deleting a missing key is
// not an error.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	db, err := s.conn.Ensure()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if err := dropIndexEntries(tx, id); err != nil {
			return err
		}
		return tx.Bucket(BucketImages).Delete([]byte(id))
	})
	if err != nil {
		return domain.StorageErrorf(err, "delete image %s", id)
	}
	return nil
}

// Clear removes every image record and index entry.
func (s *BlobStore) Clear(ctx context.Context) error {
	db, err := s.conn.Ensure()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.StorageErrorf(err, "clear images")
	}
	zap.L().Info("image store cleared")
	return nil
}

// Rekey moves the image stored under the old composite key to the new one in
// a single transaction. A missing source is a no-op, not an error.
func (s *BlobStore) Rekey(ctx context.Context, oldCode, oldSupplier, newCode, newSupplier string) error {
	db, err := s.conn.Ensure()
	if err != nil {
		return err
	}

	oldID := domain.CompositeKey(oldCode, oldSupplier)
	newID := domain.CompositeKey(newCode, newSupplier)
	if oldID == newID {
		return nil
	}

	err = db.Update(func(tx *bolt.Tx) error {
		images := tx.Bucket(BucketImages)
		data := images.Get([]byte(oldID))
		if data == nil {
			return nil
		}
		var rec domain.ImageRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.ID = newID
		rec.Code = newCode
		rec.Supplier = newSupplier
		rec.Timestamp = time.Now()

		moved, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := dropIndexEntries(tx, oldID); err != nil {
			return err
		}
		if err := dropIndexEntries(tx, newID); err != nil {
			return err
		}
		if err := images.Delete([]byte(oldID)); err != nil {
			return err
		}
		if err := images.Put([]byte(newID), moved); err != nil {
			return err
		}
		return putIndexEntries(tx, rec)
	})
	if err != nil {
		return domain.StorageErrorf(err, "rekey image %s -> %s", oldID, newID)
	}
	return nil
}

// Count reports the number of stored images.
func (s *BlobStore) Count(ctx context.Context) (int, error) {
	db, err := s.conn.Ensure()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(BucketImages).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, domain.StorageErrorf(err, "count images")
	}
	return n, nil
}

func indexKeys(rec domain.ImageRecord) map[string][]byte {
	return map[string][]byte{
		string(BucketIdxCode):      []byte(rec.Code + idxSep + rec.ID),
		string(BucketIdxSupplier):  []byte(rec.Supplier + idxSep + rec.ID),
		string(BucketIdxTimestamp): []byte(rec.Timestamp.UTC().Format(time.RFC3339Nano) + idxSep + rec.ID),
	}
}

func putIndexEntries(tx *bolt.Tx, rec domain.ImageRecord) error {
	for bucket, key := range indexKeys(rec) {
		if err := tx.Bucket([]byte(bucket)).Put(key, []byte(rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

// dropIndexEntries removes the index rows belonging to the record currently
// stored at id, if any.
func dropIndexEntries(tx *bolt.Tx, id string) error {
	data := tx.Bucket(BucketImages).Get([]byte(id))
	if data == nil {
		return nil
	}
	var rec domain.ImageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	for bucket, key := range indexKeys(rec) {
		if err := tx.Bucket([]byte(bucket)).Delete(key); err != nil {
			return err
		}
	}
	return nil
}
