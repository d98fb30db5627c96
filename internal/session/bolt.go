package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var bucketName = []byte("sessions")

// BoltIndex keeps session metadata in a local bolt database, one JSON value
// per session id.
type BoltIndex struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create dir for %s", path)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt db %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sessions bucket")
	}
	return &BoltIndex{db: db}, nil
}

func (b *BoltIndex) Put(ctx context.Context, s Session) error {
	val, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "encode session %s", s.ID)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(s.ID), val)
	})
	return errors.Wrapf(err, "put session %s", s.ID)
}

func (b *BoltIndex) Get(ctx context.Context, id string) (Session, error) {
	var s Session
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &s)
	})
	if err == ErrNotFound {
		return Session{}, err
	}
	return s, errors.Wrapf(err, "get session %s", id)
}

func (b *BoltIndex) List(ctx context.Context) ([]Session, error) {
	var out []Session
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var s Session
			if err := json.Unmarshal(v, &s); err != nil {
				return errors.Wrapf(err, "decode session %s", k)
			}
			out = append(out, s)
		}
		return nil
	})
	return out, errors.Wrap(err, "list sessions")
}

func (b *BoltIndex) Delete(ctx context.Context, id string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(id))
	})
	return errors.Wrapf(err, "delete session %s", id)
}

func (b *BoltIndex) Close() error {
	return b.db.Close()
}
