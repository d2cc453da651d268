// Package bolt is a Storage backed by a bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Comcast/chatter/storage"
	"github.com/Comcast/chatter/util"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var sessionsBucket = []byte("sessions")

// NotOpen occurs when the Storage is used before Open.
var NotOpen = errors.New("storage not open")

type Storage struct {
	filename string
	db       *bbolt.DB
	logger   *zap.Logger
}

func NewStorage(filename string, logger *zap.Logger) (*Storage, error) {
	if filename == "" {
		return nil, errors.New("no filename")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		filename: filename,
		logger:   logger.With(util.Origin("bolt")),
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bbolt.Options{
		Timeout: time.Second,
	}

	db, err := bbolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) GetSession(ctx context.Context, id string) (*storage.SessionState, error) {
	if s.db == nil {
		return nil, NotOpen
	}
	var ss *storage.SessionState
	err := s.db.View(func(tx *bbolt.Tx) error {
		bs := tx.Bucket(sessionsBucket).Get([]byte(id))
		if bs == nil {
			return nil
		}
		ss = &storage.SessionState{}
		if err := json.Unmarshal(bs, ss); err != nil {
			return err
		}
		ss.Id = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("GetSession", zap.String("id", id), zap.Bool("found", ss != nil))
	return ss, nil
}

func (s *Storage) WriteSessions(ctx context.Context, sss []*storage.SessionState) error {
	if s.db == nil {
		return NotOpen
	}
	if len(sss) == 0 {
		return nil
	}

	vals := make(map[string][]byte, len(sss))

	for _, ss := range sss {
		id := ss.Id
		if ss.Deleted {
			vals[id] = nil
			continue
		}
		// To save some space, remove id.
		x := *ss
		x.Id = ""
		js, err := json.Marshal(&x)
		if err != nil {
			return err
		}
		vals[id] = js
	}

	s.logger.Debug("WriteSessions", zap.Int("count", len(vals)))

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		for id, bs := range vals {
			var (
				key = []byte(id)
				err error
			)
			if bs == nil {
				err = b.Delete(key)
			} else {
				err = b.Put(key, bs)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) SessionIds(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, NotOpen
	}
	var acc []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, _ []byte) error {
			acc = append(acc, string(k))
			return nil
		})
	})
	return acc, err
}
