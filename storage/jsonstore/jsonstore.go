// Package jsonstore is a primitive Storage that keeps sessions as JSON
// in a file.
//
// Not glamorous or efficient.  The whole file is rewritten on every
// write.
package jsonstore

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"sort"
	"sync"

	"github.com/Comcast/chatter/storage"
	"github.com/Comcast/chatter/util"

	"go.uber.org/zap"
)

// JSONStore is a storage.Storage backed by a JSON file.
type JSONStore struct {
	// Filename is the file that holds the sessions.
	Filename string

	logger *zap.Logger

	sync.Mutex
	sessions map[string]*storage.SessionState
}

// NewJSONStore makes a JSONStore.  Call Open before using it.
func NewJSONStore(filename string, logger *zap.Logger) *JSONStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{
		Filename: filename,
		logger:   logger.With(util.Origin("jsonstore")),
	}
}

// Open reads the file if it exists.
func (s *JSONStore) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	s.sessions = make(map[string]*storage.SessionState)

	js, err := ioutil.ReadFile(s.Filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err = json.Unmarshal(js, &s.sessions); err != nil {
		return err
	}
	s.logger.Info("read sessions",
		zap.String("filename", s.Filename),
		zap.Int("sessions", len(s.sessions)))
	return nil
}

// Close writes the file.
func (s *JSONStore) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()
	return s.write()
}

func (s *JSONStore) write() error {
	if s.sessions == nil {
		return nil
	}
	js, err := json.MarshalIndent(&s.sessions, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(s.Filename, js, 0644)
}

func (s *JSONStore) GetSession(ctx context.Context, id string) (*storage.SessionState, error) {
	s.Lock()
	defer s.Unlock()
	ss, have := s.sessions[id]
	if !have {
		return nil, nil
	}
	ss.Id = id
	return ss, nil
}

// WriteSessions updates the sessions and then writes the whole file.
func (s *JSONStore) WriteSessions(ctx context.Context, ss []*storage.SessionState) error {
	s.Lock()
	defer s.Unlock()
	if s.sessions == nil {
		s.sessions = make(map[string]*storage.SessionState)
	}
	for _, x := range ss {
		if x.Deleted {
			delete(s.sessions, x.Id)
			continue
		}
		s.sessions[x.Id] = x
	}
	return s.write()
}

func (s *JSONStore) SessionIds(ctx context.Context) ([]string, error) {
	s.Lock()
	defer s.Unlock()
	acc := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		acc = append(acc, id)
	}
	sort.Strings(acc)
	return acc, nil
}
