package kvstore

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// FileKV persists all keys into a single JSON file, the server-side
// equivalent of the browser's localStorage blob. A missing or unreadable
// state file starts empty instead of failing.
type FileKV struct {
	mx   sync.Mutex
	path string
}

func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mx.Lock()
	defer f.mx.Unlock()

	state := f.load()
	value, ok := state[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mx.Lock()
	defer f.mx.Unlock()

	state := f.load()
	state[key] = json.RawMessage(value)
	return f.save(state)
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mx.Lock()
	defer f.mx.Unlock()

	state := f.load()
	delete(state, key)
	return f.save(state)
}

func (f *FileKV) load() map[string]json.RawMessage {
	state := make(map[string]json.RawMessage)

	data, err := os.ReadFile(f.path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil {
		// corrupt state file, fall back to empty
		return make(map[string]json.RawMessage)
	}
	return state
}

func (f *FileKV) save(state map[string]json.RawMessage) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write state file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "replace state file")
	}
	return nil
}
