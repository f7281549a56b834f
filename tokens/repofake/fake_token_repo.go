package faketokenrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-session-limiter/tokens"
)

var _ tokens.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo keeps tokens in process memory. It is the default store for
// single-process deployments and for tests.
type FakeTokenRepo struct {
	entries map[string]tokens.Entry
	lock    sync.RWMutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		entries: make(map[string]tokens.Entry),
	}
}

func (tr *FakeTokenRepo) Get(_ context.Context, userID string) (tokens.Entry, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	entry, ok := tr.entries[userID]
	if !ok {
		return tokens.Entry{}, tokens.ErrTokenNotFound
	}
	return entry, nil
}

func (tr *FakeTokenRepo) Upsert(_ context.Context, entry tokens.Entry) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.entries[entry.UserID] = entry
	return nil
}

func (tr *FakeTokenRepo) Delete(_ context.Context, userID string) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if _, ok := tr.entries[userID]; !ok {
		return false, nil
	}
	delete(tr.entries, userID)
	return true, nil
}

func (tr *FakeTokenRepo) List(_ context.Context) ([]tokens.Entry, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	list := make([]tokens.Entry, 0, len(tr.entries))
	for _, e := range tr.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	return list, nil
}

func (tr *FakeTokenRepo) Clear(_ context.Context) (int, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	n := len(tr.entries)
	tr.entries = make(map[string]tokens.Entry)
	return n, nil
}
