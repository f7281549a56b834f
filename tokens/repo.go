package tokens

import "context"

// Repo is the per-user single-slot token store.
// Each user id maps to at most one Entry. All methods must be safe for concurrent use
// and every single-key operation must be atomic in the backing store.
type Repo interface {
	// Get returns the stored entry for userID or ErrTokenNotFound.
	Get(ctx context.Context, userID string) (Entry, error)

	// Upsert stores entry under entry.UserID, replacing any previous token.
	// Concurrent upserts for the same user resolve as last write wins.
	Upsert(ctx context.Context, entry Entry) error

	// Delete removes the entry for userID and reports whether one existed.
	Delete(ctx context.Context, userID string) (bool, error)

	// List returns every stored entry ordered by user id.
	List(ctx context.Context) ([]Entry, error)

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
