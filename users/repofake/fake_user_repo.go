package fakeuserrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-limiter/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	usernameIds map[string]string // username to user id
	roles       []users.Role
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		usernameIds: make(map[string]string),
		roles:       users.DefaultRoles(),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id := user.ID
	if id == "" {
		id = uuid.New().String()
	}
	if owner, ok := ur.usernameIds[user.Username]; ok && owner != id {
		return fmt.Errorf("[FakeUserRepo Upsert] %q: %w", user.Username, users.ErrUsernameTaken)
	}
	user.ID = id
	if old, ok := ur.users[user.ID]; ok && old.Username != user.Username {
		delete(ur.usernameIds, old.Username)
	}
	stored := *user
	stored.Roles = append([]string(nil), user.Roles...)
	ur.users[user.ID] = &stored
	ur.usernameIds[user.Username] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrUserNotFound
	}
	delete(ur.usernameIds, user.Username)
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (ur *FakeUserRepo) GetByUsername(_ context.Context, username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIds[username]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return copyUser(ur.users[id]), nil
}

func (ur *FakeUserRepo) List(_ context.Context) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		userList = append(userList, copyUser(u))
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})
	return userList, nil
}

func (ur *FakeUserRepo) Roles(_ context.Context) ([]users.Role, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	return append([]users.Role(nil), ur.roles...), nil
}

func copyUser(u *users.User) *users.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
