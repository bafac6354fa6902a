package attendee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

// Static serves lookups from an in-memory list, normally the users file
// shipped next to the agenda.
type Static struct {
	users []model.User
}

// usersFile is the on-disk shape: {"users": [...]}.
type usersFile struct {
	Users []model.User `json:"users"`
}

func NewStatic(users []model.User) *Static {
	cp := make([]model.User, len(users))
	copy(cp, users)
	return &Static{users: cp}
}

// LoadStatic reads a users file.
func LoadStatic(path string) (*Static, error) {
	if path == "" {
		return nil, errors.New("users path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var f usersFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	appLog.Info("static attendees loaded", "path", path, "count", len(f.Users))
	return NewStatic(f.Users), nil
}

func (s *Static) Name() string { return "json" }

// FindUser matches email first across all users, then Pega ID.
func (s *Static) FindUser(ctx context.Context, identifier string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	id := strings.TrimSpace(identifier)
	if id == "" {
		return model.User{}, ErrNotFound
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, id) {
			return u, nil
		}
	}
	for _, u := range s.users {
		if strings.EqualFold(u.PegaID, id) {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

// Users returns a copy of every user.
func (s *Static) Users() []model.User {
	cp := make([]model.User, len(s.users))
	copy(cp, s.users)
	return cp
}

// Count returns the number of users.
func (s *Static) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.users), nil
}

// Sample returns up to limit users in file order.
func (s *Static) Sample(ctx context.Context, limit int) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = max(0, min(limit, len(s.users)))
	out := make([]model.User, limit)
	copy(out, s.users[:limit])
	return out, nil
}
