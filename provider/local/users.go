package local

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users stores local provider accounts.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User, at time.Time) error
	SetDisabled(ctx context.Context, id uuid.UUID, disabled bool, at time.Time) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns a Users repository over db.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (u *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return u.GetByEmailTx(ctx, u.db, email)
}

func (u *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = normalizeEmail(email)

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}
	return record, nil
}

func (u *users) Register(ctx context.Context, user *User) (*User, error) {
	user.Email = normalizeEmail(user.Email)
	if strings.TrimSpace(user.DisplayName) == "" {
		user.DisplayName = displayName(user.Email)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return u.Repository.Create(ctx, user)
}

func (u *users) TrackSuccessfulLogin(ctx context.Context, user *User, at time.Time) error {
	record := *user
	record.LoggedInAt = &at
	record.UpdatedAt = at

	updated, err := u.Repository.Update(ctx, &record, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return err
	}
	if updated != nil {
		user.LoggedInAt = updated.LoggedInAt
	}
	return nil
}

func (u *users) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool, at time.Time) error {
	// Update wont reset a column to its zero value, so re-enabling goes
	// through an explicit SET.
	res, err := u.db.NewUpdate().
		Model((*User)(nil)).
		Set("disabled = ?", disabled).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}
