package local

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-homie"
)

// User is an account known to the local provider.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Disabled      bool       `bun:"disabled,notnull,default:false" json:"disabled,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Session converts u into the identity reported to subscribers.
func (u *User) Session(token string, issuedAt time.Time) *homie.Session {
	return &homie.Session{
		UserID:      u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Token:       token,
		IssuedAt:    issuedAt,
	}
}

// StoredSession is the single signed in session kept across restarts when
// session persistence is enabled.
type StoredSession struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            int       `bun:"id,pk" json:"id"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Token         string    `bun:"token,notnull" json:"-"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

const storedSessionID = 1

// Migrate creates the tables used by the local provider.
func Migrate(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*User)(nil),
		(*StoredSession)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
