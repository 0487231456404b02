package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

// SystemOperatorID owns tournaments created from the CLI and by guest logins.
var SystemOperatorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User is an operator account: someone who runs tournaments through the
// operator surface.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Provider   *string   `db:"provider" json:"provider,omitempty"`
	ProviderID *string   `db:"provider_id" json:"-"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
}

func (u *User) IsSystem() bool {
	return u.ID == SystemOperatorID
}
