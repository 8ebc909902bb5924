package album

import (
	"time"

	"github.com/google/uuid"
)

// Album is a named collection of media owned by one account. Object paths for
// its media live under the owner's namespace in the object store.
type Album struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
