package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category labels transactions. Referenced by transactions and read-only from
// the ledger engine's perspective.
type Category struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	IconName  string    `json:"icon_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
