package domain

import (
	"time"

	"github.com/google/uuid"
)

type Guild struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Member struct {
	ID          uuid.UUID
	GuildID     uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}

// Character is a roster entry. MemberID is nil for characters that are not
// linked to a member account; costed loot assigned to them cannot be charged.
type Character struct {
	ID        uuid.UUID
	GuildID   uuid.UUID
	Name      string
	Class     *string
	MemberID  *uuid.UUID
	CreatedAt time.Time
}
