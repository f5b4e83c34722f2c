// Package model defines the core entities of the expense tracker domain.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Role values conventionally carried by a membership. The column itself
// is a free-form string.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// User is a person tracking expenses, alone or inside shared groups.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        uuid.UUID `bun:"id,pk,type:varchar(36)"`
	Name      string    `bun:"name"`
	Email     string    `bun:"email,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Group is a shared expense book with a single currency.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID        uuid.UUID `bun:"id,pk,type:varchar(36)"`
	Name      string    `bun:"name,notnull"`
	Currency  string    `bun:"currency,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Category labels entries within a single group. Names are unique per
// group, compared case-insensitively.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID        uuid.UUID `bun:"id,pk,type:varchar(36)"`
	Name      string    `bun:"name,notnull"`
	Color     string    `bun:"color,notnull"`
	GroupID   uuid.UUID `bun:"group_id,notnull,type:varchar(36)"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	Group *Group `bun:"rel:belongs-to,join:group_id=id,on_delete:CASCADE"`
}

// Entry is one expense event inside a group, optionally categorized.
// Deleting the category nullifies the reference instead of cascading.
type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID          uuid.UUID  `bun:"id,pk,type:varchar(36)"`
	Description string     `bun:"description"`
	Date        time.Time  `bun:"date,notnull"`
	GroupID     uuid.UUID  `bun:"group_id,notnull,type:varchar(36)"`
	CategoryID  *uuid.UUID `bun:"category_id,type:varchar(36),nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`

	Group    *Group    `bun:"rel:belongs-to,join:group_id=id,on_delete:CASCADE"`
	Category *Category `bun:"rel:belongs-to,join:category_id=id,on_delete:SET NULL"`
}

// Item is a priced line within an entry. Amount is an exact decimal;
// Quantity multiplies it when totals are computed.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID          uuid.UUID       `bun:"id,pk,type:varchar(36)"`
	Description string          `bun:"description"`
	Amount      decimal.Decimal `bun:"amount,notnull,type:numeric"`
	Quantity    int64           `bun:"quantity,notnull"`
	EntryID     uuid.UUID       `bun:"entry_id,notnull,type:varchar(36)"`
	CreatedAt   time.Time       `bun:"created_at,notnull"`

	Entry *Entry `bun:"rel:belongs-to,join:entry_id=id,on_delete:CASCADE"`
}

// UserGroup joins a user to a group with a role. CreatedAt doubles as the
// joined-at timestamp.
type UserGroup struct {
	bun.BaseModel `bun:"table:user_groups,alias:ug"`

	ID        uuid.UUID `bun:"id,pk,type:varchar(36)"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:varchar(36)"`
	GroupID   uuid.UUID `bun:"group_id,notnull,type:varchar(36)"`
	Role      string    `bun:"role,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`

	User  *User  `bun:"rel:belongs-to,join:user_id=id,on_delete:RESTRICT"`
	Group *Group `bun:"rel:belongs-to,join:group_id=id,on_delete:CASCADE"`
}
