package models

import (
	"time"

	"gorm.io/gorm"
)

// ArenaUser is a local snapshot of profile data used to label participants.
// Populated by the profile sync worker.
type ArenaUser struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string    `gorm:"index;not null" json:"username"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
