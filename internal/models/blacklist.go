package models

import "time"

// BlacklistEntry permanently hides an address from every listing view
type BlacklistEntry struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Address       string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"address"`
	Reason        *string   `gorm:"type:text" json:"reason,omitempty"`
	BlacklistedAt time.Time `gorm:"not null;autoCreateTime" json:"blacklisted_at"`
}

// TableName specifies the table name
func (BlacklistEntry) TableName() string {
	return "address_blacklist"
}
