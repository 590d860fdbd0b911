package models

import "time"

// RentalHistoryPoint is one observed rent for a listing
type RentalHistoryPoint struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ListingID int64     `gorm:"not null;index:idx_rental_history_listing_date" json:"listing_id"`
	Date      time.Time `gorm:"not null;index:idx_rental_history_listing_date,priority:2" json:"date"`
	Rent      float64   `gorm:"not null" json:"rent"`
}

// TableName specifies the table name
func (RentalHistoryPoint) TableName() string {
	return "rental_history"
}

// ListingChange is one entry of the append-only audit trail
type ListingChange struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID int64     `gorm:"not null;index" json:"listing_id"`
	FieldName string    `gorm:"type:varchar(100);not null" json:"field_name"`
	OldValue  *string   `gorm:"type:text" json:"old_value,omitempty"`
	NewValue  *string   `gorm:"type:text" json:"new_value,omitempty"`
	ChangedAt time.Time `gorm:"not null;autoCreateTime;index" json:"changed_at"`
	Source    string    `gorm:"type:varchar(50);not null" json:"source"`
}

// TableName specifies the table name
func (ListingChange) TableName() string {
	return "listing_changes"
}

// Change sources
const (
	ChangeSourceDashboard = "dashboard"
	ChangeSourceGmail     = "gmail"
	ChangeSourceCompass   = "compass"
	ChangeSourceWalkScore = "walkscore"
	ChangeSourceCashflow  = "cashflow"
)
