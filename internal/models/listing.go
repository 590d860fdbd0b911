package models

import (
	"strings"
	"time"
)

// Listing is one property observation as stored by the pipeline.
type Listing struct {
	ID      int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Address string  `gorm:"type:varchar(255);not null;index" json:"address"`
	City    *string `gorm:"type:varchar(100);index" json:"city,omitempty"`
	State   *string `gorm:"type:varchar(20)" json:"state,omitempty"`
	Zip     *string `gorm:"column:zip;type:varchar(20)" json:"zip,omitempty"`

	// Physical attributes
	Beds         Number  `gorm:"column:beds" json:"beds"`
	Baths        Number  `gorm:"column:baths" json:"baths"`
	Sqft         Number  `gorm:"column:sqft" json:"sqft"`
	YearBuilt    Number  `gorm:"column:year_built" json:"year_built"`
	LotSize      *string `gorm:"column:lot_size;type:varchar(100)" json:"lot_size,omitempty"`
	HOAFee       Number  `gorm:"column:hoa_fee" json:"hoa_fee"`
	Parking      *string `gorm:"type:text" json:"parking,omitempty"`
	Heating      *string `gorm:"type:text" json:"heating,omitempty"`
	Cooling      *string `gorm:"type:text" json:"cooling,omitempty"`
	Style        *string `gorm:"type:text" json:"style,omitempty"`
	Construction *string `gorm:"type:text" json:"construction,omitempty"`

	// Commercial attributes
	Price            Number  `gorm:"column:price;index" json:"price"`
	Status           *string `gorm:"type:varchar(50);index" json:"status,omitempty"`
	MLSNumber        *string `gorm:"column:mls_number;type:varchar(50)" json:"mls_number,omitempty"`
	MLSType          *string `gorm:"column:mls_type;type:varchar(50)" json:"mls_type,omitempty"`
	TaxInformation   *string `gorm:"column:tax_information;type:text" json:"tax_information,omitempty"`
	DaysOnMarket     Number  `gorm:"column:days_on_market" json:"days_on_market"`
	DaysOnCompass    Number  `gorm:"column:days_on_compass" json:"days_on_compass"`
	AgentName        *string `gorm:"type:varchar(255)" json:"agent_name,omitempty"`
	AgentPhone       *string `gorm:"type:varchar(50)" json:"agent_phone,omitempty"`
	AgentEmail       *string `gorm:"type:varchar(255)" json:"agent_email,omitempty"`
	SchoolsJSON      *string `gorm:"column:schools_json;type:text" json:"schools_json,omitempty"`
	PriceHistoryJSON *string `gorm:"column:price_history_json;type:text" json:"price_history_json,omitempty"`
	FromCollection   *string `gorm:"column:from_collection;type:varchar(255)" json:"from_collection,omitempty"`
	Source           *string `gorm:"type:varchar(100)" json:"source,omitempty"`

	// Derived and enriched attributes
	PricePerSqft             Number `gorm:"column:price_per_sqft" json:"price_per_sqft"`
	EstimatedRent            Number `gorm:"column:estimated_rent" json:"estimated_rent"`
	RentYield                Number `gorm:"column:rent_yield" json:"rent_yield"`
	EstimatedMonthlyCashflow Number `gorm:"column:estimated_monthly_cashflow" json:"estimated_monthly_cashflow"`
	WalkScore                Number `gorm:"column:walk_score" json:"walk_score"`
	TransitScore             Number `gorm:"column:transit_score" json:"transit_score"`
	BikeScore                Number `gorm:"column:bike_score" json:"bike_score"`

	// Computed on every read, never persisted
	PriceCategory     string `gorm:"-" json:"price_category,omitempty"`
	WalkScoreCategory string `gorm:"-" json:"walk_score_category,omitempty"`
	YieldCategory     string `gorm:"-" json:"yield_category,omitempty"`

	// Bookkeeping
	Favorite          int        `gorm:"not null;default:0;index" json:"favorite"`
	URL               *string    `gorm:"column:url;type:text" json:"url,omitempty"`
	WalkScoreShortURL *string    `gorm:"column:walkscore_shorturl;type:text" json:"walkscore_shorturl,omitempty"`
	CompassShortURL   *string    `gorm:"column:compass_shorturl;type:text" json:"compass_shorturl,omitempty"`
	ImportedAt        *time.Time `gorm:"column:imported_at" json:"imported_at,omitempty"`
	CreatedAt         *time.Time `gorm:"column:created_at" json:"created_at,omitempty"`
	LastUpdated       *time.Time `gorm:"column:last_updated" json:"last_updated,omitempty"`
	DBUpdatedAt       *time.Time `gorm:"column:db_updated_at;index" json:"db_updated_at,omitempty"`

	// Geolocation, 0 or null means unknown
	Latitude  Number `gorm:"column:latitude" json:"latitude"`
	Longitude Number `gorm:"column:longitude" json:"longitude"`
}

// TableName specifies the table name
func (Listing) TableName() string {
	return "listings"
}

// IsFavorite reports whether the user starred the listing.
func (l *Listing) IsFavorite() bool {
	return l.Favorite != 0
}

// HasCoordinates reports whether the listing can be placed on a map.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude.Present() && l.Longitude.Present() &&
		l.Latitude.Float64 != 0 && l.Longitude.Float64 != 0
}

// NormalizedAddress is the case-insensitive key used by blacklist and
// history lookups.
func (l *Listing) NormalizedAddress() string {
	return NormalizeAddress(l.Address)
}

// NormalizeAddress lowercases and trims an address for comparison.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Str returns a pointer to s, for optional text columns.
func Str(s string) *string {
	return &s
}
