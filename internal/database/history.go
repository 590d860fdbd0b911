package database

import (
	"context"

	"property-pipeline/internal/models"
)

// RentalHistory returns the observed rents of a listing, oldest first.
func (s *Store) RentalHistory(ctx context.Context, listingID int64) ([]models.RentalHistoryPoint, error) {
	points := []models.RentalHistoryPoint{}
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("date ASC, id ASC").
		Find(&points).Error
	if err != nil {
		return nil, storeErr("rental_history", err)
	}
	return points, nil
}

// ListingChanges returns the audit trail of a listing, newest first.
func (s *Store) ListingChanges(ctx context.Context, listingID int64) ([]models.ListingChange, error) {
	changes := []models.ListingChange{}
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("changed_at DESC, id DESC").
		Find(&changes).Error
	if err != nil {
		return nil, storeErr("listing_changes", err)
	}
	return changes, nil
}

// RecordChanges appends audit rows in one transaction.
func (s *Store) RecordChanges(ctx context.Context, changes []models.ListingChange) error {
	if len(changes) == 0 {
		return nil
	}
	return storeErr("record_changes", s.db.WithContext(ctx).CreateInBatches(changes, 100).Error)
}
