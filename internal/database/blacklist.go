package database

import (
	"context"
	"strings"

	"gorm.io/gorm/clause"

	"property-pipeline/internal/models"
)

// AddToBlacklist hides an address from every listing view. It reports false
// when the address, ignoring case, was already blacklisted.
func (s *Store) AddToBlacklist(ctx context.Context, address string, reason *string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, ErrEmptyAddress
	}

	listed, err := s.IsBlacklisted(ctx, address)
	if err != nil {
		return false, err
	}
	if listed {
		return false, nil
	}

	entry := models.BlacklistEntry{Address: address, Reason: reason}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, storeErr("add_to_blacklist", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveFromBlacklist deletes every entry matching address, ignoring case,
// and reports whether one existed.
func (s *Store) RemoveFromBlacklist(ctx context.Context, address string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, ErrEmptyAddress
	}

	res := s.db.WithContext(ctx).
		Where("LOWER(address) = LOWER(?)", address).
		Delete(&models.BlacklistEntry{})
	if res.Error != nil {
		return false, storeErr("remove_from_blacklist", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IsBlacklisted checks an address, ignoring case.
func (s *Store) IsBlacklisted(ctx context.Context, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BlacklistEntry{}).
		Where("LOWER(address) = LOWER(?)", strings.TrimSpace(address)).
		Count(&count).Error
	if err != nil {
		return false, storeErr("is_blacklisted", err)
	}
	return count > 0, nil
}

// ListBlacklist returns every entry, newest first.
func (s *Store) ListBlacklist(ctx context.Context) ([]models.BlacklistEntry, error) {
	entries := []models.BlacklistEntry{}
	err := s.db.WithContext(ctx).Order("blacklisted_at DESC, id DESC").Find(&entries).Error
	if err != nil {
		return nil, storeErr("list_blacklist", err)
	}
	return entries, nil
}
