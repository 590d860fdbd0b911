package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"property-pipeline/internal/filter"
	"property-pipeline/internal/models"
)

// notBlacklisted excludes every listing whose address matches a blacklist
// entry, ignoring case.
const notBlacklisted = `NOT EXISTS (SELECT 1 FROM address_blacklist b WHERE LOWER(b.address) = LOWER(listings.address))`

// recentFirst puts the most recently updated listings first, NULLs last
const recentFirst = "CASE WHEN db_updated_at IS NULL THEN 1 ELSE 0 END, db_updated_at DESC, id DESC"

// listings starts every listing read that must honour the blacklist.
func (s *Store) listings(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Listing{}).Where(notBlacklisted)
}

// GetAll returns the listings that are not blacklisted, most recently updated
// first. A limit of zero or less returns every row.
func (s *Store) GetAll(ctx context.Context, limit int) ([]models.Listing, error) {
	q := s.listings(ctx).Order(recentFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}

	listings := []models.Listing{}
	if err := q.Find(&listings).Error; err != nil {
		return nil, storeErr("get_all", err)
	}
	return listings, nil
}

// GetFiltered returns every non-blacklisted listing matching spec, ordered by
// id. An invalid spec fails with *filter.InvalidFilterError before the store
// is touched.
func (s *Store) GetFiltered(ctx context.Context, spec filter.Spec) ([]models.Listing, error) {
	conds, err := spec.Compile()
	if err != nil {
		return nil, err
	}

	q := s.listings(ctx)
	for _, c := range conds {
		q = q.Where(c.SQL, c.Args...)
	}

	listings := []models.Listing{}
	if err := q.Order("id").Find(&listings).Error; err != nil {
		return nil, storeErr("get_filtered", err)
	}
	return listings, nil
}

// GetByID loads a listing whether or not its address is blacklisted, for
// history and audit views.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("listing %d: %w", id, ErrListingNotFound)
	}
	if err != nil {
		return nil, storeErr("get_by_id", err)
	}
	return &listing, nil
}

// GetByIDs returns the non-blacklisted listings among ids, in the order of
// ids. Unknown ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) ([]models.Listing, error) {
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}

	var found []models.Listing
	if err := s.listings(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, storeErr("get_by_ids", err)
	}

	byID := make(map[int64]models.Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}

	listings := make([]models.Listing, 0, len(found))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			listings = append(listings, l)
			delete(byID, id)
		}
	}
	return listings, nil
}

// GetFavorites returns starred listings, latest source update first.
func (s *Store) GetFavorites(ctx context.Context) ([]models.Listing, error) {
	listings := []models.Listing{}
	err := s.listings(ctx).
		Where("favorite = ?", 1).
		Order("CASE WHEN last_updated IS NULL THEN 1 ELSE 0 END, last_updated DESC, id DESC").
		Find(&listings).Error
	if err != nil {
		return nil, storeErr("get_favorites", err)
	}
	return listings, nil
}

// SetFavorite stars or unstars a listing. A change of value is recorded in
// listing_changes with source "dashboard".
func (s *Store) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	value := 0
	if favorite {
		value = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Listing
		if err := tx.Select("id", "favorite").Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		if current.Favorite == value {
			return nil
		}

		if err := tx.Model(&models.Listing{}).Where("id = ?", id).Update("favorite", value).Error; err != nil {
			return err
		}

		old, updated := fmt.Sprint(current.Favorite), fmt.Sprint(value)
		return tx.Create(&models.ListingChange{
			ListingID: id,
			FieldName: "favorite",
			OldValue:  &old,
			NewValue:  &updated,
			Source:    models.ChangeSourceDashboard,
		}).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("listing %d: %w", id, ErrListingNotFound)
	}
	return storeErr("set_favorite", err)
}
