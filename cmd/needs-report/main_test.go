package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/internal/database"
	"property-pipeline/internal/models"
)

func TestBuildReport(t *testing.T) {
	store, err := database.OpenSQLite(":memory:", database.Options{LogLevel: "silent", AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	listings := []models.Listing{
		{ID: 1, Address: "1 Full St", Price: models.Num(400000), WalkScore: models.Num(80), TransitScore: models.Num(60), BikeScore: models.Num(70),
			MLSNumber: models.Str("M1"), MLSType: models.Str("Condo"), TaxInformation: models.Str("2023: $4,000"), EstimatedMonthlyCashflow: models.Num(150)},
		{ID: 2, Address: "2 Bare St", Price: models.Num(300000), MLSType: models.Str("Condo")},
	}
	require.NoError(t, store.DB().Create(&listings).Error)

	r, err := build(context.Background(), store, "sqlite", true)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", r.Database)
	assert.Equal(t, 2, r.Counts.Total)
	assert.Equal(t, 1, r.Counts.WalkScoreMissing)
	assert.Equal(t, 1, r.Counts.MLSMissing)
	assert.False(t, r.Counts.CashflowUnavailable)
	assert.Equal(t, []int64{2}, r.IDs["mls_missing"])
	assert.Equal(t, []int64{2}, r.IDs["cashflow_missing"])
}
