package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCoinNotFound = errors.New("coin not registered")

// InsertPrices writes records in a single transaction. Rows whose p_id already
// exists are skipped; the number of rows actually inserted is returned.
func (p *PostgresClient) InsertPrices(ctx context.Context, records []PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int64
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "p_id"}},
			DoNothing: true,
		}).CreateInBatches(records, 500)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert prices: %w", err)
	}
	return int(inserted), nil
}

// QuerySeries returns every price stored for symbol in ascending time order.
// Missing tables surface as the backend's error, never as an empty series.
func (p *PostgresClient) QuerySeries(ctx context.Context, symbol string) ([]SeriesPoint, error) {
	db := p.DB.WithContext(ctx)

	var coinIDs []int64
	if err := db.Model(&CoinRecord{}).
		Where("coin_name = ?", symbol).
		Pluck("coin_id", &coinIDs).Error; err != nil {
		return nil, fmt.Errorf("lookup coin %s: %w", symbol, err)
	}
	if len(coinIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, symbol)
	}

	points := []SeriesPoint{}
	if err := db.Model(&PriceRecord{}).
		Select("price", "time_secs").
		Where("coin_id = ?", coinIDs[0]).
		Order("time_secs ASC").
		Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("query series %s: %w", symbol, err)
	}
	return points, nil
}
