package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxSymbolLength is the width of coins.coin_name.
const MaxSymbolLength = 20

var ErrSymbolTooLong = errors.New("symbol exceeds coin_name width")

// LoadCoins returns every registered coin as symbol -> coin_id.
func (p *PostgresClient) LoadCoins(ctx context.Context) (map[string]int64, error) {
	var records []CoinRecord
	if err := p.DB.WithContext(ctx).Order("coin_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load coins: %w", err)
	}

	coins := make(map[string]int64, len(records))
	for _, r := range records {
		coins[strings.TrimSpace(r.CoinName)] = r.CoinID
	}
	return coins, nil
}

// InsertCoin registers symbol and returns the generated coin_id.
func (p *PostgresClient) InsertCoin(ctx context.Context, symbol string) (int64, error) {
	if len(symbol) > MaxSymbolLength {
		return 0, fmt.Errorf("%w: %q", ErrSymbolTooLong, symbol)
	}

	record := CoinRecord{CoinName: symbol}
	if err := p.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, fmt.Errorf("insert coin %s: %w", symbol, err)
	}
	return record.CoinID, nil
}
