package postgres

// CoinRecord is a row of the coins table. coin_name is CHAR(20), so values
// read back carry trailing padding until trimmed.
type CoinRecord struct {
	CoinID   int64  `gorm:"column:coin_id;primaryKey"`
	CoinName string `gorm:"column:coin_name"`
}

func (CoinRecord) TableName() string {
	return "coins"
}

// PriceRecord is one persisted observation, keyed by "<unix_seconds>-<symbol>".
type PriceRecord struct {
	PID      string  `gorm:"column:p_id;primaryKey"`
	CoinID   int64   `gorm:"column:coin_id"`
	Price    float64 `gorm:"column:price"`
	Volume   float64 `gorm:"column:volume"`
	TimeSecs int64   `gorm:"column:time_secs"`
	Date     string  `gorm:"column:date"` // source timestamp text without zone marker
}

func (PriceRecord) TableName() string {
	return "prices"
}

// SeriesPoint is one chartable (price, time) pair.
type SeriesPoint struct {
	Price    float64 `gorm:"column:price"`
	TimeSecs int64   `gorm:"column:time_secs"`
}
