// Package store persists the per-cycle records to SQLite through gorm. It
// is a sink only: trading never reads back from it.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moneyagent/internal/agent"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type cycleModel struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Cycle          int       `gorm:"column:cycle;index"`
	RecordedAt     time.Time `gorm:"column:recorded_at"`
	MinutesElapsed int       `gorm:"column:minutes_elapsed"`
	Regime         string    `gorm:"column:regime"`
	AccountTotal   float64   `gorm:"column:account_total"`
	AccountFree    float64   `gorm:"column:account_free"`
	ReturnPct      float64   `gorm:"column:return_pct"`
	SharpeRatio    float64   `gorm:"column:sharpe_ratio"`

	Positions datatypes.JSON `gorm:"column:positions"`
	Decision  datatypes.JSON `gorm:"column:decision"`
	GateLog   datatypes.JSON `gorm:"column:gate_log"`
}

func (cycleModel) TableName() string { return "cycles" }

type tradeModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Cycle      int       `gorm:"column:cycle;index"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
	Signal     string    `gorm:"column:signal"`
	Coin       string    `gorm:"column:coin;index"`
	Pair       string    `gorm:"column:pair"`
	Side       string    `gorm:"column:side"`
	Quantity   float64   `gorm:"column:quantity"`
	Price      float64   `gorm:"column:price"`
	OrderID    string    `gorm:"column:order_id"`
	Simulated  bool      `gorm:"column:simulated"`
	Success    bool      `gorm:"column:success"`
	ErrKind    string    `gorm:"column:err_kind"`
	ErrDetail  string    `gorm:"column:err_detail"`
}

func (tradeModel) TableName() string { return "trades" }

// Store writes cycle and trade records to a WAL-mode SQLite file.
type Store struct {
	db *gorm.DB
}

var _ agent.Sink = (*Store)(nil)

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&cycleModel{}, &tradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One writer is enough; WAL keeps it snappy.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Store{db: db}, nil
}

// RecordCycle stores the cycle snapshot and, for executed non-hold actions,
// a trade row.
func (s *Store) RecordCycle(ctx context.Context, rec agent.CycleRecord) error {
	row := cycleModel{
		Cycle:          rec.Cycle,
		RecordedAt:     rec.Time,
		MinutesElapsed: rec.MinutesElapsed,
		Regime:         rec.Regime,
		AccountTotal:   rec.Balance.Total,
		AccountFree:    rec.Balance.Available,
		ReturnPct:      rec.Metrics.ReturnPct,
		SharpeRatio:    rec.Metrics.SharpeRatio,
		Positions:      mustJSON(rec.Positions),
		Decision:       mustJSON(rec.Decision),
		GateLog:        mustJSON(rec.GateLog),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store cycle %d: %w", rec.Cycle, err)
	}

	if rec.Result.Signal == "" || rec.Result.Signal == "hold" {
		return nil
	}
	trade := tradeModel{
		Cycle:      rec.Cycle,
		RecordedAt: rec.Time,
		Signal:     rec.Result.Signal,
		Coin:       rec.Result.Coin,
		Pair:       rec.Result.Pair,
		Side:       rec.Result.Side,
		Quantity:   rec.Result.Quantity,
		Price:      rec.Result.Price,
		OrderID:    rec.Result.OrderID,
		Simulated:  rec.Result.Simulated,
		Success:    rec.Result.Success,
		ErrKind:    string(rec.Result.ErrKind),
		ErrDetail:  rec.Result.Err,
	}
	if err := s.db.WithContext(ctx).Create(&trade).Error; err != nil {
		return fmt.Errorf("store trade for cycle %d: %w", rec.Cycle, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(raw)
}
