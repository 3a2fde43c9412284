package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// itemRow is the relational shape of an Item. Prices are stored as decimal
// strings to avoid float rounding in the database.
type itemRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	BasePrice string `gorm:"not null"`
	Active    bool   `gorm:"not null;default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (itemRow) TableName() string { return "items" }

// GormCatalog is the SQLite-backed catalog used in production.
type GormCatalog struct {
	db *gorm.DB
}

// OpenGorm opens (and migrates) the catalog database at dsn.
func OpenGorm(dsn string) (*GormCatalog, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog db: %w", err)
	}
	if err := db.AutoMigrate(&itemRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return &GormCatalog{db: db}, nil
}

func (c *GormCatalog) ActiveItems(ctx context.Context) ([]Item, error) {
	var rows []itemRow
	if err := c.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active items: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := rowToItem(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *GormCatalog) Item(ctx context.Context, id string) (Item, error) {
	var row itemRow
	err := c.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("failed to load item %s: %w", id, err)
	}
	return rowToItem(row)
}

// Upsert creates an item or replaces its base price and active flag.
func (c *GormCatalog) Upsert(ctx context.Context, item Item) error {
	row := itemRow{
		ID:        item.ID,
		BasePrice: item.BasePrice.String(),
		Active:    item.Active,
	}
	err := c.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
	}
	return nil
}

// SetActive toggles an item's active flag. Deactivation is the only way an
// item leaves the repricing set.
func (c *GormCatalog) SetActive(ctx context.Context, id string, active bool) error {
	res := c.db.WithContext(ctx).Model(&itemRow{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SetBasePrice changes an item's base price, which also moves its nominal
// and widened price bands.
func (c *GormCatalog) SetBasePrice(ctx context.Context, id string, base decimal.Decimal) error {
	res := c.db.WithContext(ctx).Model(&itemRow{}).Where("id = ?", id).Update("base_price", base.String())
	if res.Error != nil {
		return fmt.Errorf("failed to update item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func rowToItem(row itemRow) (Item, error) {
	base, err := decimal.NewFromString(row.BasePrice)
	if err != nil {
		return Item{}, fmt.Errorf("item %s has malformed base price %q: %w", row.ID, row.BasePrice, err)
	}
	return Item{ID: row.ID, BasePrice: base, Active: row.Active}, nil
}
