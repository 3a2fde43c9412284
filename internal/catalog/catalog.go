// Package catalog exposes the item catalog collaborator: the set of tradable
// items and their admin-controlled base prices. The engine only reads from
// it; mutation happens through admin actions.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrItemNotFound reports an unknown item identifier.
var ErrItemNotFound = errors.New("catalog: item not found")

var (
	minBandRatio = decimal.RequireFromString("0.5")
	maxBandRatio = decimal.RequireFromString("3.0")
)

// Item is a tradable catalog entry. Items are never deleted, only
// deactivated.
type Item struct {
	ID        string
	BasePrice decimal.Decimal
	Active    bool
}

// MinPrice is the nominal floor of the item's price band, half the base.
func (i Item) MinPrice() decimal.Decimal {
	return i.BasePrice.Mul(minBandRatio)
}

// MaxPrice is the nominal ceiling of the item's price band, triple the base.
func (i Item) MaxPrice() decimal.Decimal {
	return i.BasePrice.Mul(maxBandRatio)
}

// Catalog is the read surface the pricing engine depends on.
type Catalog interface {
	// ActiveItems returns every item currently flagged active.
	ActiveItems(ctx context.Context) ([]Item, error)
	// Item returns a single item, active or not.
	Item(ctx context.Context, id string) (Item, error)
}

// Admin is the mutation surface behind the item-admin endpoints.
type Admin interface {
	Upsert(ctx context.Context, item Item) error
	SetActive(ctx context.Context, id string, active bool) error
	SetBasePrice(ctx context.Context, id string, base decimal.Decimal) error
}
