package catalog

import (
	"context"
	"strings"
	"unicode"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

// Tier names which source supplied the active catalog, so callers (and tests)
// can tell an authoritative price from a fallback one.
type Tier string

const (
	TierRemote   Tier = "remote"
	TierFallback Tier = "fallback"
)

// Catalog is the resolved category set for one session.
type Catalog struct {
	Tier       Tier
	Categories []domain.RoomCategory
}

func (c Catalog) Find(categoryID string) (domain.RoomCategory, bool) {
	for _, cat := range c.Categories {
		if cat.ID == categoryID {
			return cat, true
		}
	}
	return domain.RoomCategory{}, false
}

type CategoryLister interface {
	Categories(ctx context.Context) ([]domain.RoomCategory, error)
}

// Resolver fetches the catalog from the backend and falls back to the local
// table when the backend cannot be reached.
type Resolver struct {
	lister CategoryLister
	logger observability.Logger
}

func NewResolver(lister CategoryLister, logger observability.Logger) *Resolver {
	return &Resolver{lister: lister, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context) Catalog {
	cats, err := r.lister.Categories(ctx)
	if err != nil || len(cats) == 0 {
		if err != nil {
			r.logger.WithField("error", err.Error()).Warn("catalog fetch failed, using local fallback")
		}
		observability.CatalogTier.WithLabelValues(string(TierFallback)).Inc()
		return Catalog{Tier: TierFallback, Categories: fallbackCategories()}
	}

	for i := range cats {
		normalize(&cats[i])
	}
	observability.CatalogTier.WithLabelValues(string(TierRemote)).Inc()
	return Catalog{Tier: TierRemote, Categories: cats}
}

// normalize fills fields the backend leaves blank: display names and, for
// dormitory-style categories, per-head pricing.
func normalize(cat *domain.RoomCategory) {
	if cat.DisplayName == "" {
		cat.DisplayName = DisplayName(cat.ID)
	}
	if cat.PricingMode == "" {
		if strings.HasPrefix(cat.ID, "dormitory") {
			cat.PricingMode = domain.PerHead
		} else {
			cat.PricingMode = domain.PerRoom
		}
	}
}

var displayNames = map[string]string{
	"primeDeluxe": "Prime Deluxe Room",
	"economy":     "Economy Room",
	"fiveBedded":  "5-Bedded Deluxe",
	"dormitory":   "Dormitory",
	"dormitoryLg": "Dormitory Large",
	"dormitorySm": "Dormitory Small",
}

// DisplayName maps a category id to a human-readable name, splitting camelCase
// ids it has never seen before.
func DisplayName(categoryID string) string {
	if name, ok := displayNames[categoryID]; ok {
		return name
	}
	var b strings.Builder
	for i, r := range categoryID {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fallbackCategories() []domain.RoomCategory {
	cats := []domain.RoomCategory{
		{ID: "primeDeluxe", UnitPrice: 1000, PricingMode: domain.PerRoom, MaxOccupancy: 4},
		{ID: "economy", UnitPrice: 650, PricingMode: domain.PerRoom, MaxOccupancy: 3},
		{ID: "fiveBedded", UnitPrice: 1800, PricingMode: domain.PerRoom, MaxOccupancy: 8},
		{
			ID: "dormitory", UnitPrice: 250, PricingMode: domain.PerHead, MaxOccupancy: 8,
			AddOns: []domain.AddOn{{Name: "extraMattress", Price: 250}},
		},
	}
	for i := range cats {
		cats[i].DisplayName = DisplayName(cats[i].ID)
	}
	return cats
}
