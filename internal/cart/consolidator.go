package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

// Consolidator merges an anonymous cookie cart into the persisted cart when
// the visitor authenticates.
type Consolidator struct {
	repo    CartRepository
	catalog catalog.Service
	logg    *logger.Logger
}

// NewConsolidator builds a consolidator over the cart repository.
func NewConsolidator(repo CartRepository, catalogSvc catalog.Service, logg *logger.Logger) (*Consolidator, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consolidator{repo: repo, catalog: catalogSvc, logg: logg}, nil
}

// Consolidate merges each cookie line into the user's persisted cart by
// incrementing quantities. Every line goes through the same catalog check as
// a regular add, so a tampered cookie cannot smuggle an unoffered pair into
// the persisted cart. Merging is best-effort: a line that fails to validate
// or merge is logged and skipped, the rest still merge. The returned flag is
// true only when every line merged, which is the caller's signal to clear
// the cookie.
func (c *Consolidator) Consolidate(ctx context.Context, userID uuid.UUID, cookie CookieCart) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	compacted := cookie.compact()
	if len(compacted.ProductList) == 0 {
		return true, nil
	}

	allMerged := true
	for _, item := range compacted.ProductList {
		_, err := c.catalog.VariantForProduct(ctx, item.ProductID, item.ConfigurationID)
		if err == nil {
			err = c.repo.IncrementEntry(ctx, userID, item.ProductID, item.ConfigurationID, item.Count)
		}
		if err != nil {
			allMerged = false
			lineCtx := c.logg.WithFields(ctx, map[string]any{
				"product_id":       item.ProductID,
				"configuration_id": item.ConfigurationID,
				"count":            item.Count,
			})
			c.logg.Error(lineCtx, "cart consolidation skipped line", err)
		}
	}
	return allMerged, nil
}
