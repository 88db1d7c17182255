package service

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/entity"
	"checkout-service/internal/repository"
)

// StockValidator checks a cart against current inventory. It never writes.
type StockValidator struct {
	catalog           repository.CatalogRepository
	lowStockThreshold int
}

func NewStockValidator(catalog repository.CatalogRepository, lowStockThreshold int) *StockValidator {
	return &StockValidator{catalog: catalog, lowStockThreshold: lowStockThreshold}
}

// Validate returns an itemized result for every line. The error is only set
// when the catalog itself could not be read.
func (v *StockValidator) Validate(ctx context.Context, lines []entity.CartLine) (*entity.StockValidationResult, error) {
	result := &entity.StockValidationResult{
		Errors:   []entity.StockError{},
		Warnings: []entity.StockWarning{},
	}

	for _, line := range lines {
		if err := v.validateLine(ctx, line, result); err != nil {
			logger.Error().Err(err).Msgf("Error validating stock for product %s", line.ProductID)
			return nil, err
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (v *StockValidator) validateLine(ctx context.Context, line entity.CartLine, result *entity.StockValidationResult) error {
	addError := func(msg string, available *int) {
		result.Errors = append(result.Errors, entity.StockError{
			ProductID:         line.ProductID,
			VariantID:         line.VariantID,
			Error:             msg,
			AvailableQuantity: available,
		})
	}

	product, err := v.catalog.GetProduct(ctx, line.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		addError(fmt.Sprintf("Product with ID %s not found", line.ProductID), nil)
		return nil
	}
	if err != nil {
		return err
	}

	if !product.IsActive {
		addError(fmt.Sprintf("%s is no longer available", product.Title), nil)
		return nil
	}

	if line.Quantity < 1 {
		addError(fmt.Sprintf("%s: Quantity must be at least 1", product.Title), nil)
		return nil
	}

	var available int
	if line.VariantID != nil {
		variant, err := v.catalog.GetVariant(ctx, product.ID, *line.VariantID)
		if errors.Is(err, repository.ErrNotFound) {
			addError(fmt.Sprintf("%s: Selected variant not found", product.Title), nil)
			return nil
		}
		if err != nil {
			return err
		}
		if !variant.IsAvailable {
			addError(fmt.Sprintf("%s (selected variant) is not available", product.Title), nil)
			return nil
		}
		if variant.StockQuantity < line.Quantity {
			stock := variant.StockQuantity
			addError(fmt.Sprintf("%s (selected variant): Only %d in stock, but %d requested",
				product.Title, stock, line.Quantity), &stock)
			return nil
		}
		available = variant.StockQuantity
	} else {
		if product.StockQuantity == 0 {
			hasVariantStock, err := v.catalog.HasAvailableVariantStock(ctx, product.ID)
			if err != nil {
				return err
			}
			if !product.InStock(hasVariantStock) {
				zero := 0
				addError(fmt.Sprintf("%s is out of stock", product.Title), &zero)
				return nil
			}
		}
		if product.StockQuantity < line.Quantity {
			stock := product.StockQuantity
			addError(fmt.Sprintf("%s: Only %d in stock, but %d requested",
				product.Title, stock, line.Quantity), &stock)
			return nil
		}
		available = product.StockQuantity
	}

	remaining := available - line.Quantity
	if remaining <= v.lowStockThreshold {
		result.Warnings = append(result.Warnings, entity.StockWarning{
			ProductID:         line.ProductID,
			VariantID:         line.VariantID,
			Warning:           fmt.Sprintf("%s: Only %d left in stock after this order", product.Title, remaining),
			RemainingQuantity: remaining,
		})
	}
	return nil
}
