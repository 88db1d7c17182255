package entity

import "github.com/shopspring/decimal"

// Product is the catalog row this service reads. Only the stock count is
// ever written from here.
type Product struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Price         decimal.Decimal     `json:"price"`
	ShippingCost  decimal.NullDecimal `json:"shipping_cost"`
	StockQuantity int                 `json:"stock_quantity"`
	IsActive      bool                `json:"is_active"`
}

// ProductVariant is a size/color combination with its own stock pool.
type ProductVariant struct {
	ID              int64           `json:"id"`
	ProductID       string          `json:"product_id"`
	SizeName        string          `json:"size_name"`
	ColorName       string          `json:"color_name"`
	StockQuantity   int             `json:"stock_quantity"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	IsAvailable     bool            `json:"is_available"`
}

// FinalPrice is the product price plus the variant's signed adjustment.
func (v *ProductVariant) FinalPrice(p *Product) decimal.Decimal {
	return p.Price.Add(v.PriceAdjustment)
}

// InStock reports whether the variant can be sold at all.
func (v *ProductVariant) InStock() bool {
	return v.IsAvailable && v.StockQuantity > 0
}

// InStock is the catalog-display rule: main stock, or any available variant
// with stock. Line-item checks must look at the selected pool instead.
func (p *Product) InStock(hasVariantStock bool) bool {
	return p.StockQuantity > 0 || hasVariantStock
}
