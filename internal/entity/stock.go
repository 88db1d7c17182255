package entity

// CartLine is one line of a cart as submitted for validation.
type CartLine struct {
	ProductID string `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type StockError struct {
	ProductID         string `json:"product_id"`
	VariantID         *int64 `json:"variant_id,omitempty"`
	Error             string `json:"error"`
	AvailableQuantity *int   `json:"available_quantity,omitempty"`
}

type StockWarning struct {
	ProductID         string `json:"product_id"`
	VariantID         *int64 `json:"variant_id,omitempty"`
	Warning           string `json:"warning"`
	RemainingQuantity int    `json:"remaining_quantity"`
}

type StockValidationResult struct {
	Valid    bool           `json:"valid"`
	Errors   []StockError   `json:"errors"`
	Warnings []StockWarning `json:"warnings"`
}
