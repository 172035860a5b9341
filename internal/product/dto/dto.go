package dto

type ProductFilters struct {
	CategoryID string
	Kind       string // simple, bundle or empty for both
	Page       int
	PageSize   int
}
