package dto

type CategoryFilters struct {
	ParentID *string // Nil means ignore, Empty string means root categories
	Page     int
	PageSize int
}
