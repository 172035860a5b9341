package model

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryCycle    = errors.New("category cannot be its own ancestor")
	ErrNameRequired     = errors.New("category name is required")

	ErrProductNotFound = errors.New("product not found")
	ErrTitleRequired   = errors.New("product title is required")
	ErrPriceInvalid    = errors.New("product price must be zero or positive with at most 2 decimal places")
	ErrNotABundle      = errors.New("product is not a bundle")
	ErrBundleCycle     = errors.New("bundle cannot contain itself")
)
