package dto

type CreateCategoryInput struct {
	ParentID *string
	Name     string
}

type UpdateCategoryInput struct {
	ID string
	// ParentID is the full new parent: nil turns the category into a root.
	ParentID *string
	Name     string
}
