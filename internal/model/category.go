package model

type Category struct {
	BaseModel
	ParentID *string `db:"parent_id" json:"parent_id"` // Nullable, nil for a root
	Name     string  `db:"name" json:"name"`
}

func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
