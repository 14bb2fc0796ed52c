package models

// DefaultCategoryID is the category seeded when the schema is created.
const DefaultCategoryID int64 = 1

// Category represents a row in the 'Category' table
type Category struct {
	ID    int64  `db:"Id" json:"id"`
	Title string `db:"Title" json:"title"`
}

// WithTitle returns a copy of the category with a different title.
func (c Category) WithTitle(title string) Category {
	c.Title = title
	return c
}
