package models

// SubCategory lives inside its parent category document.
type SubCategory struct {
	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`
}

// Category is a top-level node of the ad taxonomy.
type Category struct {
	Base          `bson:",inline"`
	Name          string        `bson:"name" json:"name"`
	Slug          string        `bson:"slug" json:"slug"`
	Icon          string        `bson:"icon,omitempty" json:"icon,omitempty"`
	Order         int           `bson:"order" json:"order"`
	SubCategories []SubCategory `bson:"sub_categories" json:"sub_categories"`
}

// HasSubCategory reports whether slug names one of the category's subcategories.
func (c *Category) HasSubCategory(slug string) bool {
	for _, sc := range c.SubCategories {
		if sc.Slug == slug {
			return true
		}
	}
	return false
}
