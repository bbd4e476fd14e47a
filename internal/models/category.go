package models

import "encoding/json"

// Category is a live-TV category as returned by get_live_categories.
// Members other than the three below are kept in Extra.
type Category struct {
	CategoryID   ID
	CategoryName string
	ParentID     ID

	Extra map[string]json.RawMessage
}

// UnmarshalJSON reads members leniently, like Channel.
func (c *Category) UnmarshalJSON(b []byte) error {
	m := fields(b)
	*c = Category{
		CategoryID:   takeID(m, "category_id"),
		CategoryName: takeText(m, "category_name"),
		ParentID:     takeID(m, "parent_id"),
	}
	if len(m) > 0 {
		c.Extra = m
	}
	return nil
}

func (c Category) MarshalJSON() ([]byte, error) {
	out := withExtra(c.Extra, 3)
	putText(out, "category_id", c.CategoryID.String(), false)
	putText(out, "category_name", c.CategoryName, false)
	putText(out, "parent_id", c.ParentID.String(), true)
	return json.Marshal(out)
}
