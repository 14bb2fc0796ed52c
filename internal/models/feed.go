package models

// Feed represents a row in the 'Feed' table
type Feed struct {
	ID         int64  `db:"Id" json:"id"`
	CategoryID int64  `db:"CategoryId" json:"category_id"`
	Title      string `db:"Title" json:"title"`
	Type       string `db:"Type" json:"type"`
	HTMLURL    string `db:"HtmlUrl" json:"html_url"`
	XMLURL     string `db:"XmlUrl" json:"xml_url"`
}

// NewFeed creates a new rss Feed in the given category
func NewFeed(categoryID int64, title, xmlURL string) Feed {
	return Feed{
		CategoryID: categoryID,
		Title:      title,
		Type:       "rss",
		XMLURL:     xmlURL,
	}
}

// WithID returns a copy of the feed with a different ID.
func (f Feed) WithID(id int64) Feed {
	f.ID = id
	return f
}

// WithCategory returns a copy of the feed moved to another category.
func (f Feed) WithCategory(categoryID int64) Feed {
	f.CategoryID = categoryID
	return f
}

// WithTitle returns a copy of the feed with a different title.
func (f Feed) WithTitle(title string) Feed {
	f.Title = title
	return f
}

// WithHTMLURL returns a copy of the feed pointing at another site URL.
func (f Feed) WithHTMLURL(htmlURL string) Feed {
	f.HTMLURL = htmlURL
	return f
}
