package database

// Article is one saved, extracted and sanitized piece of web content.
// JSON names match the library backup format.
type Article struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	TextContent   string  `json:"textContent"`
	Excerpt       string  `json:"excerpt"`
	Byline        string  `json:"byline"`
	SiteName      string  `json:"siteName"`
	PublishedTime string  `json:"publishedTime"`
	ListID        *string `json:"list_id,omitempty"`
	CreatedAt     int64   `json:"createdAt"`
	Tags          []Tag   `json:"tags,omitempty"`
}

// NewArticle holds the fields supplied when saving an article. ID and
// CreatedAt are assigned by the store.
type NewArticle struct {
	URL           string
	Title         string
	Content       string
	TextContent   string
	Excerpt       string
	Byline        string
	SiteName      string
	PublishedTime string
	ListID        *string
}

// List is a user-defined, ordered bucket an article belongs to.
type List struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	IsDefault bool   `json:"is_default"`
	CreatedAt int64  `json:"createdAt"`
}

// Tag is a user-defined label, many-to-many with articles.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// ArticleTag links an article to a tag in the library backup.
type ArticleTag struct {
	ArticleID string `json:"article_id"`
	TagID     string `json:"tag_id"`
}

// ArticleFilter narrows GetArticles. Empty fields match everything.
type ArticleFilter struct {
	ListID string
	Tag    string
}

// Library is the full JSON backup of the store.
type Library struct {
	Lists       []List       `json:"lists"`
	Articles    []Article    `json:"articles"`
	Tags        []Tag        `json:"tags"`
	ArticleTags []ArticleTag `json:"articleTags"`
}

// ImportResult counts the rows written by ImportLibrary.
type ImportResult struct {
	Lists       int `json:"lists"`
	Tags        int `json:"tags"`
	Articles    int `json:"articles"`
	ArticleTags int `json:"articleTags"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	Articles         int `json:"articles"`
	Lists            int `json:"lists"`
	Tags             int `json:"tags"`
	TaggedArticles   int `json:"taggedArticles"`
	UnlistedArticles int `json:"unlistedArticles"`
}
