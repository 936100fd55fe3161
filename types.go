package spacetraveling

import (
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// PostType is the CMS custom type holding blog posts.
const PostType = "post"

// Post is the listing shape of a blog post.
type Post struct {
	UID                  string     `json:"uid,omitempty"`
	FirstPublicationDate *string    `json:"first_publication_date"`
	PublishedAt          *time.Time `json:"published_at,omitempty"`
	Data                 PostData   `json:"data"`
}

// PostData holds the fields shown on the listing page.
type PostData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// PostDetail is the full post rendered on its own page.
type PostDetail struct {
	UID                  string         `json:"uid,omitempty"`
	FirstPublicationDate *string        `json:"first_publication_date"`
	PublishedAt          *time.Time     `json:"published_at,omitempty"`
	Data                 PostDetailData `json:"data"`
}

// PostDetailData extends PostData with the banner and the body sections.
type PostDetailData struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle"`
	Author   string           `json:"author"`
	Banner   Banner           `json:"banner"`
	Content  []ContentSection `json:"content"`
}

// Banner is the hero image of a post.
type Banner struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// ContentSection is one heading with its rich text body.
type ContentSection struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}

// PostPage is one page of listing results plus the cursor to the next one.
type PostPage struct {
	Results  []Post  `json:"results"`
	NextPage *string `json:"next_page"`
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// HomeView is what the listing template renders.
type HomeView struct {
	Site    SiteConfig
	Meta    PageMeta
	Posts   []Post
	MoreURL string // empty when there is nothing left to load
	Preview bool
}

// PostView is what the detail template renders.
type PostView struct {
	Site        SiteConfig
	Meta        PageMeta
	Post        PostDetail
	ReadingTime int
	JSONLD      string
	Preview     bool
}
