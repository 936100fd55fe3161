package spacetraveling

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/eringen/spacetraveling/prismic"
)

// pt-BR abbreviated month names, title-cased once at start-up.
var ptBRMonths = func() [12]string {
	abbr := [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}
	caser := cases.Title(language.BrazilianPortuguese)
	var out [12]string
	for i, m := range abbr {
		out[i] = caser.String(m)
	}
	return out
}()

var publicationLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
}

// FormatDisplayDate renders t as "dd Mmm yyyy" with pt-BR month names.
func FormatDisplayDate(t time.Time) string {
	return fmt.Sprintf("%02d %s %04d", t.Day(), ptBRMonths[t.Month()-1], t.Year())
}

// ParsePublicationDate accepts the timestamp formats the CMS emits.
func ParsePublicationDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range publicationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &prismic.SchemaError{What: fmt.Sprintf("publication date %q", raw)}
}

// Normalizer maps CMS documents onto the local post shapes. The zero value
// formats dates in UTC.
type Normalizer struct {
	Location *time.Location
}

// Normalize maps a CMS document to a listing Post using UTC dates.
func Normalize(doc prismic.Document) (Post, error) {
	return Normalizer{}.Post(doc)
}

// listingFields is the part of a post a listing row needs. The body is left
// undecoded so a malformed one cannot break the listing.
type listingFields struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

type postFields struct {
	listingFields
	Banner  Banner           `json:"banner"`
	Content []ContentSection `json:"content"`
}

// Post maps doc to its listing shape. A missing publication date stays nil.
func (n Normalizer) Post(doc prismic.Document) (Post, error) {
	var f listingFields
	if err := doc.DecodeData(&f); err != nil {
		return Post{}, err
	}
	display, at, err := n.date(doc.FirstPublicationDate)
	if err != nil {
		return Post{}, err
	}
	return Post{
		UID:                  doc.UID,
		FirstPublicationDate: display,
		PublishedAt:          at,
		Data: PostData{
			Title:    f.Title,
			Subtitle: f.Subtitle,
			Author:   f.Author,
		},
	}, nil
}

// Detail maps doc to the full post shape rendered on its own page.
func (n Normalizer) Detail(doc prismic.Document) (PostDetail, error) {
	var f postFields
	if err := doc.DecodeData(&f); err != nil {
		return PostDetail{}, err
	}
	display, at, err := n.date(doc.FirstPublicationDate)
	if err != nil {
		return PostDetail{}, err
	}
	return PostDetail{
		UID:                  doc.UID,
		FirstPublicationDate: display,
		PublishedAt:          at,
		Data: PostDetailData{
			Title:    f.Title,
			Subtitle: f.Subtitle,
			Author:   f.Author,
			Banner:   f.Banner,
			Content:  f.Content,
		},
	}, nil
}

// Page normalizes every result of a CMS page. It fails as a whole if any
// single document cannot be normalized.
func (n Normalizer) Page(resp prismic.Response) (PostPage, error) {
	posts := make([]Post, 0, len(resp.Results))
	for _, doc := range resp.Results {
		p, err := n.Post(doc)
		if err != nil {
			return PostPage{}, fmt.Errorf("normalize %q: %w", doc.ID, err)
		}
		posts = append(posts, p)
	}
	return PostPage{Results: posts, NextPage: resp.NextPage}, nil
}

func (n Normalizer) date(raw *string) (*string, *time.Time, error) {
	if raw == nil {
		return nil, nil, nil
	}
	t, err := ParsePublicationDate(*raw)
	if err != nil {
		return nil, nil, err
	}
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	display := FormatDisplayDate(t)
	return &display, &t, nil
}
