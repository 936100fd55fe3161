package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/richtext"
)

func render(t *testing.T, cmp templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := cmp.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return buf.String()
}

func strPtr(s string) *string { return &s }

func samplePosts() []spacetraveling.Post {
	return []spacetraveling.Post{
		{
			UID:                  "como-utilizar-hooks",
			FirstPublicationDate: strPtr("15 Mar 2021"),
			Data: spacetraveling.PostData{
				Title:    "Como utilizar Hooks",
				Subtitle: "Pensando em sincronização em vez de ciclos de vida",
				Author:   "Joseph Oliveira",
			},
		},
		{UID: "sem-data", Data: spacetraveling.PostData{Title: "Sem data"}},
	}
}

func TestHomeRendersCardsAndLoadMore(t *testing.T) {
	out := render(t, Home(spacetraveling.HomeView{
		Site:    spacetraveling.SiteConfig{Name: "spacetraveling", Lang: "pt-BR"},
		Meta:    spacetraveling.PageMeta{Title: "spacetraveling"},
		Posts:   samplePosts(),
		MoreURL: "/more/abc/",
	}))

	for _, want := range []string{
		`href="/post/como-utilizar-hooks/"`,
		"Como utilizar Hooks",
		"15 Mar 2021",
		"Joseph Oliveira",
		`data-load-more="/more/abc/"`,
		"Carregar mais posts",
		`id="posts"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("home output missing %q", want)
		}
	}
	if strings.Contains(out, "Sair do modo Preview") {
		t.Error("preview banner rendered outside preview")
	}
}

func TestHomeWithoutMoreHidesButton(t *testing.T) {
	out := render(t, Home(spacetraveling.HomeView{Posts: samplePosts(), Preview: true}))
	if strings.Contains(out, "data-load-more") {
		t.Error("load more button rendered without a next page")
	}
	if !strings.Contains(out, "/api/exit-preview/") {
		t.Error("preview banner missing")
	}
}

func TestMorePostsRendersFragment(t *testing.T) {
	out := render(t, MorePosts(samplePosts()))
	if strings.Contains(out, "<html") {
		t.Error("fragment should not contain the layout")
	}
	if strings.Count(out, `class="post-card"`) != 2 {
		t.Errorf("expected 2 cards, got %q", out)
	}
}

func TestPostRendersContent(t *testing.T) {
	out := render(t, Post(spacetraveling.PostView{
		Site: spacetraveling.SiteConfig{Name: "spacetraveling"},
		Meta: spacetraveling.PageMeta{Title: "Criando um app"},
		Post: spacetraveling.PostDetail{
			UID:                  "criando-um-app",
			FirstPublicationDate: strPtr("25 Mar 2021"),
			Data: spacetraveling.PostDetailData{
				Title:  "Criando um app CRA do zero",
				Author: "Danilo Vieira",
				Banner: spacetraveling.Banner{URL: "https://images.prismic.io/banner.png", Alt: "banner"},
				Content: []spacetraveling.ContentSection{{
					Heading: "Proin et varius",
					Body: richtext.RichText{{
						Type: richtext.Paragraph,
						Text: "veja outro post",
						Spans: []richtext.Span{{
							Start: 5, End: 15, Type: richtext.Hyperlink,
							Data: &richtext.SpanData{LinkType: "Document", Type: "post", UID: "outro"},
						}},
					}},
				}},
			},
		},
		ReadingTime: 4,
		JSONLD:      `{"@type":"BlogPosting"}`,
	}))

	for _, want := range []string{
		"Criando um app CRA do zero",
		"25 Mar 2021",
		"Danilo Vieira",
		"4 min",
		`src="https://images.prismic.io/banner.png"`,
		"Proin et varius",
		`href="/post/outro/"`,
		`{"@type":"BlogPosting"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("post output missing %q", want)
		}
	}
}

func TestErrorPages(t *testing.T) {
	if out := render(t, NotFound()); !strings.Contains(out, "Página não encontrada") {
		t.Errorf("not found page = %q", out)
	}
	if out := render(t, ServerError()); !strings.Contains(out, "Algo deu errado") {
		t.Errorf("server error page = %q", out)
	}
}

func TestResolveLink(t *testing.T) {
	if got := ResolveLink(richtext.SpanData{Type: "post", UID: "a b"}); got != "/post/a%20b/" {
		t.Errorf("ResolveLink = %q", got)
	}
	if got := ResolveLink(richtext.SpanData{Type: "page", UID: "about"}); got != "/" {
		t.Errorf("ResolveLink = %q", got)
	}
}
