// Package views renders the site pages. Layouts are embedded html/template
// files exposed as templ components.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"date":       displayDate,
	"pathEscape": spacetraveling.PathEscape,
	"richText":   renderRichText,
	"jsonld":     func(cfg spacetraveling.SiteConfig) template.JS { return template.JS(spacetraveling.WebsiteJsonLD(cfg)) },
	"rawJSON":    func(s string) template.JS { return template.JS(s) },
}).ParseFS(templateFS, "templates/*.html"))

// Funcs returns the components the app renders pages with.
func Funcs() spacetraveling.ViewFuncs {
	return spacetraveling.ViewFuncs{
		Home:        Home,
		MorePosts:   MorePosts,
		Post:        Post,
		NotFound:    NotFound,
		ServerError: ServerError,
	}
}

// Home renders the listing page.
func Home(v spacetraveling.HomeView) templ.Component {
	return page("home", v)
}

// MorePosts renders the post cards appended by a load-more request.
func MorePosts(posts []spacetraveling.Post) templ.Component {
	return page("more", posts)
}

// Post renders a post page.
func Post(v spacetraveling.PostView) templ.Component {
	return page("post", v)
}

type errorPage struct {
	Title   string
	Message string
}

// NotFound renders the page for unknown routes.
func NotFound() templ.Component {
	return page("error", errorPage{
		Title:   "Página não encontrada",
		Message: "O conteúdo que você procura não existe ou foi removido.",
	})
}

// ServerError renders the page shown when page data cannot be loaded.
func ServerError() templ.Component {
	return page("error", errorPage{
		Title:   "Algo deu errado",
		Message: "Não foi possível carregar esta página. Tente novamente em instantes.",
	})
}

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return templates.ExecuteTemplate(w, name, data)
	})
}

func displayDate(d *string) string {
	if d == nil {
		return ""
	}
	return *d
}

// ResolveLink maps CMS document links to site routes.
func ResolveLink(d richtext.SpanData) string {
	if d.Type == spacetraveling.PostType && d.UID != "" {
		return "/post/" + spacetraveling.PathEscape(d.UID) + "/"
	}
	return "/"
}

// renderRichText returns sanitized HTML; AsHTML runs it through bluemonday.
func renderRichText(rt richtext.RichText) template.HTML {
	return template.HTML(richtext.AsHTML(rt, ResolveLink))
}
