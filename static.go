package spacetraveling

import (
	"context"
	"fmt"

	"github.com/eringen/spacetraveling/prismic"
)

// HomeProps is the generated data of the listing page.
type HomeProps struct {
	PostsPagination PostPage `json:"postsPagination"`
}

// PostProps is the generated data of a post page.
type PostProps struct {
	Post PostDetail `json:"post"`
}

const homeRoute = "/"

func postRoute(uid string) string {
	return "/post/" + PathEscape(uid) + "/"
}

func (a *App) fetchHome(ctx context.Context, cms *prismic.Client) (HomeProps, error) {
	resp, err := cms.FetchByType(ctx, PostType, prismic.QueryOptions{PageSize: a.Config.HomePageSize})
	if err != nil {
		return HomeProps{}, fmt.Errorf("fetch posts: %w", err)
	}
	page, err := a.normalizer.Page(resp)
	if err != nil {
		return HomeProps{}, err
	}
	return HomeProps{PostsPagination: page}, nil
}

func (a *App) fetchPost(ctx context.Context, cms *prismic.Client, uid string) (PostProps, error) {
	doc, err := cms.FetchByUID(ctx, PostType, uid)
	if err != nil {
		return PostProps{}, fmt.Errorf("fetch post %q: %w", uid, err)
	}
	post, err := a.normalizer.Detail(doc)
	if err != nil {
		return PostProps{}, err
	}
	return PostProps{Post: post}, nil
}

// LoadHome returns the listing data. Published content comes from the page
// cache; a preview client always loads fresh data.
func (a *App) LoadHome(ctx context.Context, cms *prismic.Client) (HomeProps, error) {
	if cms.Preview() {
		return a.fetchHome(ctx, cms)
	}
	return loadPage(ctx, a.Cache, homeRoute, a.Config.HomeRevalidate, func(ctx context.Context) (HomeProps, error) {
		return a.fetchHome(ctx, a.CMS)
	})
}

// LoadPost returns the data of one post, generated on first request when it
// was not pre-rendered.
func (a *App) LoadPost(ctx context.Context, cms *prismic.Client, uid string) (PostProps, error) {
	if cms.Preview() {
		return a.fetchPost(ctx, cms, uid)
	}
	return loadPage(ctx, a.Cache, postRoute(uid), a.Config.PostRevalidate, func(ctx context.Context) (PostProps, error) {
		return a.fetchPost(ctx, a.CMS, uid)
	})
}

// StaticPaths returns the uids of the most recent posts to pre-render.
// Other posts are rendered on their first request.
func (a *App) StaticPaths(ctx context.Context) ([]string, error) {
	resp, err := a.CMS.FetchByType(ctx, PostType, prismic.QueryOptions{PageSize: a.Config.StaticPathsPageSize})
	if err != nil {
		return nil, fmt.Errorf("fetch static paths: %w", err)
	}
	uids := make([]string, 0, len(resp.Results))
	for _, doc := range resp.Results {
		if doc.UID != "" {
			uids = append(uids, doc.UID)
		}
	}
	return uids, nil
}

// Generate renders the listing page and every static path into the page
// cache and its snapshots. It returns the number of pages generated.
func (a *App) Generate(ctx context.Context) (int, error) {
	if err := a.prepare(); err != nil {
		return 0, err
	}
	gen := a.Cache.generation()
	home, err := a.fetchHome(ctx, a.CMS)
	if err != nil {
		return 0, fmt.Errorf("generate %s: %w", homeRoute, err)
	}
	a.Cache.put(homeRoute, home, gen)
	n := 1

	uids, err := a.StaticPaths(ctx)
	if err != nil {
		return n, err
	}
	for _, uid := range uids {
		props, err := a.fetchPost(ctx, a.CMS, uid)
		if err != nil {
			return n, fmt.Errorf("generate %s: %w", postRoute(uid), err)
		}
		a.Cache.put(postRoute(uid), props, gen)
		n++
	}
	return n, nil
}

const (
	recentRoute    = "/feed.xml"
	recentPageSize = 20
)

// LoadRecent returns the most recently published posts for the feed and the
// sitemap, cached like the listing page.
func (a *App) LoadRecent(ctx context.Context) ([]Post, error) {
	return loadPage(ctx, a.Cache, recentRoute, a.Config.HomeRevalidate, func(ctx context.Context) ([]Post, error) {
		resp, err := a.CMS.FetchByType(ctx, PostType, prismic.QueryOptions{
			PageSize:  recentPageSize,
			Orderings: "[document.first_publication_date desc]",
		})
		if err != nil {
			return nil, fmt.Errorf("fetch recent posts: %w", err)
		}
		page, err := a.normalizer.Page(resp)
		if err != nil {
			return nil, err
		}
		return page.Results, nil
	})
}
