package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
)

// maxSitemapBytes caps how much of a sitemap is read; anything larger than
// this holds far more URLs than any crawl limit we accept.
const maxSitemapBytes = 4 << 20

type sitemapURLSet struct {
	URLs []sitemapLoc `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapURLs fetches <root>/sitemap.xml and returns the page URLs it lists,
// following one level of sitemap-index indirection. An absent sitemap is not
// an error; it returns no URLs and the caller falls back to crawling.
func (c *Crawler) sitemapURLs(ctx context.Context, start *url.URL, pageLimit int) ([]string, error) {
	root := &url.URL{Scheme: start.Scheme, Host: start.Host, Path: "/sitemap.xml"}

	locs, children, err := c.fetchSitemap(ctx, root.String())
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		if len(locs) >= pageLimit {
			break
		}
		childLocs, _, err := c.fetchSitemap(ctx, child)
		if err != nil {
			continue
		}
		locs = append(locs, childLocs...)
	}

	if len(locs) > pageLimit {
		locs = locs[:pageLimit]
	}
	return locs, nil
}

// fetchSitemap downloads and parses one sitemap document, returning page URLs
// and, for index documents, the child sitemap URLs.
func (c *Crawler) fetchSitemap(ctx context.Context, sitemapURL string) (pages, children []string, err error) {
	resp, err := c.get(ctx, sitemapURL)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read sitemap: %w", err)
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(data, &set); err == nil && len(set.URLs) > 0 {
		for _, u := range set.URLs {
			if u.Loc != "" {
				pages = append(pages, u.Loc)
			}
		}
		return pages, nil, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err == nil && len(index.Sitemaps) > 0 {
		for _, s := range index.Sitemaps {
			if s.Loc != "" {
				children = append(children, s.Loc)
			}
		}
		return nil, children, nil
	}

	return nil, nil, fmt.Errorf("no urls in sitemap %s", sitemapURL)
}
