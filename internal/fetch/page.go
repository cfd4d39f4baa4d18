package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pageRef is what a strip page points at.
type pageRef struct {
	imageURL *url.URL
	title    string
}

// parseStripPage finds the strip image on an HTML page. The Open Graph image
// wins; otherwise the first <img> whose class mentions "comic" is used.
func parseStripPage(page []byte, base *url.URL) (pageRef, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return pageRef{}, fmt.Errorf("%w: parse strip page: %v", ErrMalformedResponse, err)
	}

	var (
		ogImage, ogTitle string
		imgSrc, imgAlt   string
		docTitle         string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				switch attr(n, "property") {
				case "og:image":
					if ogImage == "" {
						ogImage = attr(n, "content")
					}
				case "og:title":
					if ogTitle == "" {
						ogTitle = attr(n, "content")
					}
				}
			case atom.Img:
				if imgSrc == "" && strings.Contains(strings.ToLower(attr(n, "class")), "comic") {
					imgSrc = attr(n, "src")
					imgAlt = attr(n, "alt")
				}
			case atom.Title:
				if docTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					docTitle = n.FirstChild.Data
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	src := strings.TrimSpace(ogImage)
	if src == "" {
		src = strings.TrimSpace(imgSrc)
	}
	if src == "" {
		return pageRef{}, fmt.Errorf("%w: no strip image on %s", ErrMalformedResponse, base)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return pageRef{}, fmt.Errorf("%w: strip image url %q: %v", ErrMalformedResponse, src, err)
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return pageRef{}, fmt.Errorf("%w: strip image url %q is not http", ErrMalformedResponse, src)
	}

	title := firstNonEmpty(ogTitle, imgAlt, docTitle)
	return pageRef{imageURL: resolved, title: title}, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
