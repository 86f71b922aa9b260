package artifact

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ExtractText returns the human-visible text of an HTML document: text nodes
// outside script and style, the content of meta elements and title attributes.
// Fragments are joined with single spaces.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "meta":
				if c := attr(n, "content"); c != "" {
					parts = append(parts, c)
				}
			}
			if t := attr(n, "title"); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " "), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
