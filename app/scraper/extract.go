package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const descriptionClass = "job-description"

// extract returns title from the first h1 and description from the first div.job-description,
// falling back to the text of the whole document
func extract(body []byte) (title, description string, err error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse html: %w", err)
	}

	title = NoTitle
	if h1 := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.H1 }); h1 != nil {
		title = strings.Join(textParts(h1), "")
	}

	container := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Div && hasClass(n, descriptionClass) })
	if container == nil {
		container = doc
	}
	return title, strings.Join(textParts(container), "\n"), nil
}

// findFirst walks the tree in document order and returns the first element matching the predicate
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, match); res != nil {
			return res
		}
	}
	return nil
}

// textParts collects trimmed non-empty text nodes under n. Comments and script, style, template bodies are skipped.
func textParts(n *html.Node) []string {
	var res []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				res = append(res, s)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template:
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return res
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}
