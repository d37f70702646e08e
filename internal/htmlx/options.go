// Package htmlx extracts <select> option lists from SGP admin pages. The
// contract is deliberately narrow so the parser can change without touching
// callers.
package htmlx

import (
	"strings"

	"golang.org/x/net/html"
)

// Option is one <option> with a non-empty value attribute.
type Option struct {
	ID   string
	Text string
}

// ExtractOptions parses the document and returns the options of the <select>
// with the given element id. Options without a value, or with an empty
// value, are skipped. Non-breaking spaces in the option text are normalized
// to plain spaces and the text is trimmed.
func ExtractOptions(doc, elementID string) ([]Option, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	sel := findSelect(root, elementID)
	if sel == nil {
		return nil, nil
	}

	var options []Option
	for node := range sel.Descendants() {
		if node.Type != html.ElementNode || node.Data != "option" {
			continue
		}
		value := attr(node, "value")
		if value == "" {
			continue
		}
		options = append(options, Option{ID: value, Text: normalizeText(nodeText(node))})
	}
	return options, nil
}

func findSelect(node *html.Node, elementID string) *html.Node {
	if node.Type == html.ElementNode && node.Data == "select" && attr(node, "id") == elementID {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findSelect(child, elementID); found != nil {
			return found
		}
	}
	return nil
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		} else {
			sb.WriteString(nodeText(child))
		}
	}
	return sb.String()
}

func normalizeText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, " ", " "))
}
