package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// elements whose text content is never rendered
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Text returns the visible text beneath node. Text inside script, style,
// noscript and template subtrees is ignored.
func Text(node *html.Node) string {
	var buffer bytes.Buffer
	textRecursive(node, &buffer)
	return buffer.String()
}

func textRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && skipElements[node.Data] {
		return
	}
	child := node.FirstChild
	for child != nil {
		textRecursive(child, buffer)
		child = child.NextSibling
	}
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean collapses whitespace runs to a single space, strips non-printable
// runes and trims the result. Newlines and tabs count as separators, so
// text from adjacent lines never runs together.
func Clean(s string) string {
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = removeNonPrintable(s)
	return strings.Trim(s, " ")
}

// DocumentText returns the cleaned visible text of the document body,
// falling back to the document root when there is no body element.
func DocumentText(doc *goquery.Document) string {
	body := doc.Find("body")
	if len(body.Nodes) > 0 {
		return Clean(Text(body.Nodes[0]))
	}
	if len(doc.Nodes) > 0 {
		return Clean(Text(doc.Nodes[0]))
	}
	return ""
}

type Anchor struct {
	Name string
	Href string
}

// AnchorOf returns the cleaned label and raw href of the first node in the
// selection.
func AnchorOf(sel *goquery.Selection) Anchor {
	if len(sel.Nodes) == 0 {
		return Anchor{}
	}
	node := sel.Nodes[0]

	href := ""
	for _, a := range node.Attr {
		if a.Key == "href" {
			href = a.Val
			break
		}
	}
	return Anchor{
		Name: Clean(Text(node)),
		Href: href,
	}
}
