package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlToText flattens the provider's HTML job context into plain lines.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseLines(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseLines(s)
	}
	doc.Find("script,style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,li,tr,h1,h2,h3,h4,h5,h6").AfterHtml("\n")

	return collapseLines(doc.Text())
}

func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
