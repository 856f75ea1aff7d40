package admin

import (
	"html"
	"html/template"
	"net/url"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// directoryHTML returns the allow-list applied to HTML from the directory.
func directoryHTML() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("href", "title", "target").OnElements("a")
	p.AllowAttrs("title").OnElements("abbr", "acronym")
	p.AllowAttrs("class").OnElements("div", "span")
	p.AllowAttrs("src", "class", "alt").OnElements("img")
	p.AllowElements("code", "pre", "em", "strong", "div", "span", "p", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	return p
}

var (
	fieldPolicy = directoryHTML()

	// linkPolicy also opens absolute links in a new window.
	linkPolicy = func() *bluemonday.Policy {
		p := directoryHTML()
		p.AddTargetBlankToFullyQualifiedLinks(true)
		return p
	}()
)

func sanitizeField(s string) template.HTML {
	return template.HTML(fieldPolicy.Sanitize(s)) //nolint:gosec // sanitized
}

func sanitizeAuthor(s string) template.HTML {
	return template.HTML(linkPolicy.Sanitize(s)) //nolint:gosec // sanitized
}

// sanitizeSection cleans a documentation section, resolves its relative
// links against base and opens them in a new window.
func sanitizeSection(content, base string) template.HTML {
	clean := fieldPolicy.Sanitize(content)
	clean = rebaseLinks(clean, base)
	return template.HTML(linkPolicy.Sanitize(clean)) //nolint:gosec // sanitized
}

var linkAttr = regexp.MustCompile(`(?i)\b(href|src)=(["'])(.+?)(["'])`)

// rebaseLinks resolves relative href and src values against base.
func rebaseLinks(doc, base string) string {
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return doc
	}
	return linkAttr.ReplaceAllStringFunc(doc, func(m string) string {
		parts := linkAttr.FindStringSubmatch(m)
		if parts[2] != parts[4] {
			return m
		}
		ref, err := url.Parse(html.UnescapeString(parts[3]))
		if err != nil || ref.IsAbs() {
			return m
		}
		return parts[1] + "=" + parts[2] + html.EscapeString(b.ResolveReference(ref).String()) + parts[4]
	})
}
