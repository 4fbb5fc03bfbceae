package markdown

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// DefaultExternalSchemes are the link schemes treated as external.
var DefaultExternalSchemes = []string{"http", "https"}

var externalRel = []string{"nofollow", "noopener", "noreferrer"}

// RewriteExternalLinks adds target="_blank" and a nofollow/noopener/noreferrer
// rel to every anchor whose href uses one of schemes. All other markup is
// copied through byte for byte.
func RewriteExternalLinks(document string, schemes []string) (string, error) {
	if len(schemes) == 0 || !strings.Contains(document, "<a") {
		return document, nil
	}
	allowed := make(map[string]bool, len(schemes))
	for _, scheme := range schemes {
		allowed[strings.ToLower(strings.TrimSuffix(strings.TrimSpace(scheme), ":"))] = true
	}

	var out bytes.Buffer
	out.Grow(len(document) + 64)
	z := html.NewTokenizer(strings.NewReader(document))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			return out.String(), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			raw := slices.Clone(z.Raw())
			token := z.Token()
			if token.Data != "a" || !rewriteAnchor(&token, allowed) {
				out.Write(raw)
				continue
			}
			out.WriteString(token.String())
		default:
			out.Write(z.Raw())
		}
	}
}

func rewriteAnchor(token *html.Token, allowed map[string]bool) bool {
	hrefIdx := slices.IndexFunc(token.Attr, func(a html.Attribute) bool { return a.Key == "href" })
	if hrefIdx < 0 || !allowed[linkScheme(token.Attr[hrefIdx].Val)] {
		return false
	}

	setAttr(token, "target", "_blank")

	var rel []string
	if idx := slices.IndexFunc(token.Attr, func(a html.Attribute) bool { return a.Key == "rel" }); idx >= 0 {
		rel = strings.Fields(token.Attr[idx].Val)
	}
	for _, value := range externalRel {
		if !slices.Contains(rel, value) {
			rel = append(rel, value)
		}
	}
	setAttr(token, "rel", strings.Join(rel, " "))
	return true
}

func setAttr(token *html.Token, key, value string) {
	for i := range token.Attr {
		if token.Attr[i].Key == key {
			token.Attr[i].Val = value
			return
		}
	}
	token.Attr = append(token.Attr, html.Attribute{Key: key, Val: value})
}

func linkScheme(href string) string {
	href = strings.TrimSpace(href)
	scheme, _, found := strings.Cut(href, ":")
	if !found || scheme == "" || strings.ContainsAny(scheme, "/?#") {
		return ""
	}
	return strings.ToLower(scheme)
}
