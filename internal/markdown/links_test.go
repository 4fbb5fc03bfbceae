package markdown

import "testing"

func TestRewriteExternalLinks(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{
			name: "external anchor",
			in:   `<p><a href="https://example.com">x</a></p>`,
			want: `<p><a href="https://example.com" target="_blank" rel="nofollow noopener noreferrer">x</a></p>`,
		},
		{
			name: "existing rel merged",
			in:   `<a href="HTTP://example.com" rel="author noopener">x</a>`,
			want: `<a href="HTTP://example.com" rel="author noopener nofollow noreferrer" target="_blank">x</a>`,
		},
		{
			name: "relative and fragment untouched",
			in:   `<a href="/blog/a">a</a><a href="#top">b</a><a href="//cdn.example.com">c</a>`,
			want: `<a href="/blog/a">a</a><a href="#top">b</a><a href="//cdn.example.com">c</a>`,
		},
		{
			name: "other markup copied verbatim",
			in:   `<p CLASS="x">A &amp; B<br/><img src="https://example.com/a.png"></p>`,
			want: `<p CLASS="x">A &amp; B<br/><img src="https://example.com/a.png"></p>`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RewriteExternalLinks(tc.in, DefaultExternalSchemes)
			if err != nil {
				t.Fatalf("RewriteExternalLinks: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected output\nwant %q\ngot  %q", tc.want, got)
			}
		})
	}
}

func TestRewriteExternalLinksCustomSchemes(t *testing.T) {
	got, err := RewriteExternalLinks(`<a href="ftp://files.example.com">f</a><a href="https://example.com">h</a>`, []string{"ftp:"})
	if err != nil {
		t.Fatalf("RewriteExternalLinks: %v", err)
	}
	want := `<a href="ftp://files.example.com" target="_blank" rel="nofollow noopener noreferrer">f</a><a href="https://example.com">h</a>`
	if got != want {
		t.Fatalf("unexpected output\nwant %q\ngot  %q", want, got)
	}
}

func TestLinkScheme(t *testing.T) {
	cases := map[string]string{
		"https://example.com": "https",
		" Mailto:me@x.com":    "mailto",
		"/path:with-colon":    "",
		"page.html":           "",
		"?q=a:b":              "",
	}
	for href, want := range cases {
		if got := linkScheme(href); got != want {
			t.Fatalf("linkScheme(%q) = %q, want %q", href, got, want)
		}
	}
}
