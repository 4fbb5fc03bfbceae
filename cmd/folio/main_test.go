package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"content/blog/first.md":     "---\ntype: blog\nslug: first\ntitle: First Post\ndate: 2021-07-09\n---\nHello goroutines.\n",
		"content/blog/second.md":    "---\ntype: blog\nslug: second\ntitle: Second Post\ndate: 2022-02-01\n---\nChannels everywhere.\n",
		"content/portfolio/site.md": "---\ntype: portfolio\ntitle: Site\nstartDate: 2020-05-01\n---\nThis site.\n",
		"content/resume/resume.md":  "---\ntype: resume\ndate: 2023-01-01\n---\nWork history.\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut)
	base := []string{"--content-dir", dir, "--output", filepath.Join(dir, "public"), "--log-level", "error"}
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCommandWritesSite(t *testing.T) {
	dir := writeSite(t)
	out, err := run(t, dir, "build")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "built 4 records") {
		t.Fatalf("unexpected summary %q", out)
	}
	for _, name := range []string{"index.html", "blog/first/index.html", "404.html", "sitemap.xml"} {
		if _, err := os.Stat(filepath.Join(dir, "public", name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestBuildCommandStrict(t *testing.T) {
	dir := writeSite(t)
	bad := filepath.Join(dir, "content", "blog", "bad.md")
	if err := os.WriteFile(bad, []byte("---\ntype: blog\ntitle: Bad\n---\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, dir, "build", "--strict")
	if err == nil {
		t.Fatal("expected strict build to fail")
	}
	if !strings.Contains(out, "excluded bad.md") {
		t.Fatalf("expected exclusion report, got %q", out)
	}
}

func TestRoutesCommandJSON(t *testing.T) {
	dir := writeSite(t)
	out, err := run(t, dir, "routes", "--json")
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	var list []struct {
		Path     string `json:"path"`
		Template string `json:"template"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(list) != 7 || list[5].Path != "/blog/second" || list[6].Path != "/blog/first" {
		t.Fatalf("unexpected routes %+v", list)
	}
	if _, err := os.Stat(filepath.Join(dir, "public")); !os.IsNotExist(err) {
		t.Fatal("routes must not write output")
	}
}

func TestQueryCommand(t *testing.T) {
	dir := writeSite(t)
	out, err := run(t, dir, "query", "--namespace", "blog", "--sort", "date", "--order", "desc", "--limit", "1", "--json")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var records []recordSummary
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Slug != "second" || records[0].Date != "2022-02-01" {
		t.Fatalf("unexpected records %+v", records)
	}

	if _, err := run(t, dir, "query", "--namespace", "notes"); err == nil {
		t.Fatal("expected unknown namespace to fail")
	}
}

func TestSearchCommand(t *testing.T) {
	dir := writeSite(t)
	out, err := run(t, dir, "search", "channels")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "second.md") || strings.Contains(out, "first.md") {
		t.Fatalf("unexpected search output %q", out)
	}
}

func TestPreviewHandler(t *testing.T) {
	dir := t.TempDir()
	must := func(name, body string) {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	must("index.html", "home")
	must("blog/first/index.html", "first")
	must("404.html", "missing page")
	must("static/empty/.keep", "")

	srv := httptest.NewServer(previewHandler(dir))
	defer srv.Close()

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "home"},
		{"/blog/first/", http.StatusOK, "first"},
		{"/blog/nope/", http.StatusNotFound, "missing page"},
		{"/static/empty/", http.StatusNotFound, "missing page"},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		var body bytes.Buffer
		_, _ = body.ReadFrom(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tc.status || body.String() != tc.body {
			t.Fatalf("GET %s: got %d %q", tc.path, resp.StatusCode, body.String())
		}
		if resp.Header.Get("Cache-Control") == "" {
			t.Fatalf("GET %s: expected no-cache headers", tc.path)
		}
	}
}
