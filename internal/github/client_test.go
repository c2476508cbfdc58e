package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// stubAPI serves a small fixed repository: a README, two files at the
// root, one healthy subdirectory and one whose listing always fails.
func stubAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	requireAuth := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "token tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("/repos/acme/widgets/readme", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"content":  b64("# Widgets\n\nA **fine** collection."),
			"encoding": "base64",
		})
	})

	mux.HandleFunc("/repos/acme/widgets/contents", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		fmt.Fprint(w, `[
			{"name": "src", "path": "src", "type": "dir"},
			{"name": "broken", "path": "broken", "type": "dir"},
			{"name": "main.go", "path": "main.go", "type": "file", "size": 42},
			{"name": "README.md", "path": "README.md", "type": "file", "size": 30}
		]`)
	})

	mux.HandleFunc("/repos/acme/widgets/contents/src", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "util.go", "path": "src/util.go", "type": "file", "size": 7}]`)
	})

	mux.HandleFunc("/repos/acme/widgets/contents/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	mux.HandleFunc("/repos/acme/widgets/contents/main.go", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"content":  b64("package main\n"),
			"encoding": "base64",
		})
	})

	mux.HandleFunc("/repos/acme/widgets/zipball", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("PK fake zip bytes"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func stubClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient("tok", "acme", "widgets", Config{BaseURL: srv.URL})
}

func TestFetchReadme(t *testing.T) {
	c := stubClient(t, stubAPI(t))

	readme, ok := c.FetchReadme(context.Background())
	require.True(t, ok)
	assert.Contains(t, readme, "# Widgets")
}

func TestFetchReadmeAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, ok := stubClient(t, srv).FetchReadme(context.Background())
	assert.False(t, ok)
}

func TestFetchTreePartialFailure(t *testing.T) {
	c := stubClient(t, stubAPI(t))

	tree := c.FetchTree(context.Background())
	require.Len(t, tree, 4)

	byName := map[string]*Entry{}
	for _, e := range tree {
		byName[e.Name] = e
	}

	// The healthy sibling is fully populated...
	src := byName["src"]
	require.NotNil(t, src)
	require.Len(t, src.Children, 1)
	assert.Equal(t, "src/util.go", src.Children[0].Path)

	// ...while the failing directory resolves to no children.
	broken := byName["broken"]
	require.NotNil(t, broken)
	assert.Empty(t, broken.Children)

	assert.Equal(t, int64(42), byName["main.go"].Size)
}

func TestFetchTreeDepthLimit(t *testing.T) {
	// Every directory contains one more directory: an unbounded tree.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		depth := strings.Count(r.URL.Path, "/sub")
		fmt.Fprintf(w, `[{"name": "sub", "path": "%s", "type": "dir"}]`,
			strings.TrimPrefix(strings.Repeat("/sub", depth+1), "/"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("tok", "acme", "widgets", Config{BaseURL: srv.URL, MaxDepth: 3})

	tree := c.FetchTree(context.Background())
	require.Len(t, tree, 1)

	chain := 0
	for node := tree[0]; ; node = node.Children[0] {
		chain++
		if len(node.Children) == 0 {
			break
		}
	}
	assert.Equal(t, 3, chain, "traversal must stop at the depth budget")
}

func TestFetchTreeNodeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ten directories per level, forever.
		var entries []*Entry
		for i := 0; i < 10; i++ {
			path := strings.Trim(r.URL.Path[len("/repos/acme/widgets/contents"):], "/")
			if path != "" {
				path += "/"
			}
			entries = append(entries, &Entry{
				Name: fmt.Sprintf("d%d", i),
				Path: fmt.Sprintf("%sd%d", path, i),
				Type: "dir",
			})
		}
		json.NewEncoder(w).Encode(entries)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("tok", "acme", "widgets", Config{BaseURL: srv.URL, MaxNodes: 50})

	tree := c.FetchTree(context.Background())

	total := 0
	var count func([]*Entry)
	count = func(es []*Entry) {
		total += len(es)
		for _, e := range es {
			count(e.Children)
		}
	}
	count(tree)

	// One listing may overshoot the budget, but the traversal stops
	// expanding once it is hit.
	assert.LessOrEqual(t, total, 60)
	assert.Greater(t, total, 0)
}

func TestFetchFile(t *testing.T) {
	c := stubClient(t, stubAPI(t))

	content, err := c.FetchFile(context.Background(), "main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)
}

func TestFetchArchive(t *testing.T) {
	c := stubClient(t, stubAPI(t))

	body, err := c.FetchArchive(context.Background())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "PK fake zip bytes", string(data))
}

func TestFetchArchiveUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := stubClient(t, srv).FetchArchive(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("tok", "acme", "widgets", Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	// A stalled remote fails the fetch instead of hanging.
	_, ok := c.FetchReadme(context.Background())
	assert.False(t, ok)

	_, err := c.FetchArchive(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	html := string(RenderMarkdown("# Title\n\n<script>alert(1)</script>\n\n*em*"))
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<em>em</em>")
	assert.NotContains(t, html, "<script>")
}
