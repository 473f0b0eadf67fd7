package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/filesearch/internal/config"
	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/search"
	"github.com/standardbeagle/filesearch/internal/workspace"
	"github.com/standardbeagle/filesearch/testhelpers"
)

type searchBody struct {
	Response struct {
		NumFound int `json:"numFound"`
		Start    int `json:"start"`
		Docs     []struct {
			Location string
			Name     string
			Path     string
		} `json:"docs"`
	} `json:"response"`
}

func newSearchServer(t *testing.T, tweak ...func(*config.Config)) *Server {
	t.Helper()
	ws := testhelpers.SampleProject(t)
	cfg := config.Default(ws.Root)
	cfg.Search.Workers = 2
	for _, f := range tweak {
		f(cfg)
	}
	resolver, err := workspace.NewResolver(ws.Root, cfg.Workspace.FileRoot)
	require.NoError(t, err)

	return NewServer(cfg, search.NewEngine(cfg, resolver))
}

func newTestServer(t *testing.T, tweak ...func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	srv := newSearchServer(t, tweak...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// get issues a request with a raw, already-encoded query string.
func get(t *testing.T, ts *httptest.Server, rawQuery string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/filesearch?"+rawQuery, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) searchBody {
	t.Helper()
	var body searchBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSearchEndpoint_EncodedQueries(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name     string
		rawQuery string
		want     int
	}{
		{"simple", "q=hello+Location:/file/project&rows=5&start=0", 1},
		{"encoded_phrase", "q=hello%20world+Location:/file/project&rows=5&start=0", 1},
		{"encoded_html", "q=%3Chtml%3E+Location:/file/project&rows=5&start=0", 1},
		{"encoded_ampersand", "q=amber%26sand+Location:/file/project&rows=5&start=0", 1},
		{"word_concatenation", "q=myFunc(one+Location:/file/project&rows=5&start=0", 1},
		{"wildcard_excluded", "q=hel*+Location:/file/project+Exclude:fizz.txt&rows=5&start=0", 0},
		{"unknown_keys", "q=Bogus:1+hello+Location:/file/project+Other:2&rows=5&start=0", 1},
		{"wildcard_location", "q=hello+Location:/file/project*&rows=5", 1},
		{"no_window_params", "q=hello", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts, tt.rawQuery)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			body := decode(t, resp)
			assert.Equal(t, tt.want, body.Response.NumFound)
			assert.Len(t, body.Response.Docs, tt.want)
		})
	}
}

func TestSearchEndpoint_ResponseShape(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "q=hello+Location:/file/project&rows=5&start=0")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	inner := raw["response"]
	require.NotNil(t, inner)
	assert.EqualValues(t, 1, inner["numFound"])
	assert.EqualValues(t, 0, inner["start"])

	docs, ok := inner["docs"].([]any)
	require.True(t, ok)
	require.Len(t, docs, 1)
	assert.Equal(t, map[string]any{
		"Location": "/file/project/fizz.txt",
		"Name":     "fizz.txt",
		"Path":     "project/fizz.txt",
	}, docs[0])
}

func TestSearchEndpoint_ZeroMatchesHasEmptyDocs(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "q=nothing-like-this&rows=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, []any{}, raw["response"]["docs"])
}

func TestSearchEndpoint_PaginationAndSort(t *testing.T) {
	_, ts := newTestServer(t)

	v := url.Values{}
	v.Set("q", "Location:/file/project")
	v.Set("sort", "Path desc")
	v.Set("rows", "2")
	v.Set("start", "1")

	body := decode(t, get(t, ts, v.Encode()))
	assert.Equal(t, 4, body.Response.NumFound)
	assert.Equal(t, 1, body.Response.Start)
	require.Len(t, body.Response.Docs, 2)
	assert.Equal(t, "project/notes/readme.md", body.Response.Docs[0].Path)
	assert.Equal(t, "project/folder/space.txt", body.Response.Docs[1].Path)
}

func TestSearchEndpoint_RowsAreCapped(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Search.DefaultRows = 1
		cfg.Search.MaxRows = 2
	})

	body := decode(t, get(t, ts, "q=Location:/file/project"))
	assert.Len(t, body.Response.Docs, 1, "default rows")

	body = decode(t, get(t, ts, "q=Location:/file/project&rows=1000"))
	assert.Equal(t, 4, body.Response.NumFound)
	assert.Len(t, body.Response.Docs, 2, "max rows")
}

func TestSearchEndpoint_Errors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name     string
		rawQuery string
		status   int
		errType  errors.ErrorType
		key      string
	}{
		{"bad_rows", "q=hello&rows=many", http.StatusBadRequest, errors.ErrorTypeParse, "rows"},
		{"negative_start", "q=hello&start=-1", http.StatusBadRequest, errors.ErrorTypeParse, "start"},
		{"bad_boolean", "q=hello+WholeWord:maybe", http.StatusBadRequest, errors.ErrorTypeParse, "WholeWord"},
		{"bad_regex", "q=hel(+RegEx:true", http.StatusBadRequest, errors.ErrorTypeParse, "RegEx"},
		{"bad_sort", "q=hello&sort=Size+asc", http.StatusBadRequest, errors.ErrorTypeParse, "sort"},
		{"missing_location", "q=hello+Location:/file/missing", http.StatusNotFound, errors.ErrorTypeScope, ""},
		{"escaping_location", "q=hello+Location:/file/../..", http.StatusNotFound, errors.ErrorTypeScope, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts, tt.rawQuery)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, string(tt.errType), body.Type)
			if tt.key != "" {
				assert.Equal(t, tt.key, body.Key)
			} else {
				assert.NotEmpty(t, body.Location)
			}
		})
	}
}

func TestSearchEndpoint_MethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/filesearch?q=hello", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestSearchEndpoint_ETag(t *testing.T) {
	_, ts := newTestServer(t)
	const q = "q=hello+Location:/file/project&rows=5&start=0"

	first := get(t, ts, q)
	require.Equal(t, http.StatusOK, first.StatusCode)
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	again := get(t, ts, q)
	assert.Equal(t, etag, again.Header.Get("ETag"), "same results, same tag")

	cached := get(t, ts, q, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)

	listed := get(t, ts, q, "If-None-Match", `"0000000000000000", `+etag)
	assert.Equal(t, http.StatusNotModified, listed.StatusCode)

	stale := get(t, ts, q, "If-None-Match", `"0000000000000000"`)
	assert.Equal(t, http.StatusOK, stale.StatusCode)

	other := get(t, ts, "q=worlds")
	assert.NotEqual(t, etag, other.Header.Get("ETag"))
}

func TestSearchEndpoint_IgnoredFiltersHeader(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "q=hello+Bogus:1+Location:/file/project")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bogus:1", resp.Header.Get(IgnoredHeader))

	resp = get(t, ts, "q=hello")
	assert.Empty(t, resp.Header.Get(IgnoredHeader))
}

func TestSearchEndpoint_ClientGoneWritesNothing(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/filesearch?q=hello", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.NewParseError("rows", "x", nil)))
	assert.Equal(t, http.StatusNotFound, statusFor(errors.NewScopeError("/file/x", "/x", nil)))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(fmt.Errorf("walk: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}

func TestPing(t *testing.T) {
	srv, ts := newTestServer(t)
	get(t, ts, "q=hello")

	resp, err := ts.Client().Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ping PingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ping))
	assert.NotEmpty(t, ping.Version)
	assert.NotEmpty(t, ping.BuildID)
	assert.Equal(t, srv.cfg.Workspace.Root, ping.Root)
	assert.EqualValues(t, 1, ping.Requests)
}

func TestServer_StartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newSearchServer(t)
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	assert.Error(t, srv.Start("127.0.0.1:0"), "second start")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr() + "/filesearch?q=hello")
	require.NoError(t, err)
	body := decode(t, resp)
	resp.Body.Close()
	assert.Equal(t, 1, body.Response.NumFound)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx), "second shutdown is a no-op")

	_, err = client.Get("http://" + srv.Addr() + "/ping")
	assert.Error(t, err)
}
