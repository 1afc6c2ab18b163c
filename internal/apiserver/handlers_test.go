package apiserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cncf/clotributor/internal/config"
	"github.com/cncf/clotributor/internal/db"
)

var errFake = errors.New("fake error")

func TestIssuesFilters(t *testing.T) {
	t.Parallel()

	catalogue := &fakeDB{filters: []byte(`{"some": "filters"}`)}
	router := setupTestRouter(t, catalogue)

	w := doRequest(router, "/api/filters/issues")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "max-age=300", w.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"some": "filters"}`, w.Body.String())

	// A second request is served from the cache
	w = doRequest(router, "/api/filters/issues")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"some": "filters"}`, w.Body.String())
	assert.Equal(t, 1, catalogue.filtersCalls)
}

func TestIssuesFiltersInternalError(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(t, &fakeDB{filtersErr: errFake})
	w := doRequest(router, "/api/filters/issues")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSearchIssues(t *testing.T) {
	t.Parallel()

	catalogue := &fakeDB{count: 1, issues: []byte(`[{"issue": "info"}]`)}
	router := setupTestRouter(t, catalogue)

	w := doRequest(router, "/api/issues/search?limit=10&offset=1&sort_by=most_recent&"+
		"foundation[0]=cncf&kind[0]=bug&ts_query_web=text")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "max-age=300", w.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("pagination-total-count"))
	assert.Equal(t, `[{"issue": "info"}]`, w.Body.String())

	limit, offset := 10, 1
	sortBy, tsQueryWeb := "most_recent", "text"
	assert.Equal(t, &db.SearchIssuesInput{
		Limit:      &limit,
		Offset:     &offset,
		SortBy:     &sortBy,
		Foundation: []string{"cncf"},
		Kind:       []string{"bug"},
		TSQueryWeb: &tsQueryWeb,
	}, catalogue.searchInput)
}

func TestSearchIssuesBadRequest(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(t, &fakeDB{})
	w := doRequest(router, "/api/issues/search?limit=ten")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchIssuesInternalError(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(t, &fakeDB{searchErr: errFake})
	w := doRequest(router, "/api/issues/search")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServeIndex(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(t, &fakeDB{})

	for _, path := range []string{"/", "/search?foundation=cncf"} {
		w := doRequest(router, path)
		assert.Equal(t, http.StatusOK, w.Code, "path: %s", path)
		assert.Equal(t, "max-age=300", w.Header().Get("Cache-Control"), "path: %s", path)
		assert.Equal(t, "<html>index</html>\n", w.Body.String(), "path: %s", path)
	}
}

func TestServeStatic(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(t, &fakeDB{})
	w := doRequest(router, "/static/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "max-age=31536000", w.Header().Get("Cache-Control"))
	assert.Equal(t, "console.log(1);\n", w.Body.String())
}

func setupTestRouter(t *testing.T, catalogue *fakeDB) http.Handler {
	t.Helper()

	staticPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticPath, "index.html"), []byte("<html>index</html>\n"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(staticPath, "static"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(staticPath, "static", "app.js"), []byte("console.log(1);\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.APIServer.StaticPath = staticPath
	h := NewHandlers(cfg, catalogue, zap.NewNop())
	t.Cleanup(h.filtersCache.Stop)
	return h.Router()
}

func doRequest(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

type fakeDB struct {
	mu           sync.Mutex
	filters      []byte
	filtersErr   error
	filtersCalls int
	count        int64
	issues       []byte
	searchErr    error
	searchInput  *db.SearchIssuesInput
}

func (f *fakeDB) GetIssuesFilters(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filtersCalls++
	if f.filtersErr != nil {
		return nil, f.filtersErr
	}
	return f.filters, nil
}

func (f *fakeDB) SearchIssues(_ context.Context, input *db.SearchIssuesInput) (int64, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchInput = input
	if f.searchErr != nil {
		return 0, nil, f.searchErr
	}
	return f.count, f.issues, nil
}
