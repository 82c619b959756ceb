package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newRoutesMockStorage returns a storage which accepts every call.
func newRoutesMockStorage() *MockBookStorage {
	return &MockBookStorage{
		AddFunc: func(ctx context.Context, book Book) error {
			return nil
		},
		GetOneFunc: func(ctx context.Context, id string) (Book, error) {
			return Book{}, nil
		},
		GetAllFunc: func(ctx context.Context, limit int) ([]Book, error) {
			return []Book{}, nil
		},
		SearchFunc: func(ctx context.Context, filters SearchFilters, limit int) ([]Book, error) {
			return []Book{}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch BookPatch) (bool, error) {
			return true, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			return nil
		},
		PurchaseFunc: func(ctx context.Context, id string) (Book, error) {
			return Book{}, nil
		},
		DeleteAllFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// TestSetupBookRoutes ensures all expected book endpoints are implemented.
func TestSetupBookRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{
			"index endpoint",
			httptest.NewRequest(http.MethodGet, "/", nil),
			true,
		},
		{
			"status endpoint",
			httptest.NewRequest(http.MethodGet, "/status", nil),
			true,
		},
		{
			"create book endpoint",
			httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":"t","author":"a"}`)),
			true,
		},
		{
			"fetch all books endpoint",
			httptest.NewRequest(http.MethodGet, "/books", nil),
			true,
		},
		{
			"fetch all books endpoint with slash",
			httptest.NewRequest(http.MethodGet, "/books/", nil),
			true,
		},
		{
			"fetch single book endpoint",
			httptest.NewRequest(http.MethodGet, "/books/"+testBookID, nil),
			true,
		},
		{
			"update book endpoint",
			httptest.NewRequest(http.MethodPut, "/books/"+testBookID, strings.NewReader(`{"stock":1}`)),
			true,
		},
		{
			"delete book endpoint",
			httptest.NewRequest(http.MethodDelete, "/books/"+testBookID, nil),
			true,
		},
		{
			"purchase book endpoint",
			httptest.NewRequest(http.MethodPost, "/books/"+testBookID+"/buy", nil),
			true,
		},
		{
			"search books endpoint",
			httptest.NewRequest(http.MethodGet, "/search?title=dune", nil),
			true,
		},
		{
			"invalid api endpoint",
			httptest.NewRequest(http.MethodGet, "/v1", nil),
			false,
		},
		{
			"versioned books endpoint",
			httptest.NewRequest(http.MethodGet, "/v1/books", nil),
			false,
		},
	}

	api := newTestAPIHandler(newRoutesMockStorage())
	router := httprouter.New()
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api.SetupBookRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures all expected operations endpoints are implemented.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{
			"fetch configs endpoint",
			httptest.NewRequest(http.MethodGet, "/ops/configs", nil),
			true,
		},
		{
			"fetch stats endpoint",
			httptest.NewRequest(http.MethodGet, "/ops/stats", nil),
			true,
		},
		{
			"maintenance mode endpoint",
			httptest.NewRequest(http.MethodGet, "/ops/maintenance", nil),
			true,
		},
		{
			"memory stats endpoint",
			httptest.NewRequest(http.MethodGet, "/ops/debug/vars", nil),
			true,
		},
		{
			"reset books endpoint",
			httptest.NewRequest(http.MethodDelete, "/ops/books", nil),
			true,
		},
		{
			"invalid ops endpoint",
			httptest.NewRequest(http.MethodGet, "/ops", nil),
			false,
		},
		{
			"unknown ops endpoint",
			httptest.NewRequest(http.MethodGet, "/ops/unknown", nil),
			false,
		},
		{
			"disabled profiler endpoint",
			httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil),
			false,
		},
	}

	api := newTestAPIHandler(newRoutesMockStorage())
	api.config.ProfilerEnable = false
	router := httprouter.New()
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api.SetupOpsRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes ensures all expected endpoints are implemented.
func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name               string
		OpsEndpointsEnable bool
		request            *http.Request
		implemented        bool
	}{
		{
			"ops disable:fetch configs endpoint",
			false,
			httptest.NewRequest(http.MethodGet, "/ops/configs", nil),
			false,
		},
		{
			"ops enable:fetch configs endpoint",
			true,
			httptest.NewRequest(http.MethodGet, "/ops/configs", nil),
			true,
		},
		{
			"ops disable:reset books endpoint",
			false,
			httptest.NewRequest(http.MethodDelete, "/ops/books", nil),
			false,
		},
		{
			"ops enable:disabled profiler endpoint",
			true,
			httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil),
			false,
		},
		{
			"ops disable:fetch all books endpoint",
			false,
			httptest.NewRequest(http.MethodGet, "/books", nil),
			true,
		},
		{
			"ops enable:fetch all books endpoint",
			true,
			httptest.NewRequest(http.MethodGet, "/books", nil),
			true,
		},
		{
			"swagger endpoint",
			false,
			httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil),
			true,
		},
		{
			"invalid ops endpoint",
			false,
			httptest.NewRequest(http.MethodGet, "/ops/", nil),
			false,
		},
	}

	api := newTestAPIHandler(newRoutesMockStorage())
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := httprouter.New()
			api.config.OpsEndpointsEnable = tc.OpsEndpointsEnable
			api.SetupRoutes(router, m)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes_NotFound ensures exact status code and json response body when a user requests an inexistant route.
func TestSetupRoutes_NotFound(t *testing.T) {
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api := NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), nil)
	router := httprouter.New()
	api.SetupRoutes(router, m)
	r := httptest.NewRequest(http.MethodGet, "/x/books/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(data, &body))
	assert.True(t, strings.HasPrefix(body["requestid"], RequestIDPrefix+":"))
	assert.Equal(t, "route does not exist", body["message"])
	assert.Equal(t, "GET /x/books/", body["path"])
}
