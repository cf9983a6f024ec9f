package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(method, origin string, preflight bool) *http.Request {
	req := httptest.NewRequest(method, "/api/products", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type, api_key")
	}
	return req
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins: []string{"https://Shop.example.com"},
		AllowHeaders: []string{"Content-Type", "Authorization", "api_key"},
		MaxAge:       600,
	})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodOptions, "https://shop.example.com", true))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://Shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization, api_key", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_PreflightDisallowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodOptions, "https://evil.example.com", true))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightEchoesRequestedHeaders(t *testing.T) {
	h := CORS(CORSConfig{})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodOptions, "https://any.example.com", true))

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type, api_key", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_ActualRequest(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"*"}})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodGet, "https://any.example.com", false))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodGet, "https://app.example.com", false))

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_NoOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodGet, "", false))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"Origin"}, w.Header().Values("Vary"))
}
