package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripPrefix(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})

	testCases := []struct {
		name   string
		prefix string
		path   string
		want   string
	}{
		{"strips matching prefix", "/prod", "/prod/slack/events", "/slack/events"},
		{"exact prefix becomes root", "/prod", "/prod", "/"},
		{"trailing slash on prefix ignored", "/prod/", "/prod/slack/events", "/slack/events"},
		{"root prefix does nothing", "/", "/slack/events", "/slack/events"},
		{"non-matching prefix untouched", "/prod", "/dev/slack/events", "/dev/slack/events"},
		{"empty prefix does nothing", "", "/prod/slack/events", "/prod/slack/events"},
		{"partial segment is not stripped", "/prod", "/production/slack/events", "/production/slack/events"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := StripPrefix(tc.prefix)(testHandler)

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest("POST", tc.path, nil))

			if recorder.Body.String() != tc.want {
				t.Errorf("Expected '%s', got '%s'", tc.want, recorder.Body.String())
			}
		})
	}
}
