package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Limit: DefaultLimit, Offset: 0}},
		{"?limit=10&offset=20", Params{Limit: 10, Offset: 20}},
		{"?limit=5000", Params{Limit: MaxLimit, Offset: 0}},
		{"?limit=-3&offset=-1", Params{Limit: DefaultLimit, Offset: 0}},
		{"?limit=abc&offset=xyz", Params{Limit: DefaultLimit, Offset: 0}},
	}
	for _, tt := range tests {
		if got := paramsFor(tt.query); got != tt.want {
			t.Errorf("FromContext(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	p := Params{Limit: 2, Offset: 0}
	if page := NewPage([]int{1, 2}, 3, p); !page.HasMore {
		t.Error("expected more results")
	}
	if page := NewPage([]int{1, 2}, 2, p); page.HasMore {
		t.Error("expected no more results")
	}

	empty := NewPage[string](nil, 0, p)
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Errorf("expected an empty, non-nil slice, got %#v", empty.Items)
	}
}
