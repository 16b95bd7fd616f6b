package cache

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "function only",
			key:  Key{Function: "google-search-console-sites"},
			want: "seo:cache:google-search-console-sites",
		},
		{
			name: "params sorted",
			key: Key{
				Function: "keyword-overview",
				Params:   map[string]string{"location": "2840", "keyword": "seo tools", "language": "en"},
			},
			want: "seo:cache:keyword-overview:keyword=seo tools:language=en:location=2840",
		},
		{
			name: "params normalized",
			key: Key{
				Function: "/keyword-overview/",
				Params:   map[string]string{"keyword": "  SEO Tools "},
			},
			want: "seo:cache:keyword-overview:keyword=seo tools",
		},
		{
			name: "user scoped",
			key: Key{
				Function: "google-search-console-sites",
				UserID:   "u-123",
			},
			want: "seo:cache:google-search-console-sites:user=u-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_Determinism(t *testing.T) {
	key := Key{
		Function: "keyword-serps",
		Params:   map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}
	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
