package browser

import (
	"testing"

	"github.com/chromedp/cdproto/target"
)

func pageTarget(url, title string) *target.Info {
	return &target.Info{Type: "page", URL: url, Title: title}
}

func TestTargetMatches(t *testing.T) {
	cases := []struct {
		name       string
		info       *target.Info
		urlPrefix  string
		titleQuery string
		want       bool
	}{
		{
			name:      "url prefix and title both match",
			info:      pageTarget("https://sgp.example.com/admin/cliente/42/contratos", "JOAO SILVA (42) | SGP"),
			urlPrefix: "https://sgp.example.com/admin/", titleQuery: "JOAO SILVA (42)",
			want: true,
		},
		{
			name:      "title pins the tab to one client",
			info:      pageTarget("https://sgp.example.com/admin/cliente/7/contratos", "MARIA SOUZA (7) | SGP"),
			urlPrefix: "https://sgp.example.com/admin/", titleQuery: "JOAO SILVA (42)",
			want: false,
		},
		{
			name:      "url outside the prefix",
			info:      pageTarget("https://other.example.com/admin/", "JOAO SILVA (42)"),
			urlPrefix: "https://sgp.example.com/admin/", titleQuery: "JOAO SILVA (42)",
			want: false,
		},
		{
			name:      "empty title query matches any admin tab",
			info:      pageTarget("https://sgp.example.com/admin/", "SGP"),
			urlPrefix: "https://sgp.example.com/admin/",
			want:      true,
		},
		{
			name: "non-page targets are skipped",
			info: &target.Info{Type: "background_page", URL: "https://sgp.example.com/admin/", Title: "JOAO SILVA (42)"},
			want: false,
		},
		{
			name: "nil target",
			info: nil,
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := targetMatches(tc.info, tc.urlPrefix, tc.titleQuery); got != tc.want {
				t.Fatalf("targetMatches() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestDomainMatches(t *testing.T) {
	cases := []struct {
		host   string
		domain string
		want   bool
	}{
		{"sgp.example.com", "sgp.example.com", true},
		{"sgp.example.com", ".example.com", true},
		{"sgp.example.com", "example.com", true},
		{"example.com", "sgp.example.com", false},
		{"badexample.com", "example.com", false},
		{"201.158.20.35", "201.158.20.35", true},
	}
	for _, tc := range cases {
		if got := domainMatches(tc.host, tc.domain); got != tc.want {
			t.Errorf("domainMatches(%q, %q) = %v; want %v", tc.host, tc.domain, got, tc.want)
		}
	}
}
