package browser

import "testing"

// TestParseBrowser tests browser name parsing and aliases
func TestParseBrowser(t *testing.T) {
	tests := []struct {
		input   string
		want    SupportedBrowser
		wantErr bool
	}{
		{"auto", BrowserAuto, false},
		{"", BrowserAuto, false},
		{"chrome", BrowserChrome, false},
		{"google-chrome", BrowserChrome, false},
		{"Chrome", BrowserChrome, false},
		{"chromium", BrowserChromium, false},
		{"firefox", BrowserFirefox, false},
		{"mozilla-firefox", BrowserFirefox, false},
		{"edge", BrowserEdge, false},
		{"msedge", BrowserEdge, false},
		{"opera", BrowserOpera, false},
		{"netscape", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBrowser(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBrowser(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBrowser(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestMatchesBrowser tests kooky store name matching
func TestMatchesBrowser(t *testing.T) {
	tests := []struct {
		storeName string
		target    SupportedBrowser
		want      bool
	}{
		{"chrome", BrowserChrome, true},
		{"google chrome", BrowserChrome, true},
		{"chromium", BrowserChrome, false},
		{"chromium", BrowserChromium, true},
		{"firefox", BrowserFirefox, true},
		{"microsoft edge", BrowserEdge, true},
		{"opera gx", BrowserOpera, true},
		{"firefox", BrowserChrome, false},
		{"chrome", BrowserAuto, false},
	}

	for _, tt := range tests {
		if got := matchesBrowser(tt.storeName, tt.target); got != tt.want {
			t.Errorf("matchesBrowser(%q, %v) = %v, want %v", tt.storeName, tt.target, got, tt.want)
		}
	}
}
