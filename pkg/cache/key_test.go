package cache

import "testing"

func TestKeys(t *testing.T) {
	tests := []struct {
		name        string
		keys        Keys
		wantEntries string
		wantOrder   string
	}{
		{
			name:        "default prefix",
			keys:        Keys{},
			wantEntries: "release-attrs:entries",
			wantOrder:   "release-attrs:order",
		},
		{
			name:        "custom prefix",
			keys:        Keys{Prefix: "movies"},
			wantEntries: "movies:entries",
			wantOrder:   "movies:order",
		},
		{
			name:        "trailing colon trimmed",
			keys:        Keys{Prefix: "movies:"},
			wantEntries: "movies:entries",
			wantOrder:   "movies:order",
		},
		{
			name:        "only colons",
			keys:        Keys{Prefix: "::"},
			wantEntries: "release-attrs:entries",
			wantOrder:   "release-attrs:order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.keys.Entries(); got != tt.wantEntries {
				t.Errorf("Entries() = %q, want %q", got, tt.wantEntries)
			}
			if got := tt.keys.Order(); got != tt.wantOrder {
				t.Errorf("Order() = %q, want %q", got, tt.wantOrder)
			}
		})
	}
}
