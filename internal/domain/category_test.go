package domain

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"contacts", CategoryContacts, true},
		{"contact", CategoryContacts, true},
		{"engagements", CategoryEngagements, true},
		{"engagement", CategoryEngagements, true},
		{"transaction", CategoryTransactions, true},
		{"professional", CategoryProfessionals, true},
		{"", "", false},
		{"widgets", "", false},
		{"Contacts", "", false}, // callers normalize case
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCategory(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCategorySingular(t *testing.T) {
	for _, c := range Categories() {
		sing := c.Singular()
		if sing == "" {
			t.Errorf("%s has no singular", c)
		}
		back, ok := CategoryFromSingular(sing)
		if !ok || back != c {
			t.Errorf("singular round trip broken for %s", c)
		}
	}
}

func TestHasRichText(t *testing.T) {
	if !CategoryContacts.HasRichText() || !CategoryEngagements.HasRichText() {
		t.Error("contacts and engagements carry rich text")
	}
	if CategoryTransactions.HasRichText() || CategoryProfessionals.HasRichText() {
		t.Error("transactions and professionals do not carry rich text")
	}
}

func TestTruncateSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short stays", "hello", 10, "hello"},
		{"exact stays", "hello", 5, "hello"},
		{"cut gets ellipsis", "hello world", 5, "hello" + SnippetEllipsis},
		{"zero max is no-op", "hello", 0, "hello"},
		{"runes not bytes", "привет мир", 6, "привет" + SnippetEllipsis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateSnippet(tt.in, tt.max); got != tt.want {
				t.Errorf("TruncateSnippet(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
