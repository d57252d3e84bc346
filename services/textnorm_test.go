package services

import "testing"

func TestFoldAccents(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Électricité", "Electricite"},
		{"Main d'œuvre", "Main d'œuvre"},
		{"déjà là", "deja la"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := FoldAccents(tt.in); got != tt.want {
			t.Errorf("FoldAccents(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Devis Mme Müller (v2)", "devis-mme-muller-v2"},
		{"DEV-2026-10-001", "dev-2026-10-001"},
		{"  spaces  &  symbols  ", "spaces-symbols"},
		{"../../etc/passwd", "etc-passwd"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
