package domain

import "testing"

func TestIndexRecordBlank(t *testing.T) {
	tests := []struct {
		name  string
		label string
		text  string
		want  bool
	}{
		{"both set", "Dana Builder", "Remodel notes", false},
		{"no label", "", "Remodel notes", true},
		{"no text", "Dana Builder", "", true},
		{"whitespace only", "   ", "\t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &IndexRecord{Label: tt.label, Text: tt.text}
			if got := rec.Blank(); got != tt.want {
				t.Errorf("Blank() = %v, want %v", got, tt.want)
			}
		})
	}
}
