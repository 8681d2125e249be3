package diagnostics

import "testing"

func TestCodeTaxonomy(t *testing.T) {
	tests := []struct {
		code     string
		phase    string
		category string
	}{
		{PAR001, "parser", "syntax"},
		{PAR007, "parser", "syntax"},
		{NAM001, "name", "scope"},
		{NAM006, "name", "unused"},
		{TYP001, "typecheck", "mismatch"},
		{TYP090, "typecheck", "operator"},
		{FLW001, "flow", "return"},
		{OPT004, "validate", "structure"},
		{GEN002, "codegen", "label"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			info, ok := Lookup(tt.code)
			if !ok {
				t.Fatalf("code %s not found in registry", tt.code)
			}
			if info.Phase != tt.phase {
				t.Errorf("phase for %s: got %s, want %s", tt.code, info.Phase, tt.phase)
			}
			if info.Category != tt.category {
				t.Errorf("category for %s: got %s, want %s", tt.code, info.Category, tt.category)
			}
		})
	}
}

func TestRegistryConsistency(t *testing.T) {
	for code, info := range Registry {
		if info.Code != code {
			t.Errorf("code mismatch in registry: key=%s, info.Code=%s", code, info.Code)
		}
		if info.Description == "" {
			t.Errorf("empty description for %s", code)
		}
		if len(code) < 6 || len(code) > 6 {
			t.Errorf("invalid code format (want PPPNNN): %s", code)
		}
	}
}
