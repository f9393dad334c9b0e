package models

import "testing"

func TestResolveChatAliasAndNative(t *testing.T) {
	table := DefaultTable()

	m, ok := table.ResolveChat("argo:gpt-4o")
	if !ok {
		t.Fatal("argo:gpt-4o not resolved")
	}
	if m.Native != "gpt4o" {
		t.Errorf("Native = %q, want gpt4o", m.Native)
	}

	// The backend-native identifier resolves to the same model.
	native, ok := table.ResolveChat("gpt4o")
	if !ok {
		t.Fatal("gpt4o not resolved")
	}
	if native.ID != m.ID {
		t.Errorf("native lookup ID = %q, want %q", native.ID, m.ID)
	}
}

func TestResolveChatSecondaryAlias(t *testing.T) {
	table := DefaultTable()
	m, ok := table.ResolveChat("argo:gpt-o1-mini")
	if !ok {
		t.Fatal("argo:gpt-o1-mini not resolved")
	}
	if m.Native != "gpto1mini" {
		t.Errorf("Native = %q, want gpto1mini", m.Native)
	}
}

func TestResolveChatUnknown(t *testing.T) {
	table := DefaultTable()
	if _, ok := table.ResolveChat("no-such-model"); ok {
		t.Error("expected no-such-model to be unresolved")
	}
	// An embedding model is not a chat model.
	if _, ok := table.ResolveChat("argo:text-embedding-3-small"); ok {
		t.Error("embedding model resolved as chat model")
	}
}

func TestCapabilityFlags(t *testing.T) {
	table := DefaultTable()

	o1, _ := table.ResolveChat("argo:o1-preview")
	if o1.SystemRole {
		t.Error("o1-preview must not accept the system role")
	}
	if o1.Streaming {
		t.Error("o1-preview must not be marked streamable")
	}

	gpt4, _ := table.ResolveChat("argo:gpt-4")
	if gpt4.NativeMessages {
		t.Error("gpt-4 must use the flattened prompt shape")
	}

	claude, _ := table.ResolveChat("argo:claude-4-opus")
	if !claude.NativeMessages || !claude.Streaming {
		t.Errorf("claude-4-opus capabilities = %+v, want native messages and streaming", claude.Capabilities)
	}
}

func TestModelFamily(t *testing.T) {
	tests := []struct {
		native string
		want   Family
	}{
		{"gpt4o", FamilyOpenAI},
		{"gpto1mini", FamilyOpenAI},
		{"claudeopus4", FamilyAnthropic},
		{"gemini25pro", FamilyGoogle},
		{"mystery", FamilyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			m := Model{Native: tt.native}
			if got := m.Family(); got != tt.want {
				t.Errorf("Family() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListContainsChatAndEmbeddingModels(t *testing.T) {
	table := DefaultTable()
	list := table.List()

	if list.Object != "list" {
		t.Errorf("Object = %q, want list", list.Object)
	}
	ids := make(map[string]string)
	for _, m := range list.Data {
		ids[m.ID] = m.InternalName
		if m.Object != "model" {
			t.Errorf("model %s Object = %q, want model", m.ID, m.Object)
		}
	}
	if ids["argo:gpt-4o"] != "gpt4o" {
		t.Errorf("argo:gpt-4o internal name = %q, want gpt4o", ids["argo:gpt-4o"])
	}
	if ids["argo:text-embedding-3-large"] != "v3large" {
		t.Errorf("argo:text-embedding-3-large internal name = %q, want v3large", ids["argo:text-embedding-3-large"])
	}
	// Secondary aliases are accepted on requests but not listed twice.
	if _, listed := ids["argo:gpt-o1-mini"]; listed {
		t.Error("secondary alias must not appear in the listing")
	}
}
