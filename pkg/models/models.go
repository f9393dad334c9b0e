// Package models holds the static tables mapping public model identifiers
// to backend-native ones, along with per-model capability flags.
//
// A [Table] is an immutable value constructed once at startup and passed by
// reference to the components that need lookups. Public identifiers use the
// "argo:" prefix; backend-native identifiers are accepted as-is, so clients
// may send either form.
package models

import (
	"strings"
	"time"

	"github.com/argonaut-dev/argonaut/pkg/api"
)

// Family groups models by their upstream vendor, which determines the tool
// instruction skeleton used for emulation.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGoogle    Family = "google"
	FamilyUnknown   Family = "unknown"
)

// Capabilities describes what a backend model accepts.
type Capabilities struct {
	// NativeMessages indicates the model takes a structured message list.
	// Models without it get the flattened system + prompt request shape.
	NativeMessages bool
	// SystemRole indicates the model accepts system messages. Models
	// without it get system content demoted to user content.
	SystemRole bool
	// Streaming indicates the backend can stream this model's output.
	// Non-streamable models fall back to emulated streaming.
	Streaming bool
}

// Model is one alias table entry.
type Model struct {
	// ID is the primary public identifier ("argo:gpt-4o").
	ID string
	// Native is the backend identifier ("gpt4o").
	Native string
	Capabilities
}

// Family returns the vendor family derived from the native identifier.
func (m Model) Family() Family {
	switch {
	case strings.Contains(m.Native, "gpt"):
		return FamilyOpenAI
	case strings.Contains(m.Native, "claude"):
		return FamilyAnthropic
	case strings.Contains(m.Native, "gemini"):
		return FamilyGoogle
	default:
		return FamilyUnknown
	}
}

// Table is the immutable model lookup table. Both public aliases and
// backend-native identifiers resolve.
type Table struct {
	chat       map[string]Model
	chatOrder  []Model
	embed      map[string]Model
	embedOrder []Model
	created    int64
}

type entry struct {
	id      string
	native  string
	aliases []string
	caps    Capabilities
}

var chatEntries = []entry{
	{id: "argo:gpt-3.5-turbo", native: "gpt35", caps: Capabilities{SystemRole: true, Streaming: true}},
	{id: "argo:gpt-3.5-turbo-16k", native: "gpt35large", caps: Capabilities{SystemRole: true, Streaming: true}},
	{id: "argo:gpt-4", native: "gpt4", caps: Capabilities{SystemRole: true, Streaming: true}},
	{id: "argo:gpt-4-32k", native: "gpt4large", caps: Capabilities{SystemRole: true, Streaming: true}},
	{id: "argo:gpt-4-turbo", native: "gpt4turbo", caps: Capabilities{SystemRole: true, Streaming: true}},
	{id: "argo:gpt-4o", native: "gpt4o", caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true}},
	{id: "argo:gpt-4o-latest", native: "gpt4olatest", caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true}},
	{
		id: "argo:o1-preview", native: "gpto1preview", aliases: []string{"argo:gpt-o1-preview"},
		caps: Capabilities{NativeMessages: true},
	},
	{
		id: "argo:o1-mini", native: "gpto1mini", aliases: []string{"argo:gpt-o1-mini"},
		caps: Capabilities{NativeMessages: true},
	},
	{
		id: "argo:o3-mini", native: "gpto3mini", aliases: []string{"argo:gpt-o3-mini"},
		caps: Capabilities{NativeMessages: true},
	},
	{
		id: "argo:claude-4-opus", native: "claudeopus4", aliases: []string{"argo:claude-opus-4"},
		caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true},
	},
	{
		id: "argo:claude-4-sonnet", native: "claudesonnet4", aliases: []string{"argo:claude-sonnet-4"},
		caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true},
	},
	{
		id: "argo:claude-3.7-sonnet", native: "claudesonnet37",
		caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true},
	},
	{
		id: "argo:gemini-2.5-pro", native: "gemini25pro",
		caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true},
	},
	{
		id: "argo:gemini-2.5-flash", native: "gemini25flash",
		caps: Capabilities{NativeMessages: true, SystemRole: true, Streaming: true},
	},
}

var embedEntries = []entry{
	{id: "argo:text-embedding-ada-002", native: "ada002"},
	{id: "argo:text-embedding-3-small", native: "v3small"},
	{id: "argo:text-embedding-3-large", native: "v3large"},
}

// DefaultTable builds the table of models the gateway serves.
func DefaultTable() *Table {
	t := &Table{
		chat:    make(map[string]Model),
		embed:   make(map[string]Model),
		created: time.Now().Unix(),
	}
	for _, e := range chatEntries {
		m := Model{ID: e.id, Native: e.native, Capabilities: e.caps}
		t.chatOrder = append(t.chatOrder, m)
		t.chat[e.id] = m
		t.chat[e.native] = m
		for _, alias := range e.aliases {
			t.chat[alias] = m
		}
	}
	for _, e := range embedEntries {
		m := Model{ID: e.id, Native: e.native}
		t.embedOrder = append(t.embedOrder, m)
		t.embed[e.id] = m
		t.embed[e.native] = m
	}
	return t
}

// ResolveChat looks up a chat model by public alias or native identifier.
func (t *Table) ResolveChat(id string) (Model, bool) {
	m, ok := t.chat[id]
	return m, ok
}

// ResolveEmbedding looks up an embedding model by public alias or native
// identifier.
func (t *Table) ResolveEmbedding(id string) (Model, bool) {
	m, ok := t.embed[id]
	return m, ok
}

// List returns all served models (chat first, then embeddings) in the
// OpenAI model listing shape.
func (t *Table) List() *api.ModelList {
	list := &api.ModelList{Object: api.ObjectList}
	all := make([]Model, 0, len(t.chatOrder)+len(t.embedOrder))
	all = append(all, t.chatOrder...)
	all = append(all, t.embedOrder...)
	for _, m := range all {
		list.Data = append(list.Data, api.ModelInfo{
			ID:           m.ID,
			Object:       api.ObjectModel,
			Created:      t.created,
			OwnedBy:      "argo",
			InternalName: m.Native,
		})
	}
	return list
}
