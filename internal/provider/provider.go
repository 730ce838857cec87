// File: internal/provider/provider.go
package provider

import "strings"

// ID names a supported conversational front end.
type ID string

const (
	ChatGPT ID = "chatgpt"
	Gemini  ID = "gemini"
)

// Profile describes everything the capture and interaction layers need to
// know about one provider's web front end. The endpoint fragments are a
// capture-triggering heuristic, not a correctness guarantee; the sites ship
// no stable public API and the lists are expected to need updating.
type Profile struct {
	ID  ID
	URL string

	// EndpointFragments are URL path fragments of the conversation/generation
	// endpoints whose response bodies carry answer text.
	EndpointFragments []string

	// PromptSelector locates the prompt input box.
	PromptSelector string
	// ResponseSelector locates the subtree that mutates while an answer is
	// being generated. The completion detector observes it.
	ResponseSelector string
	// ReadyExpr is a JS expression that is true once no generation-stop
	// control is visible. Used as the completion readiness predicate.
	ReadyExpr string
}

var profiles = map[ID]Profile{
	ChatGPT: {
		ID:  ChatGPT,
		URL: "https://chatgpt.com/",
		EndpointFragments: []string{
			"/backend-api/conversation",
			"/backend-api/f/conversation",
			"/backend-anon/conversation",
		},
		PromptSelector:   "#prompt-textarea",
		ResponseSelector: "main",
		ReadyExpr:        `document.querySelector('button[data-testid="stop-button"]') === null`,
	},
	Gemini: {
		ID:  Gemini,
		URL: "https://gemini.google.com/app",
		EndpointFragments: []string{
			"assistant.lamda.BardFrontendService/StreamGenerate",
			"/_/BardChatUi/data/batchexecute",
		},
		PromptSelector:   "rich-textarea .ql-editor",
		ResponseSelector: "chat-window",
		ReadyExpr:        `document.querySelector('button.stop, .stop-icon') === null`,
	},
}

// AddEndpoints extends a provider's endpoint fragments at runtime, for
// deployments tracking site drift ahead of a release. Unknown names are
// ignored. Not safe to call concurrently with capture; wire it during
// startup.
func AddEndpoints(name string, fragments []string) {
	p, ok := profiles[ID(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return
	}
	p.EndpointFragments = append(p.EndpointFragments, fragments...)
	profiles[p.ID] = p
}

// Lookup resolves a provider by its string name.
func Lookup(name string) (Profile, bool) {
	p, ok := profiles[ID(strings.ToLower(strings.TrimSpace(name)))]
	return p, ok
}

// All returns the known profiles in a stable order.
func All() []Profile {
	return []Profile{profiles[ChatGPT], profiles[Gemini]}
}

// MatchesEndpoint reports whether url contains any known provider's
// conversation endpoint fragment.
func MatchesEndpoint(url string) bool {
	if url == "" {
		return false
	}
	for _, p := range profiles {
		for _, frag := range p.EndpointFragments {
			if strings.Contains(url, frag) {
				return true
			}
		}
	}
	return false
}

// IsGeminiEndpoint reports whether url belongs to Gemini's generation
// endpoints. The decoder uses this as a fallback when a body carries the
// chunked-stream format without its usual anti-hijacking prefix.
func IsGeminiEndpoint(url string) bool {
	if url == "" {
		return false
	}
	for _, frag := range profiles[Gemini].EndpointFragments {
		if strings.Contains(url, frag) {
			return true
		}
	}
	return false
}

// IsEventStream reports whether a Content-Type denotes a server-sent event
// stream.
func IsEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}
