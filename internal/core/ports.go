package core

import (
	"context"
)

// Completer is the language-model capability consumed by the planner and the
// bootstrap generator. Failures are fatal to the current cycle, never to the
// system.
type Completer interface {
	// Complete sends a conversation to the provider and returns the text of
	// the reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// TokenCounter measures text in provider tokens. CountTokens is total: any
// provider or decoding error yields 0.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) int
}

// CompletionRequest describes a single completion call.
type CompletionRequest struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message is one conversation turn.
type Message struct {
	Role    string // "user" or "model"
	Content string
}

// UserMessage builds a single-turn user request.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

// VCS is the version-control capability. The orchestrator only reads hash
// snapshots and commit summaries; all mutation goes through the editor
// subprocess.
type VCS interface {
	// ListTrackedFiles returns the current index state as path -> blob hash.
	ListTrackedFiles(ctx context.Context) (map[string]string, error)

	// LatestCommitSummary returns the most recent commit hash and subject.
	LatestCommitSummary(ctx context.Context) (hash, message string, err error)

	// Push attempts to publish. Failure is benign when no remote is
	// configured; callers log it at info level.
	Push(ctx context.Context) error

	// ConfigureEncoding sets commit-message encoding to UTF-8. Called once
	// at startup.
	ConfigureEncoding(ctx context.Context) error
}

// ModifiedFiles compares two tracked-file snapshots and returns every path
// whose hash differs, including paths present in only one snapshot.
func ModifiedFiles(before, after map[string]string) []string {
	var modified []string
	for path, afterHash := range after {
		if before[path] != afterHash {
			modified = append(modified, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			modified = append(modified, path)
		}
	}
	return modified
}

// Capabilities is the explicit bundle of external services constructed once
// at startup and passed into the runner pool and planner. There are no
// process-global singletons.
type Capabilities struct {
	Completer Completer
	Tokens    TokenCounter
	VCS       VCS
}
