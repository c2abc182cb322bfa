package git

import (
	"context"
	"fmt"
	"strings"
)

// commitTypeEmojis maps conventional-commit prefixes to their log markers.
// The lookup key is the lowercase prefix before the first colon.
var commitTypeEmojis = map[string]string{
	// Core changes
	"feat":     "✨",
	"fix":      "🐛",
	"refactor": "♻️",
	"perf":     "⚡️",

	// Documentation & style
	"docs":    "📚",
	"style":   "💎",
	"ui":      "🎨",
	"content": "📝",

	// Testing & quality
	"test":  "🧪",
	"qual":  "✅",
	"lint":  "🔍",
	"bench": "📊",

	// Infrastructure
	"build":  "📦",
	"ci":     "🔄",
	"deploy": "🚀",
	"env":    "🌍",
	"config": "⚙️",

	// Maintenance
	"chore":  "🔧",
	"clean":  "🧹",
	"deps":   "📎",
	"revert": "⏪",

	// Security & data
	"security": "🔒",
	"auth":     "🔑",
	"data":     "💾",
	"backup":   "💿",

	// Project management
	"init":    "🎉",
	"release": "📈",
	"break":   "💥",
	"merge":   "🔀",

	// Special types
	"wip":    "🚧",
	"hotfix": "🚑",
	"arch":   "🏗️",
	"api":    "🔌",
	"i18n":   "🌐",
}

// ParseCommitType returns the conventional-commit type of a message and its
// marker. Messages without a recognized "type:" prefix fall back to "other".
func ParseCommitType(message string) (string, string) {
	prefix, _, found := strings.Cut(message, ":")
	if found {
		key := strings.ToLower(strings.TrimSpace(prefix))
		if emoji, ok := commitTypeEmojis[key]; ok {
			return key, emoji
		}
	}
	return "other", "🔨"
}

// CommitDigest renders the n most recent commits, one line per commit with
// its type marker, newest first.
func (c *Client) CommitDigest(ctx context.Context, n int) (string, error) {
	if n <= 0 {
		n = 20
	}
	output, err := c.run(ctx, "log", fmt.Sprintf("-%d", n), "--format=%h%x00%s")
	if err != nil {
		return "", err
	}

	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		hash, subject, found := strings.Cut(line, "\x00")
		if !found {
			continue
		}
		_, emoji := ParseCommitType(subject)
		lines = append(lines, fmt.Sprintf("%s %s %s", emoji, hash, subject))
	}
	return strings.Join(lines, "\n"), nil
}
