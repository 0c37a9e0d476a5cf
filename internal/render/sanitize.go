package render

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	fragmentPolicyOnce sync.Once
	fragmentPolicy     *bluemonday.Policy
)

// Sanitize removes everything from a fragment that the site does not use.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(fragmentSanitizer().Sanitize(trimmed))
}

func fragmentSanitizer() *bluemonday.Policy {
	fragmentPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		elements := []string{"div", "span", "h4", "p", "a"}
		policy.AllowElements(elements...)

		policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements(elements...)
		policy.AllowAttrs("href").OnElements("a")

		policy.RequireParseableURLs(true)
		policy.AllowRelativeURLs(true)
		policy.AllowURLSchemes("http", "https")

		fragmentPolicy = policy
	})
	return fragmentPolicy
}
