package webhooks

import "regexp"

var mentionRE = regexp.MustCompile(`@([A-Za-z0-9_-]{2,50})`)

// ExtractMentions returns the distinct @usernames appearing in text, in
// order of first appearance. Callers resolve names to users themselves.
func ExtractMentions(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range mentionRE.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
