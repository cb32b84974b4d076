package command

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	ReasonNotFound      = "not_found"
	ReasonInsufficient  = "insufficient_resources"
	ReasonNoRecipe      = "no_recipe"
	ReasonUnknownAction = "unknown_action"
	ReasonTooFar        = "too_far"
	ReasonMarkdown      = "markdown_error"
	ReasonUnknown       = "unknown"
)

var failureMarkers = []string{
	"failed",
	"not enough",
	"not found",
	"cannot",
	"can't",
	"error",
	"unknown action",
	"no recipe",
	"too far",
	"unable to",
	"could not",
	"interrupted",
	"invalid",
}

var reasonChecks = []struct {
	reason  string
	markers []string
}{
	{ReasonNotFound, []string{"not found", "no such", "nowhere"}},
	{ReasonInsufficient, []string{"not enough", "insufficient", "missing", "need "}},
	{ReasonNoRecipe, []string{"no recipe"}},
	{ReasonUnknownAction, []string{"unknown action"}},
	{ReasonTooFar, []string{"too far", "out of reach", "unreachable"}},
	{ReasonMarkdown, []string{"```"}},
}

var needPattern = regexp.MustCompile(`(?i)need\s+(\d+)\s+([a-z0-9_:]+)`)

// IsFailure is the coarse success test applied to every free-text result.
func IsFailure(result string) bool {
	lower := strings.ToLower(result)
	for _, m := range failureMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// FailureReason classifies a failed result. The checks run in a fixed order
// and the first hit wins.
func FailureReason(result string) string {
	lower := strings.ToLower(result)
	for _, c := range reasonChecks {
		for _, m := range c.markers {
			if strings.Contains(lower, m) {
				return c.reason
			}
		}
	}
	return ReasonUnknown
}

// ResourceNeed extracts "need <N> <resource>" from a result.
func ResourceNeed(result string) (resource string, count int, ok bool) {
	m := needPattern.FindStringSubmatch(result)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return strings.ToLower(m[2]), n, true
}
