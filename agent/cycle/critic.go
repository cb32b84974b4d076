package cycle

import (
	"regexp"
	"strconv"
	"strings"
)

var quantityGoal = regexp.MustCompile(`(?i)^\s*(?:collect|gather|mine|get|obtain|craft)\s+(\d+)\s+(.+?)\s*[.!]?\s*$`)

// GoalTarget extracts the item and amount from goals like
// "collect 3 oak_log" or "craft 4 sticks".
func GoalTarget(goal string) (item string, count int, ok bool) {
	m := quantityGoal.FindStringSubmatch(goal)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	item = strings.Join(strings.Fields(strings.ToLower(m[2])), "_")
	return item, n, item != ""
}

// GoalSatisfied reports whether the inventory already meets a quantity goal.
// Goals without a quantity are never satisfied here.
func GoalSatisfied(goal string, inventory map[string]int) bool {
	item, n, ok := GoalTarget(goal)
	if !ok {
		return false
	}
	if inventory[item] >= n {
		return true
	}
	if singular := strings.TrimSuffix(item, "s"); singular != item && inventory[singular] >= n {
		return true
	}
	return false
}
