// Package util contains a few small helpers shared across the
// depositor.
package util

// StringListContains returns true if the list of strings contains item.
func StringListContains(list []string, item string) bool {
	if list != nil {
		for i := range list {
			if list[i] == item {
				return true
			}
		}
	}
	return false
}

// IntListContains returns true if the list of ints contains item.
func IntListContains(list []int, item int) bool {
	if list != nil {
		for i := range list {
			if list[i] == item {
				return true
			}
		}
	}
	return false
}
