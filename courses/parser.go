package courses

import (
	"regexp"
	"strings"
)

// Tokens look like "cs1410", "CS-1410" or "math 2210": an optional letter
// prefix, an optional hyphen or whitespace separator, then the number.
var courseTokenPattern = regexp.MustCompile(`([a-z]*)[-\s]?(\d+)`)

// ParseCourseNumberList extracts course numbers from a raw request string
// and groups them by major prefix candidate. Numbers with no prefix are
// grouped under the empty string for later disambiguation. Numbers are
// deduplicated per prefix and kept in first-seen order. Anything that does
// not look like a course token is ignored; an empty map means the request
// contained no course numbers at all.
func ParseCourseNumberList(raw string) map[string][]string {
	result := make(map[string][]string)
	for _, parts := range courseTokenPattern.FindAllStringSubmatch(strings.ToLower(raw), -1) {
		prefix, number := parts[1], parts[2]
		if !containsString(result[prefix], number) {
			result[prefix] = append(result[prefix], number)
		}
	}
	return result
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
