// Package idgen handles external work item identifiers of the form
// {PROJECT_KEY}-{sequence}, e.g. "PROJ-42". Sequence allocation itself
// lives in the storage layer, where it can be serialized per project;
// this package owns the textual format.
package idgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// projectKeyRegex matches valid project keys: short, uppercase
// alphanumeric, starting with a letter.
var projectKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// ValidateProjectKey checks that key is usable as an external-ID namespace.
func ValidateProjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("project key is required")
	}
	if !projectKeyRegex.MatchString(key) {
		return fmt.Errorf("invalid project key %q: must be 2-10 uppercase alphanumeric characters starting with a letter", key)
	}
	return nil
}

// Format builds the external identifier for a project key and sequence number.
func Format(key string, seq int64) string {
	return fmt.Sprintf("%s-%d", key, seq)
}

// Parse splits an external identifier into project key and sequence number.
// The split is on the last hyphen so keys containing digits stay intact.
// Returns ok=false when the string is not of the {key}-{n} form.
func Parse(externalID string) (key string, seq int64, ok bool) {
	idx := strings.LastIndex(externalID, "-")
	if idx <= 0 || idx == len(externalID)-1 {
		return "", 0, false
	}
	key = externalID[:idx]
	if !projectKeyRegex.MatchString(key) {
		return "", 0, false
	}
	seq, err := strconv.ParseInt(externalID[idx+1:], 10, 64)
	if err != nil || seq < 1 {
		return "", 0, false
	}
	return key, seq, true
}
