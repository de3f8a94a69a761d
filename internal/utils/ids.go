// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// ParseID parses a positive decimal record id from a path segment. Signs,
// surrounding whitespace, zero and values outside uint32 range are rejected.
//
// Example:
//
//	id, ok := utils.ParseID("42")  // 42, true
//	_, ok = utils.ParseID("0")     // 0, false
//	_, ok = utils.ParseID("abc")   // 0, false
func ParseID(s string) (uint, bool) {
	if s == "" || strings.ContainsAny(s, "+- \t") {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
