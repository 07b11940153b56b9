package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// sanitizeName reduces arbitrary customer input to something legal in a GCE
// instance name. Runs of disallowed characters collapse to one hyphen.
func sanitizeName(s string) string {
	s = nonNameChars.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 30 {
		s = strings.Trim(s[:30], "-")
	}
	return s
}

// deriveInstanceName builds a unique VM name from the customer's name. The
// base36 timestamp suffix keeps repeat signups from colliding.
func deriveInstanceName(customerName string) string {
	return fmt.Sprintf("moes-%s-%s", sanitizeName(customerName), strconv.FormatInt(time.Now().UnixMilli(), 36))
}
