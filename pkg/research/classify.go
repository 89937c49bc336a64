package research

import (
	"regexp"
	"strings"
)

// Classification types for fetch failures.
const (
	// ClassPermanentBlock excludes the hostname from all future sessions.
	ClassPermanentBlock = "permanent_block"
	// ClassSessionBlock excludes the hostname for the rest of this session.
	ClassSessionBlock = "session_block"
	// ClassContinue skips the source for this attempt without blocking.
	ClassContinue = "continue"
)

// FetchErrorClassification is the derived verdict for one fetch failure.
// HTTPStatus is zero when no status code was found in the error.
type FetchErrorClassification struct {
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// Matches "status 403", "code: 429", "HTTP 401" and similar shapes.
var httpStatusPattern = regexp.MustCompile(`(?:status|code|http)\D{0,3}(\d{3})`)

// classifierRule is one row of the closed precedence table. Rows are checked
// in order; the first match wins.
type classifierRule struct {
	substrings []string
	result     FetchErrorClassification
}

var sessionBlockRules = []classifierRule{
	{
		substrings: []string{"individual fetch timeout"},
		result:     FetchErrorClassification{Type: ClassSessionBlock, Reason: "Fetch timeout"},
	},
	{
		substrings: []string{"timeout", "timed out"},
		result:     FetchErrorClassification{Type: ClassSessionBlock, Reason: "Network timeout"},
	},
	{
		substrings: []string{"enotfound", "getaddrinfo failed"},
		result:     FetchErrorClassification{Type: ClassSessionBlock, Reason: "DNS resolution failed"},
	},
	{
		substrings: []string{"econnrefused", "connection refused"},
		result:     FetchErrorClassification{Type: ClassSessionBlock, Reason: "Connection refused"},
	},
	{
		substrings: []string{"econnreset", "connection reset"},
		result:     FetchErrorClassification{Type: ClassSessionBlock, Reason: "Connection reset"},
	},
}

var permanentStatusReasons = map[int]string{
	403: "HTTP 403 Forbidden",
	401: "HTTP 401 Unauthorized",
	429: "HTTP 429 Rate Limited",
}

// Classify maps a fetch error onto the block taxonomy. Access-denial HTTP
// statuses produce permanent blocks, transient network failures produce
// session blocks, and everything else is a non-blocking skip.
func Classify(err error) FetchErrorClassification {
	if err == nil {
		return FetchErrorClassification{Type: ClassContinue, Reason: "Non-blocking error"}
	}

	msg := strings.ToLower(err.Error())

	if m := httpStatusPattern.FindStringSubmatch(msg); m != nil {
		status := parseStatus(m[1])
		if reason, ok := permanentStatusReasons[status]; ok {
			return FetchErrorClassification{
				Type:       ClassPermanentBlock,
				Reason:     reason,
				HTTPStatus: status,
			}
		}
	}

	// "individual fetch timeout" must be checked before the generic timeout
	// rule or it could never match.
	for _, rule := range sessionBlockRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.result
			}
		}
	}

	return FetchErrorClassification{Type: ClassContinue, Reason: "Non-blocking error"}
}

func parseStatus(digits string) int {
	status := 0
	for _, r := range digits {
		status = status*10 + int(r-'0')
	}
	return status
}
