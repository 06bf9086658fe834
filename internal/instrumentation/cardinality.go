package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address so metric
// labels stay low-cardinality.
//
// Example:
//
//	ExtractUserDomain("owner@example.com")  // "example.com"
//	ExtractUserDomain("invalid")            // "unknown"
//	ExtractUserDomain("")                   // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// Operation types for Google API metrics.
const (
	OperationFreeBusy = "freebusy"
	OperationCreate   = "create"
	OperationUpdate   = "update"
	OperationDelete   = "delete"
	OperationUserinfo = "userinfo"
)
