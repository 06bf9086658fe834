// Package dates resolves caller-spoken date references ("tomorrow",
// "next Monday", "2024-01-15") into calendar dates in the business timezone.
//
// Resolution is pure: the reference instant is always passed in, so the same
// phrase and reference yield the same date.
package dates
