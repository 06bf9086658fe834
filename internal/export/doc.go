// Package export renders recorded appointments as an iCalendar feed.
package export
