// Package jobs runs background maintenance on a robfig/cron scheduler.
//
// The keep-warm job refreshes the active account's credential ahead of
// callers so an expired or revoked grant surfaces in the logs before a
// booking hits it.
package jobs
