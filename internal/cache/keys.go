// Package cache centralises Redis key construction so every package spells
// keys the same way.
package cache

import "time"

// KeyProducts is the cached cashier product grid.
const KeyProducts = "pos:catalog:products"

// KeySummary returns the daily sales summary key for the given day.
func KeySummary(day time.Time) string {
	return "pos:summary:" + day.Format("2006-01-02")
}

// KeyDisplaySession returns the customer display snapshot key.
func KeyDisplaySession(session string) string {
	return "pos:display:" + session
}

// KeyDisplayChannel returns the pub/sub channel notified on snapshot writes,
// so a display client can block on a subscription instead of polling.
func KeyDisplayChannel(session string) string {
	return "pos:display:" + session + ":events"
}

// KeySummaryLock guards concurrent summary refreshes.
func KeySummaryLock(day time.Time) string {
	return "pos:summary:lock:" + day.Format("2006-01-02")
}
