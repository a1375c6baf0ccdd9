// internal/model/contact.go
package model

// SegmentCount is how many contacts of a bot fall into a segment, split by
// whether they blocked the bot.
type SegmentCount struct {
	Reachable int `db:"reachable" json:"reachable"`
	Blocked   int `db:"blocked" json:"blocked"`
}
