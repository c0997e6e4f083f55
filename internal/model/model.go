// Package model defines shared data structures.
package model

import "time"

// Channel represents a channel definition from the XMLTV feed.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"` // optional icon URL
}

// Programme represents a single scheduled broadcast on a channel.
type Programme struct {
	ID        int64  `json:"id"`
	ChannelID string `json:"channelId"`
	Start     int64  `json:"start"` // Unix seconds
	Stop      int64  `json:"stop"`  // Unix seconds
	Title     string `json:"title"`
	Desc      string `json:"desc,omitempty"`
}

// StartTime returns the programme start as a time.Time.
func (p Programme) StartTime() time.Time { return time.Unix(p.Start, 0) }

// StopTime returns the programme stop as a time.Time.
func (p Programme) StopTime() time.Time { return time.Unix(p.Stop, 0) }

// NowNext holds the currently airing and upcoming programme for a channel.
// Either pointer may be nil when the guide has no matching entry.
type NowNext struct {
	Channel Channel    `json:"channel"`
	Now     *Programme `json:"now,omitempty"`
	Next    *Programme `json:"next,omitempty"`
}

// Stats summarizes the stored guide.
type Stats struct {
	Channels   int `json:"channels"`
	Programmes int `json:"programmes"`
}

// Settings key constants.
const (
	SettingFeedURL      = "feed_url"
	SettingETag         = "feed_etag"
	SettingLastModified = "feed_last_modified"
	SettingLastUpdate   = "feed_last_update"
)
