package models

import "encoding/json"

// Channel is one live stream from get_live_streams. DirectSource, StreamURL and
// M3U8URL are derived locally from the session credentials and StreamID.
//
// Members the relay does not interpret (tv_archive, added, category_ids, ...)
// are kept in Extra and written back unchanged.
type Channel struct {
	Num          ID
	Name         string
	StreamType   string
	StreamID     ID
	StreamIcon   string
	EPGChannelID ID
	CategoryID   ID
	DirectSource string
	StreamURL    string
	M3U8URL      string

	Extra map[string]json.RawMessage
}

var derivedChannelKeys = []string{"direct_source", "stream_url", "m3u8_url"}

// UnmarshalJSON never fails on a well-formed value. Members of an unexpected
// type read as their text form or as empty; a non-object reads as an empty channel.
func (c *Channel) UnmarshalJSON(b []byte) error {
	m := fields(b)
	*c = Channel{
		Num:          takeID(m, "num"),
		Name:         takeText(m, "name"),
		StreamType:   takeText(m, "stream_type"),
		StreamID:     takeID(m, "stream_id"),
		StreamIcon:   takeText(m, "stream_icon"),
		EPGChannelID: takeID(m, "epg_channel_id"),
		CategoryID:   takeID(m, "category_id"),
	}
	for _, k := range derivedChannelKeys {
		delete(m, k)
	}
	if len(m) > 0 {
		c.Extra = m
	}
	return nil
}

func (c Channel) MarshalJSON() ([]byte, error) {
	out := withExtra(c.Extra, 10)
	putText(out, "num", c.Num.String(), true)
	putText(out, "name", c.Name, false)
	putText(out, "stream_type", c.StreamType, true)
	putText(out, "stream_id", c.StreamID.String(), true)
	putText(out, "stream_icon", c.StreamIcon, false)
	putText(out, "epg_channel_id", c.EPGChannelID.String(), true)
	putText(out, "category_id", c.CategoryID.String(), true)
	putText(out, "direct_source", c.DirectSource, true)
	putText(out, "stream_url", c.StreamURL, true)
	putText(out, "m3u8_url", c.M3U8URL, true)
	return json.Marshal(out)
}
