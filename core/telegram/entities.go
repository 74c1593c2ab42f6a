package telegram

// Entity annotates a span of message text. Offsets and lengths are in
// UTF-16 code units, per the bot API convention.
type Entity struct {
	Type          string `json:"type"`
	Offset        int    `json:"offset"`
	Length        int    `json:"length"`
	URL           string `json:"url,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

// Entity types used by the dispatch formatter.
const (
	EntityTextLink    = "text_link"
	EntityCustomEmoji = "custom_emoji"
)

// TextLink builds a labeled hyperlink span.
func TextLink(offset, length int, url string) Entity {
	return Entity{Type: EntityTextLink, Offset: offset, Length: length, URL: url}
}

// CustomEmoji builds a custom-glyph span backed by a premium emoji document.
func CustomEmoji(offset, length int, documentID string) Entity {
	return Entity{Type: EntityCustomEmoji, Offset: offset, Length: length, CustomEmojiID: documentID}
}

// FileDescriptor describes the scheduled audio attachment.
type FileDescriptor struct {
	FileName  string
	MimeType  string
	Title     string
	Performer string
	Duration  int  // seconds, zero when the probe could not determine it
	Voice     bool // always false for music tracks
	// DisableCache tells the destination not to reuse the transmitted
	// bytes: the payload is delivered from memory and is not guaranteed
	// to be byte-identical across attempts.
	DisableCache bool
}
