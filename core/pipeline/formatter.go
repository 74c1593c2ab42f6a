package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"vibecast/core/acquire"
	"vibecast/core/audio"
	"vibecast/core/telegram"
	"vibecast/logger"
	"vibecast/model"
)

// fileScheduleOffset separates the text message from its playable attachment
// at the destination. Fixed policy, not configurable per track.
const fileScheduleOffset = time.Minute

// Emoji placeholders, one per external service link.
const (
	spotifyEmojiPlaceholder = "\U0001F3B5" // 🎵
	ytmEmojiPlaceholder     = "\U0001F4F9" // 📹
)

const (
	spotifyLabel = "Spotify"
	ytmLabel     = "YouTube Music"
)

// Dispatch is the fully formatted outbound request pair for one track.
type Dispatch struct {
	Text       string
	Entities   []telegram.Entity
	Attachment telegram.FileDescriptor
	MessageAt  time.Time
	FileAt     time.Time // always MessageAt + fileScheduleOffset
}

// Formatter builds scheduled messages and attachment descriptors from track
// metadata.
type Formatter struct {
	prober              audio.Prober // optional; nil means duration stays zero
	spotifyEmojiID      int64
	youtubeMusicEmojiID int64
}

// NewFormatter creates a Formatter. prober may be nil.
func NewFormatter(prober audio.Prober, spotifyEmojiID, youtubeMusicEmojiID int64) *Formatter {
	return &Formatter{
		prober:              prober,
		spotifyEmojiID:      spotifyEmojiID,
		youtubeMusicEmojiID: youtubeMusicEmojiID,
	}
}

// utf16Len counts UTF-16 code units, the unit the entity offsets are
// expressed in. The emoji glyphs occupy two units each, so offsets are
// derived from the running length of the assembled text rather than from
// rune counts.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// Format validates the track metadata and assembles the message text, its
// entity spans and the attachment descriptor. The payload is only used for
// duration probing and is rewound before return.
func (f *Formatter) Format(track *model.Track, payload *bytes.Reader) (*Dispatch, error) {
	if err := validateMetadata(track); err != nil {
		return nil, &FormattingError{Err: err}
	}

	var b strings.Builder
	entities := make([]telegram.Entity, 0, 4)

	b.WriteString(track.Label())
	b.WriteString("\n")

	// Each span's offset is the running length of the text built so far.
	spotifyTextOffset := utf16Len(b.String())
	b.WriteString(spotifyLabel)
	b.WriteString(" ")
	spotifyEmojiOffset := utf16Len(b.String())
	b.WriteString(spotifyEmojiPlaceholder)
	b.WriteString("\n")

	ytmTextOffset := utf16Len(b.String())
	b.WriteString(ytmLabel)
	b.WriteString(" ")
	ytmEmojiOffset := utf16Len(b.String())
	b.WriteString(ytmEmojiPlaceholder)

	entities = append(entities,
		telegram.TextLink(spotifyTextOffset, utf16Len(spotifyLabel), track.SpotifyLink),
		telegram.CustomEmoji(spotifyEmojiOffset, utf16Len(spotifyEmojiPlaceholder), strconv.FormatInt(f.spotifyEmojiID, 10)),
		telegram.TextLink(ytmTextOffset, utf16Len(ytmLabel), track.YoutubeMusicLink),
		telegram.CustomEmoji(ytmEmojiOffset, utf16Len(ytmEmojiPlaceholder), strconv.FormatInt(f.youtubeMusicEmojiID, 10)),
	)

	dispatch := &Dispatch{
		Text:     b.String(),
		Entities: entities,
		Attachment: telegram.FileDescriptor{
			FileName:     acquire.SanitizeLabel(track.Label()) + ".mp3",
			MimeType:     "audio/mpeg",
			Title:        track.Title,
			Performer:    track.Artist,
			Duration:     f.probeDuration(track, payload),
			Voice:        false,
			DisableCache: true,
		},
		MessageAt: track.ScheduledAt,
		FileAt:    track.ScheduledAt.Add(fileScheduleOffset),
	}
	return dispatch, nil
}

// probeDuration asks the prober for the payload duration, falling back to
// zero when probing is unavailable or fails. The payload is rewound either
// way.
func (f *Formatter) probeDuration(track *model.Track, payload *bytes.Reader) int {
	if f.prober == nil || payload == nil {
		return 0
	}
	defer payload.Seek(0, io.SeekStart)

	seconds, err := f.prober.ProbeDuration(payload)
	if err != nil {
		logger.Warn("Duration probe failed, sending zero",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(err))
		return 0
	}
	return int(seconds)
}

// validateMetadata reports the first missing required field.
func validateMetadata(track *model.Track) error {
	switch {
	case track.Artist == "":
		return fmt.Errorf("track %d has no artist", track.ID)
	case track.Title == "":
		return fmt.Errorf("track %d has no title", track.ID)
	case track.SpotifyLink == "":
		return fmt.Errorf("track %d has no spotify link", track.ID)
	case track.YoutubeMusicLink == "":
		return fmt.Errorf("track %d has no youtube music link", track.ID)
	case track.ScheduledAt.IsZero():
		return fmt.Errorf("track %d has no scheduled time", track.ID)
	}
	return nil
}
