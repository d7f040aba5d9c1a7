package device

import (
	"bytes"
	_ "embed"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	//go:embed placeholders/disabled.png
	disabledPNG []byte

	//go:embed placeholders/privacy.png
	privacyPNG []byte
)

// DisabledPlaceholder is served for disabled cameras or disarmed networks.
// Each call returns a fresh copy.
func DisabledPlaceholder() []byte { return bytes.Clone(disabledPNG) }

// PrivacyPlaceholder is served instead of DisabledPlaceholder in privacy mode.
func PrivacyPlaceholder() []byte { return bytes.Clone(privacyPNG) }

// Thumbnail paths embed the capture date, e.g.
// /media/e006/camera/123/clip_2026_03_01__09_41PM.
var thumbnailDatePattern = regexp.MustCompile(`(?i)(\d{4})_(\d\d)_(\d\d)__(\d\d)_(\d\d)(am|pm)?`)

// ParseThumbnailTime extracts the capture time from a thumbnail path. A
// ts= query parameter (unix seconds) wins over the embedded date.
func ParseThumbnailTime(p string) (time.Time, bool) {
	if p == "" {
		return time.Time{}, false
	}

	if u, err := url.Parse(p); err == nil {
		if ts := u.Query().Get("ts"); ts != "" {
			if secs, err := strconv.ParseInt(ts, 10, 64); err == nil && secs > 0 {
				return time.Unix(secs, 0).UTC(), true
			}
		}
	}

	m := thumbnailDatePattern.FindStringSubmatch(p)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	switch strings.ToLower(m[6]) {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

// ThumbnailURL appends the .jpg extension the media host expects when the
// path has neither an extension nor a query string.
func ThumbnailURL(p string) string {
	if strings.Contains(p, "?") || path.Ext(p) != "" {
		return p
	}
	return p + ".jpg"
}
