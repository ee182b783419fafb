// Package reference extracts canonical video identifiers from media references.
package reference

import (
	"fmt"
	"regexp"
	"strings"

	"scribe/internal/services"
)

// IDLength is the length of a canonical content identifier.
const IDLength = 11

var idPattern = regexp.MustCompile(
	`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?|live|shorts)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`,
)

// ExtractID returns the 11-character content identifier embedded in ref.
// References that match no known URL shape fail with services.ErrInvalidReference.
func ExtractID(ref string) (string, error) {
	match := idPattern.FindStringSubmatch(ref)
	if len(match) < 2 {
		return "", services.Wrap(
			services.ErrInvalidReference,
			"start",
			"extract id",
			fmt.Sprintf("unrecognized video reference %q", strings.TrimSpace(ref)),
			nil,
		)
	}
	return match[1], nil
}

// IsRemote reports whether ref looks like a URL rather than a local path.
func IsRemote(ref string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(trimmed, "http://") ||
		strings.HasPrefix(trimmed, "https://") ||
		strings.HasPrefix(trimmed, "www.") ||
		strings.HasPrefix(trimmed, "youtube.com/") ||
		strings.HasPrefix(trimmed, "youtu.be/")
}

// WatchURL builds the canonical watch URL for a content identifier.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
