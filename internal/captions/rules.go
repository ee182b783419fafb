package captions

import (
	"strings"

	"golang.org/x/text/language"

	"scribe/internal/services/ytdlp"
)

// Scope limits which track languages a rule accepts.
type Scope int

const (
	// ScopePrimary accepts tracks in the primary language.
	ScopePrimary Scope = iota
	// ScopeSecondary accepts tracks in any secondary language, tried in preference order.
	ScopeSecondary
	// ScopeAny accepts every language.
	ScopeAny
)

func (s Scope) String() string {
	switch s {
	case ScopePrimary:
		return "primary"
	case ScopeSecondary:
		return "secondary"
	default:
		return "any"
	}
}

// Rule is one step of the caption preference order.
type Rule struct {
	Manual bool
	Scope  Scope
}

func (r Rule) String() string {
	kind := "auto"
	if r.Manual {
		kind = "manual"
	}
	return kind + "/" + r.Scope.String()
}

// DefaultRules is the caption preference order; the first rule that yields a
// usable track wins.
var DefaultRules = []Rule{
	{Manual: true, Scope: ScopePrimary},
	{Manual: true, Scope: ScopeSecondary},
	{Manual: true, Scope: ScopeAny},
	{Manual: false, Scope: ScopePrimary},
	{Manual: false, Scope: ScopeAny},
}

// Preferences holds the parsed language preferences.
type Preferences struct {
	Primary   language.Tag
	Secondary []language.Tag
}

// ParsePreferences parses BCP 47 tags. Invalid secondary entries are skipped.
func ParsePreferences(primary string, secondary []string) (Preferences, error) {
	tag, err := language.Parse(primary)
	if err != nil {
		return Preferences{}, err
	}
	prefs := Preferences{Primary: tag}
	for _, raw := range secondary {
		if t, err := language.Parse(raw); err == nil {
			prefs.Secondary = append(prefs.Secondary, t)
		}
	}
	return prefs, nil
}

// Select returns the track rule r picks from tracks, which must be in
// provider listing order.
func (r Rule) Select(tracks []ytdlp.Track, prefs Preferences) (ytdlp.Track, bool) {
	candidates := make([]ytdlp.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Manual == r.Manual {
			candidates = append(candidates, track)
		}
	}
	if len(candidates) == 0 {
		return ytdlp.Track{}, false
	}

	switch r.Scope {
	case ScopePrimary:
		return pickFor(candidates, prefs.Primary)
	case ScopeSecondary:
		for _, want := range prefs.Secondary {
			if track, ok := pickFor(candidates, want); ok {
				return track, true
			}
		}
		return ytdlp.Track{}, false
	default:
		if !r.Manual {
			// Automatic captions include machine translations of the spoken
			// language; the -orig track is the direct recognition output.
			for _, track := range candidates {
				if strings.HasSuffix(track.Language, ytdlp.OriginalSuffix) {
					return track, true
				}
			}
		}
		return candidates[0], true
	}
}

// pickFor prefers an exact code match, then -orig, then any tag match.
func pickFor(candidates []ytdlp.Track, want language.Tag) (ytdlp.Track, bool) {
	wantCode := want.String()
	for _, track := range candidates {
		if strings.EqualFold(trimOrig(track.Language), wantCode) && strings.HasSuffix(track.Language, ytdlp.OriginalSuffix) {
			return track, true
		}
	}
	for _, track := range candidates {
		if strings.EqualFold(track.Language, wantCode) {
			return track, true
		}
	}
	for _, track := range candidates {
		if matchesTag(track.Language, want) {
			return track, true
		}
	}
	return ytdlp.Track{}, false
}

// matchesTag reports whether a provider language code satisfies want. Bases
// must agree; an explicit script or region on want must agree with the
// track's explicit or inferred value.
func matchesTag(code string, want language.Tag) bool {
	tag, err := language.Parse(trimOrig(code))
	if err != nil {
		return false
	}
	wantBase, wantScript, wantRegion := want.Raw()
	trackBase, _ := tag.Base()
	if trackBase != wantBase {
		return false
	}
	if wantScript != (language.Script{}) {
		trackScript, conf := tag.Script()
		if conf == language.No || trackScript != wantScript {
			return false
		}
	}
	if wantRegion != (language.Region{}) {
		_, _, trackRegion := tag.Raw()
		if trackRegion != wantRegion {
			return false
		}
	}
	return true
}

func trimOrig(code string) string {
	return strings.TrimSuffix(code, ytdlp.OriginalSuffix)
}
