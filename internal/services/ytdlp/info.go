package ytdlp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Info is the subset of yt-dlp -j metadata the pipeline consumes.
type Info struct {
	ID                string                     `json:"id"`
	Title             string                     `json:"title"`
	Duration          float64                    `json:"duration"`
	Subtitles         map[string][]CaptionFormat `json:"subtitles"`
	AutomaticCaptions map[string][]CaptionFormat `json:"automatic_captions"`
}

// CaptionFormat is one downloadable rendition of a caption track.
type CaptionFormat struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Track is a caption track available in a specific format.
type Track struct {
	Language string
	Name     string
	Manual   bool
	URL      string
}

// OriginalSuffix marks automatic captions in the spoken language, as opposed
// to machine translations.
const OriginalSuffix = "-orig"

// ParseInfo decodes yt-dlp -j output.
func ParseInfo(raw []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return Info{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return info, nil
}

// Tracks lists caption tracks offered in ext: manual tracks first, then
// automatic ones, each sorted by language code so the listing is stable.
func (i Info) Tracks(ext string) []Track {
	tracks := collect(i.Subtitles, ext, true)
	return append(tracks, collect(i.AutomaticCaptions, ext, false)...)
}

func collect(byLang map[string][]CaptionFormat, ext string, manual bool) []Track {
	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		if lang == "live_chat" {
			continue
		}
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	var out []Track
	for _, lang := range langs {
		for _, format := range byLang[lang] {
			if !strings.EqualFold(format.Ext, ext) || strings.TrimSpace(format.URL) == "" {
				continue
			}
			out = append(out, Track{Language: lang, Name: format.Name, Manual: manual, URL: format.URL})
			break
		}
	}
	return out
}
