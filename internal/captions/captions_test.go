package captions_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/captions"
	"scribe/internal/services"
	"scribe/internal/services/ytdlp"
	"scribe/internal/transcript"
)

type fakeProvider struct {
	tracks   []ytdlp.Track
	listErr  error
	failing  map[string]error
	segments map[string][]transcript.Segment
	fetched  []string
}

func (f *fakeProvider) List(context.Context, string) ([]ytdlp.Track, error) {
	return f.tracks, f.listErr
}

func (f *fakeProvider) Fetch(_ context.Context, track ytdlp.Track) ([]transcript.Segment, error) {
	f.fetched = append(f.fetched, track.Language)
	if err := f.failing[track.Language]; err != nil {
		return nil, err
	}
	if segs, ok := f.segments[track.Language]; ok {
		return segs, nil
	}
	return []transcript.Segment{{Start: 0, End: 1, Text: "text in " + track.Language}}, nil
}

func defaultPrefs(t *testing.T) captions.Preferences {
	t.Helper()
	prefs, err := captions.ParsePreferences("en", []string{"zh-Hant", "zh-Hans", "zh-TW", "zh-HK", "zh-CN", "zh"})
	require.NoError(t, err)
	return prefs
}

func TestRulePreferenceOrder(t *testing.T) {
	prefs := defaultPrefs(t)
	tests := []struct {
		name       string
		tracks     []ytdlp.Track
		wantLang   string
		wantManual bool
	}{
		{
			name: "manual primary beats everything",
			tracks: []ytdlp.Track{
				{Language: "de", Manual: true}, {Language: "en-US", Manual: true},
				{Language: "en-orig", Manual: false},
			},
			wantLang: "en-US", wantManual: true,
		},
		{
			name: "manual secondary beats manual other",
			tracks: []ytdlp.Track{
				{Language: "de", Manual: true}, {Language: "zh-TW", Manual: true},
				{Language: "en", Manual: false},
			},
			wantLang: "zh-TW", wantManual: true,
		},
		{
			name: "secondary list order is respected",
			tracks: []ytdlp.Track{
				{Language: "zh-Hans", Manual: true}, {Language: "zh-Hant", Manual: true},
			},
			wantLang: "zh-Hant", wantManual: true,
		},
		{
			name: "any manual beats auto primary",
			tracks: []ytdlp.Track{
				{Language: "ja", Manual: true}, {Language: "en", Manual: false},
			},
			wantLang: "ja", wantManual: true,
		},
		{
			name: "auto primary prefers orig",
			tracks: []ytdlp.Track{
				{Language: "en", Manual: false}, {Language: "en-orig", Manual: false}, {Language: "fr", Manual: false},
			},
			wantLang: "en-orig", wantManual: false,
		},
		{
			name: "auto any prefers orig over translations",
			tracks: []ytdlp.Track{
				{Language: "af", Manual: false}, {Language: "ko-orig", Manual: false},
			},
			wantLang: "ko-orig", wantManual: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{tracks: tt.tracks}
			source := captions.NewSource(provider, transcript.NewStore(t.TempDir()), prefs)

			result, err := source.Fetch(context.Background(), "dQw4w9WgXcQ")
			require.NoError(t, err)
			assert.Equal(t, "text in "+tt.wantLang, result.Text)
			want := transcript.MethodCaptionsAuto
			if tt.wantManual {
				want = transcript.MethodCaptionsManual
			}
			assert.Equal(t, want, result.Method)
		})
	}
}

func TestFetchFallsThroughFailingRule(t *testing.T) {
	provider := &fakeProvider{
		tracks: []ytdlp.Track{
			{Language: "en", Manual: true},
			{Language: "de", Manual: true},
			{Language: "en", Manual: false},
		},
		failing:  map[string]error{"en": errors.New("HTTP 429")},
		segments: map[string][]transcript.Segment{"de": {}},
	}
	source := captions.NewSource(provider, transcript.NewStore(t.TempDir()), defaultPrefs(t))

	_, err := source.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrCaptionUnavailable)
	assert.Equal(t, []string{"en", "de", "en"}, provider.fetched)
}

func TestFetchListingFailureIsUnavailable(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("network down")}
	source := captions.NewSource(provider, transcript.NewStore(t.TempDir()), defaultPrefs(t))

	_, err := source.Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, services.ErrCaptionUnavailable)
}

func TestFetchNoTracks(t *testing.T) {
	source := captions.NewSource(&fakeProvider{}, transcript.NewStore(t.TempDir()), defaultPrefs(t))
	_, err := source.Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, services.ErrCaptionUnavailable)
}

func TestFetchPersistsIdempotently(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{
		tracks: []ytdlp.Track{{Language: "en", Manual: true}},
		segments: map[string][]transcript.Segment{"en": {
			{Start: 0, End: 2, Text: "never gonna"},
			{Start: 2, End: 4, Text: "give you up"},
		}},
	}
	source := captions.NewSource(provider, transcript.NewStore(dir), defaultPrefs(t))

	first, err := source.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	firstBytes, err := os.ReadFile(first.PersistedPath)
	require.NoError(t, err)

	second, err := source.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	secondBytes, err := os.ReadFile(second.PersistedPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "dQw4w9WgXcQ_transcript.txt"), first.PersistedPath)
	assert.Equal(t, "never gonna give you up", string(firstBytes))
	assert.Equal(t, firstBytes, secondBytes)
}

func TestParseJSON3(t *testing.T) {
	doc := `{"wireMagic":"pb3","events":[
		{"tStartMs":0,"dDurationMs":120000,"id":1,"wWinId":1},
		{"tStartMs":1500,"dDurationMs":2000,"segs":[{"utf8":"Hello"},{"utf8":" there","tOffsetMs":400}]},
		{"tStartMs":3500,"aAppend":1,"segs":[{"utf8":"\n"}]},
		{"tStartMs":4000,"dDurationMs":1000,"segs":[{"utf8":"general\nkenobi"}]}
	]}`
	segments, err := captions.ParseJSON3([]byte(doc))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, transcript.Segment{Start: 1.5, End: 3.5, Text: "Hello there"}, segments[0])
	assert.Equal(t, transcript.Segment{Start: 4, End: 5, Text: "general kenobi"}, segments[1])

	_, err = captions.ParseJSON3([]byte("<xml/>"))
	assert.Error(t, err)
}

type staticLister struct{ info ytdlp.Info }

func (s staticLister) Info(context.Context, string) (ytdlp.Info, error) { return s.info, nil }

func TestYtDlpProviderFetchesJSON3(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"events":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"hi"}]}]}`))
	}))
	defer server.Close()

	lister := staticLister{info: ytdlp.Info{
		Subtitles: map[string][]ytdlp.CaptionFormat{"en": {{Ext: "json3", URL: server.URL + "/en"}}},
	}}
	provider := captions.NewYtDlpProvider(lister, captions.WithHTTPClient(server.Client()), captions.WithRateLimit(100))

	tracks, err := provider.List(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	segments, err := provider.Fetch(context.Background(), tracks[0])
	require.NoError(t, err)
	assert.Equal(t, "hi", transcript.JoinText(segments))

	_, err = provider.Fetch(context.Background(), ytdlp.Track{Language: "xx", URL: server.URL + "/missing"})
	assert.Error(t, err)

	small := captions.NewYtDlpProvider(lister, captions.WithHTTPClient(server.Client()), captions.WithMaxBytes(10))
	_, err = small.Fetch(context.Background(), tracks[0])
	assert.Error(t, err)
}
