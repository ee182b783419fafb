package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"scribe/internal/logging"
	"scribe/internal/media/ffmpeg"
	"scribe/internal/services"
)

// sniffBytes is enough header for filetype to classify every container it knows.
const sniffBytes = 262

// Convert standardizes a local media file into mono 16 kHz PCM inside the work
// directory; the input is left untouched. Conversion is not retried; a tool failure surfaces as
// services.ErrExternalTool.
func (f *Fetcher) Convert(ctx context.Context, input string) (Artifact, error) {
	info, err := os.Stat(input)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrNotFound, "convert", "stat input", input, err)
	}
	if info.IsDir() {
		return Artifact{}, services.Wrap(services.ErrValidation, "convert", "stat input", input+" is a directory", nil)
	}
	if err := sniff(input); err != nil {
		return Artifact{}, err
	}
	if f.converter == nil {
		return Artifact{}, services.Wrap(services.ErrConfiguration, "convert", "extract audio", "no converter configured", nil)
	}

	if err := os.MkdirAll(f.opts.WorkDir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrConfiguration, "convert", "ensure work dir", f.opts.WorkDir, err)
	}
	dest := ffmpeg.ProcessedPath(filepath.Join(f.opts.WorkDir, filepath.Base(input)))
	if err := f.converter.ExtractAudio(ctx, input, dest); err != nil {
		_ = os.Remove(dest)
		return Artifact{}, services.Wrap(services.ErrExternalTool, "convert", "extract audio", input, err)
	}
	out, err := os.Stat(dest)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrArtifactMissing, "convert", "verify", dest, err)
	}
	logging.WithContext(ctx, f.logger).Info("audio standardized",
		logging.String("input", input),
		logging.String("output", dest),
		logging.Int64("bytes", out.Size()),
	)
	return Artifact{Path: dest, Size: out.Size()}, nil
}

// sniff rejects files whose header identifies them as something other than
// audio or video. Unrecognized headers are passed through to ffmpeg.
func sniff(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "convert", "open input", path, err)
	}
	defer file.Close()

	head := make([]byte, sniffBytes)
	n, _ := file.Read(head)
	if n == 0 {
		return services.Wrap(services.ErrValidation, "convert", "sniff", path+" is empty", nil)
	}
	head = head[:n]
	if filetype.IsAudio(head) || filetype.IsVideo(head) {
		return nil
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return nil
	}
	return services.Wrap(services.ErrValidation, "convert", "sniff",
		fmt.Sprintf("%s looks like %s, not audio or video", path, kind.MIME.Value), nil)
}
