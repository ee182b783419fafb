package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return cmd.CombinedOutput()
}

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg    Config
	binary string
	run    CommandRunner
}

// Option configures a Service.
type Option func(*Service)

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner CommandRunner) Option {
	return func(s *Service) {
		if runner != nil {
			s.run = runner
		}
	}
}

// WithBinary overrides the uvx launcher path.
func WithBinary(binary string) Option {
	return func(s *Service) {
		if strings.TrimSpace(binary) != "" {
			s.binary = binary
		}
	}
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{cfg: cfg, binary: UVXCommand, run: execRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load checks that the launcher is callable and returns the service. It is
// the expensive first-use step the engine performs exactly once.
func Load(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	s := NewService(cfg, opts...)
	if err := s.Ready(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Ready runs the launcher's version command.
func (s *Service) Ready(ctx context.Context) error {
	output, err := s.run(ctx, s.binary, "--version")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "load model",
			fmt.Sprintf("%s unavailable: %s", s.binary, strings.TrimSpace(string(output))), err)
	}
	return nil
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// Transcribe recognizes speech in audio and returns segments in file time.
// An empty lang lets WhisperX detect the language.
func (s *Service) Transcribe(ctx context.Context, audio, lang string) ([]transcript.Segment, error) {
	if strings.TrimSpace(audio) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribing", "whisperx", "audio path required", nil)
	}
	base := s.cfg.WorkDir
	if base == "" {
		base = filepath.Dir(audio)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "whisperx", "ensure work dir", err)
	}
	outputDir, err := os.MkdirTemp(base, "whisperx-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "whisperx", "create output dir", err)
	}
	defer os.RemoveAll(outputDir)

	args := s.BuildArgs(audio, outputDir, lang)
	if output, err := s.run(ctx, s.binary, args...); err != nil {
		return nil, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "whisperx",
			strings.TrimSpace(string(output)), err)
	}

	jsonPath := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))+".json")
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "whisperx", "read output", err)
	}
	return segments, nil
}

// BuildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) BuildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if code := isoCode(lang); code != "" {
		args = append(args, "--language", code)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// isoCode reduces a BCP 47 tag to the two-letter base WhisperX expects.
func isoCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file, trimming text and
// skipping blank segments.
func LoadSegments(jsonPath string) ([]transcript.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("whisperx produced no output at %s", jsonPath)
		}
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	return segments, nil
}
