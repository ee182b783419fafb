package pipeline

// Stage names the orchestrator state a run is in.
type Stage string

const (
	StageStart            Stage = "start"
	StageCaptionLookup    Stage = "caption_lookup"
	StageDownloadFallback Stage = "download_fallback"
	StageConverting       Stage = "converting"
	StageTranscribing     Stage = "transcribing"
	StageComplete         Stage = "complete"
	StageFailed           Stage = "failed"
)

// Status messages emitted on transitions.
const (
	MessageCaptionLookup   = "Checking for captions…"
	MessageCaptionFallback = "Captions unavailable, falling back to audio transcription"
	MessageDownloading     = "Downloading audio…"
	MessageConverting      = "Converting audio…"
	MessageWaitingForLock  = "Waiting for another transcription to finish…"
)
