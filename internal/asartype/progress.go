package asartype

// ProgressEvent represents a progress update during packing or extraction.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of file bytes completed so far.
	BytesDone uint64

	// BytesTotal is the total number of file bytes.
	// Zero indicates the total is unknown (e.g., while walking).
	BytesTotal uint64

	// FilesDone is the number of files completed.
	FilesDone int

	// FilesTotal is the total number of files.
	// Zero indicates the total is unknown.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageWalking indicates the source tree is being enumerated.
	StageWalking ProgressStage = iota

	// StageWriting indicates file contents are being appended to the archive.
	StageWriting

	// StageExtracting indicates files are being extracted.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageWalking:
		return "walking"
	case StageWriting:
		return "writing"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
