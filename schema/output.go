package schema

// DefaultFinishedMarker is appended to the transcript when a process ends.
const DefaultFinishedMarker = "[Process finished]"

// ErrorMarkerPrefix starts the transcript line written when a run fails.
const ErrorMarkerPrefix = "[Process error: "

// FormatErrorMarker renders the transcript line for a failed run.
func FormatErrorMarker(msg string) string {
	return ErrorMarkerPrefix + msg + "]"
}
