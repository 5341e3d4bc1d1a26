package submission

import "fmt"

type State int

const (
	StateIdle State = iota
	StateValidating
	StatePersistingMetadata
	StateReconcilingMedia
	StateDeletingRemoved
	StateUploadingNew
	StateRegisteringMedia
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateValidating:         "validating",
	StatePersistingMetadata: "persisting_metadata",
	StateReconcilingMedia:   "reconciling_media",
	StateDeletingRemoved:    "deleting_removed",
	StateUploadingNew:       "uploading_new",
	StateRegisteringMedia:   "registering_media",
	StateDone:               "done",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the flow stops in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
