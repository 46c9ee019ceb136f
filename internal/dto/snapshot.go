package dto

// ApproveSnapshotRequest freezes the current draft.
type ApproveSnapshotRequest struct {
	Kind        string `json:"kind" validate:"omitempty,oneof=TIMETABLE EXAM"`
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
}

// RejectSnapshotRequest records why a draft was turned down.
type RejectSnapshotRequest struct {
	Kind   string `json:"kind" validate:"omitempty,oneof=TIMETABLE EXAM"`
	Reason string `json:"reason" validate:"required,max=1000"`
}

// RejectSnapshotResponse tells the caller what to do next.
type RejectSnapshotResponse struct {
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
	Regenerate bool   `json:"regenerate"`
}

// ApproveSnapshotResponse identifies the new active snapshot.
type ApproveSnapshotResponse struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Records int    `json:"records"`
}
