package model

import "fmt"

type ContentType string

const (
	ContentTypeProject     ContentType = "project"     // Student project
	ContentTypeAchievement ContentType = "achievement" // Certificate, award or competition result
	ContentTypeResume      ContentType = "resume"      // Résumé document
	ContentTypeMarks       ContentType = "marks"       // Marks record with a numeric score
	ContentTypeAny         ContentType = "any"         // Wildcard, only valid on workflow definitions
)

// ContentTypes lists every concrete content kind in display order.
var ContentTypes = []ContentType{
	ContentTypeProject,
	ContentTypeAchievement,
	ContentTypeResume,
	ContentTypeMarks,
}

// IsConcrete reports whether t names a real content kind (not the wildcard).
func (t ContentType) IsConcrete() bool {
	switch t {
	case ContentTypeProject, ContentTypeAchievement, ContentTypeResume, ContentTypeMarks:
		return true
	}
	return false
}

// IsValidForDefinition reports whether t may be used on a workflow definition.
func (t ContentType) IsValidForDefinition() bool {
	return t == ContentTypeAny || t.IsConcrete()
}

// ParseContentType converts a raw string into a ContentType.
func ParseContentType(raw string) (ContentType, error) {
	t := ContentType(raw)
	if !t.IsValidForDefinition() {
		return "", fmt.Errorf("unknown content type %q", raw)
	}
	return t, nil
}

// ApprovalMarker is the approval state recorded on a content item.
type ApprovalMarker string

const (
	ApprovalMarkerNotRequested ApprovalMarker = "not_requested"
	ApprovalMarkerPending      ApprovalMarker = "pending"
	ApprovalMarkerApproved     ApprovalMarker = "approved"
	ApprovalMarkerRejected     ApprovalMarker = "rejected"
)

// ContentApprovalState is what the engine writes back onto a content item.
type ContentApprovalState struct {
	Marker  ApprovalMarker `json:"marker"`
	Visible bool           `json:"visible"`
}
