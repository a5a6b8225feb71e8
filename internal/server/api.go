package server

import (
	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/batch"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

type Empty struct{}

type ListClassesResponse struct {
	Classes []*entity.Class `json:"classes"`
}

type ClassRequest struct {
	ClassID string `json:"class_id"`
}

type ListActivitiesResponse struct {
	Activities []*entity.Activity `json:"activities"`
}

type ListRosterResponse struct {
	Students []*entity.Student `json:"students"`
}

type StartBatchRequest struct {
	ClassID    string `json:"class_id"`
	ActivityID string `json:"activity_id"`
}

type StartBatchResponse struct {
	BatchID    string           `json:"batch_id"`
	Class      *entity.Class    `json:"class"`
	Activity   *entity.Activity `json:"activity"`
	RosterSize int              `json:"roster_size"`
}

// ImagePayload is one uploaded image; Data is base64 on the wire.
type ImagePayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

type IntakeRequest struct {
	BatchID string         `json:"batch_id"`
	Images  []ImagePayload `json:"images"`
}

// IntakeResponse lists the accepted essays. When the queue filled up part way,
// Rejected counts the trailing images that were refused and Error says why.
type IntakeResponse struct {
	TempIDs  []string `json:"temp_ids"`
	Rejected int      `json:"rejected,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type BatchRequest struct {
	BatchID string `json:"batch_id"`
}

type ListEssaysRequest struct {
	BatchID       string `json:"batch_id"`
	IncludeImages bool   `json:"include_images,omitempty"`
}

// EssayView is a ledger record plus the derived review state.
type EssayView struct {
	entity.ProcessedEssay
	DisplayStatus  constants.EssayStatus `json:"display_status"`
	ShowConfidence bool                  `json:"show_confidence"`
	Complete       bool                  `json:"complete"`
	Missing        []string              `json:"missing,omitempty"`
}

type ListEssaysResponse struct {
	Essays   []EssayView                   `json:"essays"`
	Counts   map[constants.EssayStatus]int `json:"counts"`
	Complete int                           `json:"complete"`
	Blocking []batch.Blocker               `json:"blocking,omitempty"`
}

type UpdateEssayRequest struct {
	BatchID string `json:"batch_id"`
	TempID  string `json:"temp_id"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

type UpdateEssayResponse struct {
	Essay EssayView `json:"essay"`
}

type RemoveEssayRequest struct {
	BatchID string `json:"batch_id"`
	TempID  string `json:"temp_id"`
}

type CommitBatchResponse struct {
	Submissions []*entity.Submission `json:"submissions"`
	Cleared     int                  `json:"cleared"`
}

// GradeEssayRequest regrades one essay text against an activity's rubric.
type GradeEssayRequest struct {
	ActivityID string `json:"activity_id"`
	EssayText  string `json:"essay_text"`
}

type GradeEssayResponse struct {
	Score    string `json:"score"`
	Feedback string `json:"feedback"`
}

type AnnotateGrammarRequest struct {
	EssayText string `json:"essay_text"`
}

type AnnotateGrammarResponse struct {
	CorrectedHTML string `json:"corrected_html"`
}

type ActivityRequest struct {
	ActivityID string `json:"activity_id"`
}

type ListSubmissionsResponse struct {
	Submissions []*entity.Submission `json:"submissions"`
}

type ExportGradesResponse struct {
	Filename string `json:"filename"`
	XLSX     []byte `json:"xlsx"`
}

func essayView(e entity.ProcessedEssay, includeImage bool) EssayView {
	if !includeImage {
		e.ImageURL = ""
	}
	return EssayView{
		ProcessedEssay: e,
		DisplayStatus:  e.DisplayStatus(),
		ShowConfidence: e.ShowConfidence(),
		Complete:       e.IsComplete(),
		Missing:        e.MissingFields(),
	}
}
