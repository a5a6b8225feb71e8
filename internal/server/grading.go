package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

// ownedActivity loads an activity and checks the caller teaches its class.
func (s *BatchService) ownedActivity(ctx context.Context, activityID string) (*entity.Activity, error) {
	if err := required("activity_id", activityID); err != nil {
		return nil, err
	}
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	a, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	if _, err := s.manager.Resolver().Activities(ctx, sess, a.ClassID); err != nil {
		return nil, common.ToStatus(err)
	}
	return a, nil
}

func (s *BatchService) GradeEssay(ctx context.Context, req *GradeEssayRequest) (*GradeEssayResponse, error) {
	if err := required("essay_text", req.EssayText); err != nil {
		return nil, err
	}
	a, err := s.ownedActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	g, err := s.grader.GradeEssay(ctx, llm.GradeRequest{
		EssayText:           req.EssayText,
		Rubric:              a.Rubric,
		ActivityDescription: a.Description,
	})
	if err != nil {
		return nil, common.ToStatus(common.NewAppError("LLM_ERROR", "grading failed", upstream(err)))
	}
	return &GradeEssayResponse{Score: g.PreliminaryScore, Feedback: g.Feedback}, nil
}

func (s *BatchService) AnnotateGrammar(ctx context.Context, req *AnnotateGrammarRequest) (*AnnotateGrammarResponse, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if err := sess.RequireTeacher(); err != nil {
		return nil, common.ToStatus(err)
	}
	if err := required("essay_text", req.EssayText); err != nil {
		return nil, err
	}
	out, err := s.annotator.AnnotateGrammar(ctx, req.EssayText)
	if err != nil {
		return nil, common.ToStatus(common.NewAppError("LLM_ERROR", "grammar annotation failed", upstream(err)))
	}
	return &AnnotateGrammarResponse{CorrectedHTML: out.CorrectedHTML}, nil
}

// upstream marks provider failures so they map to Unavailable; timeouts keep their own code.
func upstream(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrUpstreamFailed, err)
}
