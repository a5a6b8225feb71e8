package server

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/snapcheck/internal/batch"
	"github.com/joseph-ayodele/snapcheck/internal/common"
)

func (s *BatchService) ListEssays(ctx context.Context, req *ListEssaysRequest) (*ListEssaysResponse, error) {
	sc, err := s.scanner(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	ledger := sc.Ledger()
	list := ledger.List()
	views := make([]EssayView, len(list))
	for i, e := range list {
		views[i] = essayView(e, req.IncludeImages)
	}
	return &ListEssaysResponse{
		Essays:   views,
		Counts:   ledger.Counts(),
		Complete: ledger.CompleteCount(),
		Blocking: ledger.Blocking(),
	}, nil
}

func (s *BatchService) UpdateEssay(ctx context.Context, req *UpdateEssayRequest) (*UpdateEssayResponse, error) {
	if err := checkIDs("temp_id", req.TempID); err != nil {
		return nil, err
	}
	field, err := batch.ParseField(req.Field)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	sc, err := s.scanner(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	e, err := sc.Update(req.TempID, field, req.Value)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return &UpdateEssayResponse{Essay: essayView(e, false)}, nil
}

func (s *BatchService) RemoveEssay(ctx context.Context, req *RemoveEssayRequest) (*Empty, error) {
	if err := checkIDs("temp_id", req.TempID); err != nil {
		return nil, err
	}
	sc, err := s.scanner(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if err := sc.Remove(req.TempID); err != nil {
		return nil, common.ToStatus(err)
	}
	return &Empty{}, nil
}

func (s *BatchService) CommitBatch(ctx context.Context, req *BatchRequest) (*CommitBatchResponse, error) {
	sc, err := s.scanner(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	res, err := sc.Commit(ctx)
	if err != nil {
		return nil, common.ToStatus(fmt.Errorf("commit batch %s: %w", sc.ID(), err))
	}
	return &CommitBatchResponse{Submissions: res.Submissions, Cleared: res.Cleared}, nil
}

func (s *BatchService) DiscardBatch(ctx context.Context, req *BatchRequest) (*Empty, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkIDs("batch_id", req.BatchID); err != nil {
		return nil, err
	}
	if err := s.manager.Discard(req.BatchID, id); err != nil {
		return nil, common.ToStatus(err)
	}
	s.log(ctx).Info("batch.discarded", "batch_id", req.BatchID, "teacher_id", id.UserID)
	return &Empty{}, nil
}
