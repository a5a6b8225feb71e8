package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/snapcheck/internal/batch"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

func (s *BatchService) StartBatch(ctx context.Context, req *StartBatchRequest) (*StartBatchResponse, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := s.manager.Start(ctx, id, req.ClassID, req.ActivityID)
	if err != nil {
		s.log(ctx).Warn("batch.start.failed", "teacher_id", id.UserID, "class_id", req.ClassID, "activity_id", req.ActivityID, "error", err)
		return nil, common.ToStatus(err)
	}
	t := sc.Target()
	return &StartBatchResponse{
		BatchID:    sc.ID(),
		Class:      t.Class,
		Activity:   t.Activity,
		RosterSize: len(t.Roster),
	}, nil
}

func (s *BatchService) Intake(ctx context.Context, req *IntakeRequest) (*IntakeResponse, error) {
	sc, err := s.scanner(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if len(req.Images) == 0 {
		return nil, status.Error(codes.InvalidArgument, "images are required")
	}
	images := make([]entity.Image, len(req.Images))
	for i, p := range req.Images {
		images[i] = entity.Image{Filename: p.Filename, ContentType: p.ContentType, Data: p.Data}
	}

	ids, err := sc.Intake(ctx, images...)
	if err != nil {
		if len(ids) > 0 && errors.Is(err, batch.ErrQueueFull) {
			return &IntakeResponse{TempIDs: ids, Rejected: len(images) - len(ids), Error: err.Error()}, nil
		}
		return nil, common.ToStatus(err)
	}
	return &IntakeResponse{TempIDs: ids}, nil
}
