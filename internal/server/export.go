package server

import (
	"context"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/export"
)

func (s *BatchService) ListSubmissions(ctx context.Context, req *ActivityRequest) (*ListSubmissionsResponse, error) {
	a, err := s.ownedActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions.ListByActivity(ctx, a.ID)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return &ListSubmissionsResponse{Submissions: subs}, nil
}

func (s *BatchService) ExportGrades(ctx context.Context, req *ActivityRequest) (*ExportGradesResponse, error) {
	a, err := s.ownedActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.exporter.ExportGradesXLSX(ctx, a.ID)
	if err != nil {
		s.log(ctx).Error("export.xlsx.failed", "activity_id", a.ID, "err", err)
		return nil, common.ToStatus(err)
	}
	return &ExportGradesResponse{Filename: export.Filename(a.Title, a.ID), XLSX: xlsx}, nil
}
