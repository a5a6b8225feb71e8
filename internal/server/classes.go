package server

import (
	"context"

	"github.com/joseph-ayodele/snapcheck/internal/common"
)

func (s *BatchService) ListClasses(ctx context.Context, _ *Empty) (*ListClassesResponse, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	classes, err := s.manager.Resolver().Classes(ctx, sess)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return &ListClassesResponse{Classes: classes}, nil
}

func (s *BatchService) ListActivities(ctx context.Context, req *ClassRequest) (*ListActivitiesResponse, error) {
	if err := required("class_id", req.ClassID); err != nil {
		return nil, err
	}
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	acts, err := s.manager.Resolver().Activities(ctx, sess, req.ClassID)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return &ListActivitiesResponse{Activities: acts}, nil
}

func (s *BatchService) ListRoster(ctx context.Context, req *ClassRequest) (*ListRosterResponse, error) {
	if err := required("class_id", req.ClassID); err != nil {
		return nil, err
	}
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	students, err := s.manager.Resolver().Roster(ctx, sess, req.ClassID)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return &ListRosterResponse{Students: students}, nil
}
