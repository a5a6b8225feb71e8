package server

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/batch"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/export"
	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

// ServiceDeps wires BatchService.
type ServiceDeps struct {
	Manager     *batch.Manager
	Activities  export.ActivityGetter
	Submissions export.SubmissionLister
	Exporter    *export.Service
	Grader      llm.EssayGrader
	Annotator   llm.GrammarAnnotator
	Logger      *slog.Logger
}

type BatchService struct {
	manager     *batch.Manager
	activities  export.ActivityGetter
	submissions export.SubmissionLister
	exporter    *export.Service
	grader      llm.EssayGrader
	annotator   llm.GrammarAnnotator
	logger      *slog.Logger
}

var _ BatchServiceServer = (*BatchService)(nil)

func NewBatchService(d ServiceDeps) *BatchService {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchService{
		manager:     d.Manager,
		activities:  d.Activities,
		submissions: d.Submissions,
		exporter:    d.Exporter,
		grader:      d.Grader,
		annotator:   d.Annotator,
		logger:      logger,
	}
}

func (s *BatchService) log(ctx context.Context) *slog.Logger {
	return common.LoggerFromContext(ctx, s.logger)
}

func (s *BatchService) identity(ctx context.Context) (auth.Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return auth.Identity{}, status.Error(codes.Unauthenticated, "missing identity")
	}
	return id, nil
}

// session opens a short-lived session for one reference-data request.
func (s *BatchService) session(ctx context.Context) (*auth.Session, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	return auth.NewSession(nil, id), nil
}

func (s *BatchService) scanner(ctx context.Context, batchID string) (*batch.Scanner, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	batchID = strings.TrimSpace(batchID)
	if err := checkIDs("batch_id", batchID); err != nil {
		return nil, err
	}
	sc, err := s.manager.Get(batchID, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return sc, nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return nil
}

// checkIDs validates name/value pairs of server-generated ids, which are UUIDs.
func checkIDs(pairs ...string) error {
	v := common.NewValidator()
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Field(pairs[i], strings.TrimSpace(pairs[i+1]), common.Required, common.UUID)
	}
	return common.ToStatus(v.Error())
}
