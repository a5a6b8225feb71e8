package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service implements every essay operation on top of a provider Transport.
type Service struct {
	transport Transport
	logger    *slog.Logger
}

var (
	_ TextExtractor     = (*Service)(nil)
	_ EssayGrader       = (*Service)(nil)
	_ StudentIdentifier = (*Service)(nil)
	_ GrammarAnnotator  = (*Service)(nil)
)

func NewService(t Transport, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{transport: t, logger: logger}
}

func (s *Service) ExtractText(ctx context.Context, img ImageInput) (Extraction, error) {
	if len(img.Data) == 0 {
		return Extraction{}, &Error{Op: OpExtractText, Message: "no image data"}
	}
	sys, user := extractPrompts()
	var out Extraction
	if err := s.run(ctx, CompletionRequest{
		Op: OpExtractText, System: sys, User: user, Image: &img, Schema: ExtractionSchema(),
	}, &out); err != nil {
		return Extraction{}, err
	}
	out.Text = NormalizeTranscript(out.Text)
	return out, nil
}

func (s *Service) GradeEssay(ctx context.Context, req GradeRequest) (Grade, error) {
	if strings.TrimSpace(req.EssayText) == "" {
		return Grade{}, &Error{Op: OpGradeEssay, Message: "essay text is empty"}
	}
	sys, user := gradePrompts(req)
	var out Grade
	if err := s.run(ctx, CompletionRequest{
		Op: OpGradeEssay, System: sys, User: user, Schema: GradeSchema(),
	}, &out); err != nil {
		return Grade{}, err
	}
	return out, nil
}

func (s *Service) IdentifyStudent(ctx context.Context, req IdentifyRequest) (Identification, error) {
	if len(req.Roster) == 0 {
		return Identification{Reason: "class roster is empty"}, nil
	}
	sys, user := identifyPrompts(req)
	var out Identification
	if err := s.run(ctx, CompletionRequest{
		Op: OpIdentifyStudent, System: sys, User: user, Schema: IdentificationSchema(),
	}, &out); err != nil {
		return Identification{}, err
	}

	// Ids outside the roster are treated as "no match".
	if out.StudentID != nil {
		known := false
		for _, r := range req.Roster {
			if r.ID == *out.StudentID {
				known = true
				break
			}
		}
		if !known {
			s.logger.Warn("llm.identify.unknown_id", "student_id", *out.StudentID)
			out.StudentID = nil
		}
	}
	return out, nil
}

func (s *Service) AnnotateGrammar(ctx context.Context, essayText string) (GrammarAnnotation, error) {
	if strings.TrimSpace(essayText) == "" {
		return GrammarAnnotation{}, &Error{Op: OpAnnotateGrammar, Message: "essay text is empty"}
	}
	sys, user := grammarPrompts(essayText)
	var out GrammarAnnotation
	if err := s.run(ctx, CompletionRequest{
		Op: OpAnnotateGrammar, System: sys, User: user, Schema: GrammarSchema(),
	}, &out); err != nil {
		return GrammarAnnotation{}, err
	}
	return out, nil
}

// run sends req, validates the reply against req.Schema (sanitizing once on
// failure) and decodes it into out.
func (s *Service) run(ctx context.Context, req CompletionRequest, out any) error {
	rid := uuid.New().String()
	start := time.Now()
	s.logger.Info("llm."+string(req.Op)+".start",
		"req_id", rid,
		"provider", s.transport.Name(),
		"user_len", len(req.User),
		"has_image", req.Image != nil,
	)

	raw, err := s.transport.Complete(ctx, req)
	if err != nil {
		s.logger.Error("llm."+string(req.Op)+".transport_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		var le *Error
		if errors.As(err, &le) {
			return err
		}
		return &Error{Op: req.Op, Message: "provider request failed", Cause: err}
	}

	content := StripFences(raw)
	if vErr := validateOp(req.Op, req.Schema, content); vErr != nil {
		cleaned, changed, sErr := Sanitize(req.Op, content)
		if sErr != nil {
			s.logger.Error("llm."+string(req.Op)+".sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return &Error{Op: req.Op, Message: "response is not JSON", Cause: sErr}
		}
		if err := validateOp(req.Op, req.Schema, cleaned); err != nil {
			s.logger.Error("llm."+string(req.Op)+".schema_validation_failed",
				"req_id", rid, "error", err, "content", string(content),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return &Error{Op: req.Op, Message: "response does not match schema", Cause: err}
		}
		s.logger.Warn("llm."+string(req.Op)+".sanitize_applied",
			"req_id", rid, "changed", changed,
		)
		content = cleaned
	}

	if err := json.Unmarshal(content, out); err != nil {
		return &Error{Op: req.Op, Message: "decode response", Cause: err}
	}
	s.logger.Info("llm."+string(req.Op)+".ok",
		"req_id", rid,
		"bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
