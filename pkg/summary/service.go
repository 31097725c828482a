package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"companion-notes/pkg/domain"
	"companion-notes/pkg/keypoints"
)

var (
	ErrUnauthorized       = errors.New("unauthorized - please sign in")
	ErrMissingCompanionID = errors.New("missing companion id")
	ErrMissingSummaryID   = errors.New("missing summary id")
	ErrNoPoints           = errors.New("no summary points to save")
	ErrNoneSelected       = errors.New("no summaries selected")
)

// Repository persists summaries. Implemented by db.SQLRepository and db.RESTRepository.
type Repository interface {
	InsertSummary(ctx context.Context, s domain.Summary) (domain.Summary, error)
	ListSummaries(ctx context.Context, userID, companionID string) ([]domain.Summary, error)
	UpdateSummary(ctx context.Context, s domain.Summary) error
	DeleteSummaries(ctx context.Context, userID string, ids []string) (int, error)
}

// PointGenerator produces study points for a lesson. Implemented by Generator.
type PointGenerator interface {
	Generate(ctx context.Context, req Request) ([]string, error)
}

// Service generates and stores summaries. A summary whose signature (topic
// plus point set) was already stored for the companion is not stored again.
type Service struct {
	repo    Repository
	gen     PointGenerator
	refresh func(path string)

	mu         sync.Mutex
	signatures map[string]*keypoints.SignatureSet
}

// NewService creates a summary service. gen and refresh may be nil.
func NewService(repo Repository, gen PointGenerator, refresh func(path string)) *Service {
	return &Service{
		repo:       repo,
		gen:        gen,
		refresh:    refresh,
		signatures: make(map[string]*keypoints.SignatureSet),
	}
}

// SummarizeInput identifies the session to summarize.
type SummarizeInput struct {
	UserID      string
	CompanionID string
	SessionID   string
	Topic       string
	Subject     string
	Transcript  string
	Path        string
}

// Result carries the generated points and whether they were stored.
// Saved is false when an identical summary already existed.
type Result struct {
	Points []string
	Saved  bool
}

// Summarize generates points for a transcript and stores them unless an
// identical summary already exists. The points are returned either way.
func (s *Service) Summarize(ctx context.Context, in SummarizeInput) (Result, error) {
	if s.gen == nil {
		return Result{}, fmt.Errorf("summarize: no generator configured")
	}

	points, err := s.gen.Generate(ctx, Request{Topic: in.Topic, Subject: in.Subject, Transcript: in.Transcript})
	if err != nil {
		return Result{}, err
	}

	res, saved, err := s.add(ctx, domain.SummaryInput{
		UserID:      in.UserID,
		CompanionID: in.CompanionID,
		SessionID:   in.SessionID,
		Title:       in.Topic,
		Points:      points,
		Path:        in.Path,
	})
	if err != nil {
		return Result{Points: points}, err
	}
	if !res.Success {
		return Result{Points: points}, fmt.Errorf("save summary: %s", res.Error)
	}
	return Result{Points: points, Saved: saved}, nil
}

// AddSummary validates and stores a summary. A duplicate of an already
// stored summary succeeds without a second insert.
func (s *Service) AddSummary(ctx context.Context, in domain.SummaryInput) (domain.ActionResult, error) {
	res, _, err := s.add(ctx, in)
	return res, err
}

func (s *Service) add(ctx context.Context, in domain.SummaryInput) (domain.ActionResult, bool, error) {
	companionID := strings.TrimSpace(in.CompanionID)
	points := cleanPoints(in.Points)
	title := strings.TrimSpace(in.Title)

	switch {
	case in.UserID == "":
		return domain.Failed(ErrUnauthorized.Error()), false, nil
	case companionID == "":
		return domain.Failed(ErrMissingCompanionID.Error()), false, nil
	case len(points) == 0:
		return domain.Failed(ErrNoPoints.Error()), false, nil
	}

	sigs, err := s.signatureSet(ctx, in.UserID, companionID)
	if err != nil {
		return domain.Failed(err.Error()), false, err
	}

	sig := keypoints.SummarySignature(title, points)
	if !sigs.Add(sig) {
		log.Printf("summary: skipping duplicate summary for companion %s", companionID)
		return domain.Succeeded, false, nil
	}

	summary := domain.Summary{
		UserID:      in.UserID,
		CompanionID: companionID,
		Points:      points,
	}
	if title != "" {
		summary.Title = &title
	}
	if in.SessionID != "" {
		sid := in.SessionID
		summary.SessionID = &sid
	}

	if _, err := s.repo.InsertSummary(ctx, summary); err != nil {
		sigs.Remove(sig)
		log.Printf("summary: add summary for companion %s failed: %v", companionID, err)
		return domain.Failed(err.Error()), false, fmt.Errorf("add summary: %w", err)
	}

	s.notify(in.Path)
	return domain.Succeeded, true, nil
}

// signatureSet returns the companion's signature set, seeding it from the
// stored summaries on first use.
func (s *Service) signatureSet(ctx context.Context, userID, companionID string) (*keypoints.SignatureSet, error) {
	key := userID + ":" + companionID

	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.signatures[key]; ok {
		return set, nil
	}

	existing, err := s.repo.ListSummaries(ctx, userID, companionID)
	if err != nil {
		return nil, fmt.Errorf("load existing summaries: %w", err)
	}

	set := keypoints.NewSignatureSet()
	for _, sum := range existing {
		set.Add(keypoints.SummarySignature(sum.Topic(), sum.Points))
	}
	s.signatures[key] = set
	return set, nil
}

// ListSummaries returns the user's summaries for a companion, newest first.
func (s *Service) ListSummaries(ctx context.Context, userID, companionID string) ([]domain.Summary, error) {
	if userID == "" {
		return []domain.Summary{}, nil
	}

	summaries, err := s.repo.ListSummaries(ctx, userID, companionID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	if summaries == nil {
		summaries = []domain.Summary{}
	}
	return summaries, nil
}

// UpdateSummary replaces the title and points of a stored summary.
func (s *Service) UpdateSummary(ctx context.Context, userID, summaryID, title string, points []string, path string) (domain.ActionResult, error) {
	id := strings.TrimSpace(summaryID)
	pts := cleanPoints(points)

	switch {
	case userID == "":
		return domain.Failed(ErrUnauthorized.Error()), nil
	case id == "":
		return domain.Failed(ErrMissingSummaryID.Error()), nil
	case len(pts) == 0:
		return domain.Failed(ErrNoPoints.Error()), nil
	}

	summary := domain.Summary{ID: id, UserID: userID, Points: pts}
	if t := strings.TrimSpace(title); t != "" {
		summary.Title = &t
	}

	if err := s.repo.UpdateSummary(ctx, summary); err != nil {
		log.Printf("summary: update summary %s failed: %v", id, err)
		return domain.Failed(err.Error()), fmt.Errorf("update summary: %w", err)
	}

	s.forget(userID)
	s.notify(path)
	return domain.Succeeded, nil
}

// DeleteSummary removes one summary owned by the user.
func (s *Service) DeleteSummary(ctx context.Context, userID, summaryID, path string) (domain.ActionResult, error) {
	if strings.TrimSpace(summaryID) == "" {
		return domain.Failed(ErrMissingSummaryID.Error()), nil
	}
	return s.DeleteSummaries(ctx, userID, []string{summaryID}, path)
}

// DeleteSummaries removes several summaries owned by the user.
func (s *Service) DeleteSummaries(ctx context.Context, userID string, summaryIDs []string, path string) (domain.ActionResult, error) {
	if userID == "" {
		return domain.Failed(ErrUnauthorized.Error()), nil
	}

	ids := make([]string, 0, len(summaryIDs))
	for _, id := range summaryIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return domain.Failed(ErrNoneSelected.Error()), nil
	}

	if _, err := s.repo.DeleteSummaries(ctx, userID, ids); err != nil {
		log.Printf("summary: delete %d summaries failed: %v", len(ids), err)
		return domain.Failed(err.Error()), fmt.Errorf("delete summaries: %w", err)
	}

	s.forget(userID)
	s.notify(path)
	return domain.Succeeded, nil
}

// forget drops cached signatures of a user so they are reseeded from the store.
func (s *Service) forget(userID string) {
	prefix := userID + ":"

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.signatures {
		if strings.HasPrefix(key, prefix) {
			delete(s.signatures, key)
		}
	}
}

func (s *Service) notify(path string) {
	if s.refresh == nil {
		return
	}
	if path == "" {
		path = "/"
	}
	s.refresh(path)
}

func cleanPoints(points []string) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
