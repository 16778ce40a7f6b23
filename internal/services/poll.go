package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/validation"
)

// PollInput is the body of create and update.
type PollInput struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Questions      []models.Question `json:"questions"`
	ConsentEnabled bool              `json:"consentEnabled"`
	ConsentText    string            `json:"consentText"`
	ExpireAt       time.Time         `json:"expireAt"`
}

// SubmissionInput is an anonymous answer set.
type SubmissionInput struct {
	Answers          []models.Answer `json:"answers"`
	ParticipantName  string          `json:"participantName"`
	ParticipantEmail string          `json:"participantEmail"`
	ParticipantPhone string          `json:"participantPhone"`
	ConsentAgreed    bool            `json:"consentAgreed"`
}

// QuestionTally aggregates the answers to one question.
type QuestionTally struct {
	QuestionID string         `json:"questionId"`
	Text       string         `json:"text"`
	Type       string         `json:"type"`
	Counts     map[string]int `json:"counts,omitempty"`
	Responses  int            `json:"responses"`
}

// PollSummary is a poll in the owner's list.
type PollSummary struct {
	models.Poll
	SubmissionCount int64 `json:"submissionCount"`
}

// PollResults is the owner's view of a poll's answers.
type PollResults struct {
	Poll        *models.Poll        `json:"poll"`
	Submissions []models.Submission `json:"submissions"`
	Tallies     []QuestionTally     `json:"tallies"`
	Total       int                 `json:"total"`
}

// PublicPoll is the subset of a poll shown to participants.
type PublicPoll struct {
	ID               uint              `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Questions        []models.Question `json:"questions"`
	ConsentEnabled   bool              `json:"consentEnabled"`
	ConsentText      string            `json:"consentText,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	ExpireAt         time.Time         `json:"expireAt"`
	TotalSubmissions *int              `json:"totalSubmissions,omitempty"`
	Tallies          []QuestionTally   `json:"tallies,omitempty"`
}

type PollService struct {
	DB   *gorm.DB
	Gate Authorizer
	Now  Clock
}

func NewPollService(db *gorm.DB, g Authorizer) *PollService {
	return &PollService{DB: db, Gate: g, Now: systemClock}
}

func (s *PollService) Create(ctx context.Context, caller uint, in PollInput) (*models.Poll, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionCreate, policy.ResourcePoll, nil); err != nil {
		return nil, err
	}
	poll := models.Poll{UserID: caller}
	if err := s.apply(&poll, in); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&poll).Error; err != nil {
		return nil, fmt.Errorf("polls: create: %w", err)
	}
	return &poll, nil
}

// List returns the caller's live polls, newest first.
func (s *PollService) List(ctx context.Context, caller uint) ([]PollSummary, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionList, policy.ResourcePoll, nil); err != nil {
		return nil, err
	}
	now := s.Now()
	var polls []models.Poll
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND expire_at > ?", caller, now).
		Order("created_at DESC, id DESC").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("polls: list: %w", err)
	}
	counts, err := s.submissionCounts(ctx, pollIDs(polls), now)
	if err != nil {
		return nil, err
	}
	out := make([]PollSummary, 0, len(polls))
	for _, p := range polls {
		out = append(out, PollSummary{Poll: p, SubmissionCount: counts[p.ID]})
	}
	return out, nil
}

func (s *PollService) Get(ctx context.Context, caller, id uint) (*models.Poll, error) {
	poll, err := s.livePoll(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionView, policy.ResourcePoll, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// Update replaces the poll's content. A new expireAt is copied onto every
// submission in the same transaction.
func (s *PollService) Update(ctx context.Context, caller, id uint, in PollInput) (*models.Poll, error) {
	poll, err := s.livePoll(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionUpdate, policy.ResourcePoll, poll); err != nil {
		return nil, err
	}
	if err := s.apply(poll, in); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(poll).Error; err != nil {
			return err
		}
		return tx.Model(&models.Submission{}).
			Where("poll_id = ?", poll.ID).
			Update("expire_at", poll.ExpireAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("polls: update: %w", err)
	}
	return poll, nil
}

// Delete removes the poll and its submissions together.
func (s *PollService) Delete(ctx context.Context, caller, id uint) error {
	poll, err := s.livePoll(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionDelete, policy.ResourcePoll, poll); err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// waits for in-flight submits so their rows are deleted too
		if err := forUpdate(tx).Select("id").First(&models.Poll{}, poll.ID).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		return tx.Delete(poll).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("polls: delete: %w", err)
	}
	return nil
}

func (s *PollService) Results(ctx context.Context, caller, id uint) (*PollResults, error) {
	poll, err := s.livePoll(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionView, policy.ResourcePoll, poll); err != nil {
		return nil, err
	}
	var subs []models.Submission
	err = s.DB.WithContext(ctx).
		Where("poll_id = ? AND expire_at > ?", poll.ID, s.Now()).
		Order("submitted_at DESC, id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("polls: results: %w", err)
	}
	return &PollResults{Poll: poll, Submissions: subs, Tallies: tally(poll, subs), Total: len(subs)}, nil
}

// PublicActive lists every live poll with aggregated tallies. Participant
// contact data never leaves this method.
func (s *PollService) PublicActive(ctx context.Context) ([]PublicPoll, error) {
	now := s.Now()
	var polls []models.Poll
	if err := s.DB.WithContext(ctx).Where("expire_at > ?", now).Order("expire_at ASC, id ASC").Find(&polls).Error; err != nil {
		return nil, fmt.Errorf("polls: public list: %w", err)
	}
	var subs []models.Submission
	if len(polls) > 0 {
		err := s.DB.WithContext(ctx).
			Select("poll_id", "answers").
			Where("poll_id IN ? AND expire_at > ?", pollIDs(polls), now).
			Find(&subs).Error
		if err != nil {
			return nil, fmt.Errorf("polls: public tallies: %w", err)
		}
	}
	byPoll := make(map[uint][]models.Submission, len(polls))
	for _, sub := range subs {
		byPoll[sub.PollID] = append(byPoll[sub.PollID], sub)
	}
	out := make([]PublicPoll, 0, len(polls))
	for i := range polls {
		pp := publicPoll(&polls[i])
		own := byPoll[polls[i].ID]
		total := len(own)
		pp.TotalSubmissions = &total
		pp.Tallies = tally(&polls[i], own)
		out = append(out, pp)
	}
	return out, nil
}

// PublicGet returns the participant view of a live poll.
func (s *PollService) PublicGet(ctx context.Context, id uint) (*PublicPoll, error) {
	poll, err := s.livePoll(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	pp := publicPoll(poll)
	return &pp, nil
}

// Submit stores an anonymous answer set. The poll must exist and be live;
// the submission inherits the poll's expireAt.
func (s *PollService) Submit(ctx context.Context, pollID uint, in SubmissionInput) (*models.Submission, error) {
	var sub *models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the share lock keeps the poll from being deleted before the insert commits
		poll, err := s.livePoll(ctx, forShare(tx), pollID)
		if err != nil {
			return err
		}
		sub, err = buildSubmission(poll, in, s.Now())
		if err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		var ve *ValidationError
		if errors.Is(err, ErrNotFound) || errors.As(err, &ve) {
			return nil, err
		}
		return nil, fmt.Errorf("polls: submit: %w", err)
	}
	return sub, nil
}

func buildSubmission(poll *models.Poll, in SubmissionInput, now time.Time) (*models.Submission, error) {
	v := validation.Violations{}
	in.ParticipantName = strings.TrimSpace(in.ParticipantName)
	in.ParticipantEmail = normalizeEmail(in.ParticipantEmail)
	in.ParticipantPhone = strings.TrimSpace(in.ParticipantPhone)
	if in.ParticipantEmail != "" {
		validation.Email("participantEmail", in.ParticipantEmail, v)
	}
	if in.ParticipantPhone != "" {
		validation.Phone("participantPhone", in.ParticipantPhone, v)
	}

	answers := make([]models.Answer, 0, len(in.Answers))
	given := make(map[string]bool, len(in.Answers))
	for _, a := range in.Answers {
		a.QuestionID = strings.TrimSpace(a.QuestionID)
		a.Answer = strings.TrimSpace(a.Answer)
		q, ok := poll.Question(a.QuestionID)
		if !ok {
			v.Add("answers", "unknown_question")
			continue
		}
		if given[q.ID] {
			v.Add("answers."+q.ID, "duplicate")
			continue
		}
		if a.Answer == "" {
			continue
		}
		if q.Type != models.QuestionText && !q.HasOption(a.Answer) {
			v.Add("answers."+q.ID, "invalid_choice")
			continue
		}
		given[q.ID] = true
		answers = append(answers, a)
	}
	for _, q := range poll.Questions {
		if q.Required && !given[q.ID] {
			v.Add("answers."+q.ID, "required")
		}
	}
	if len(answers) == 0 {
		v.Add("answers", "required")
	}

	consent := false
	if poll.ConsentEnabled {
		if !in.ConsentAgreed {
			v.Add("consentAgreed", "consent_required")
		}
		consent = true
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	return &models.Submission{
		PollID:           poll.ID,
		Answers:          answers,
		ParticipantName:  in.ParticipantName,
		ParticipantEmail: in.ParticipantEmail,
		ParticipantPhone: in.ParticipantPhone,
		ConsentAgreed:    consent,
		SubmittedAt:      now,
		ExpireAt:         poll.ExpireAt,
	}, nil
}

// livePoll loads a poll that has not reached its expireAt. Expired rows
// the sweeper has not removed yet are reported as missing.
func (s *PollService) livePoll(ctx context.Context, db *gorm.DB, id uint) (*models.Poll, error) {
	var poll models.Poll
	err := db.WithContext(ctx).Where("id = ? AND expire_at > ?", id, s.Now()).First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("polls: load %d: %w", id, err)
	}
	return &poll, nil
}

// forShare and forUpdate lock the selected rows until the transaction ends.
// SQLite has no row locks and ignores the clause; its single writer
// serialises the transactions instead.
func forShare(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthShare})
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func (s *PollService) submissionCounts(ctx context.Context, ids []uint, now time.Time) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		PollID uint
		Total  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Submission{}).
		Select("poll_id, COUNT(*) AS total").
		Where("poll_id IN ? AND expire_at > ?", ids, now).
		Group("poll_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("polls: count submissions: %w", err)
	}
	for _, r := range rows {
		counts[r.PollID] = r.Total
	}
	return counts, nil
}

// apply validates in and copies it onto poll.
func (s *PollService) apply(poll *models.Poll, in PollInput) error {
	v := validation.Violations{}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ConsentText = strings.TrimSpace(in.ConsentText)

	validation.Required("title", in.Title, v)
	validation.MaxLength("title", in.Title, 255, v)
	validation.Future("expireAt", in.ExpireAt, s.Now(), v)
	if in.ConsentEnabled {
		validation.Required("consentText", in.ConsentText, v)
	}
	questions := normalizeQuestions(in.Questions, v)
	if err := invalid(v); err != nil {
		return err
	}

	poll.Title = in.Title
	poll.Description = in.Description
	poll.Questions = questions
	poll.ConsentEnabled = in.ConsentEnabled
	poll.ConsentText = in.ConsentText
	poll.ExpireAt = in.ExpireAt.UTC()
	return nil
}

func normalizeQuestions(in []models.Question, v validation.Violations) []models.Question {
	if len(in) == 0 {
		v.Add("questions", "required")
		return nil
	}
	out := make([]models.Question, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, q := range in {
		field := fmt.Sprintf("questions[%d]", i)
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = uuid.NewString()[:8]
		}
		if seen[q.ID] {
			v.Add(field+".id", "duplicate")
		}
		seen[q.ID] = true

		q.Text = strings.TrimSpace(q.Text)
		validation.Required(field+".text", q.Text, v)
		validation.OneOf(field+".type", q.Type, models.QuestionTypes, v)

		if q.Type == models.QuestionText {
			q.Options = nil
		} else {
			opts := make([]string, 0, len(q.Options))
			uniq := make(map[string]bool, len(q.Options))
			for _, o := range q.Options {
				o = strings.TrimSpace(o)
				if o == "" {
					continue
				}
				if uniq[o] {
					v.Add(field+".options", "duplicate_option")
				}
				uniq[o] = true
				opts = append(opts, o)
			}
			if len(opts) == 0 {
				v.Add(field+".options", "required")
			}
			q.Options = opts
		}
		out = append(out, q)
	}
	return out
}

func tally(poll *models.Poll, subs []models.Submission) []QuestionTally {
	out := make([]QuestionTally, len(poll.Questions))
	index := make(map[string]int, len(poll.Questions))
	for i, q := range poll.Questions {
		index[q.ID] = i
		out[i] = QuestionTally{QuestionID: q.ID, Text: q.Text, Type: q.Type}
		if q.Type != models.QuestionText {
			out[i].Counts = make(map[string]int, len(q.Options))
			for _, o := range q.Options {
				out[i].Counts[o] = 0
			}
		}
	}
	for _, sub := range subs {
		for _, a := range sub.Answers {
			i, ok := index[a.QuestionID]
			if !ok {
				continue
			}
			out[i].Responses++
			if out[i].Counts != nil {
				out[i].Counts[a.Answer]++
			}
		}
	}
	return out
}

func publicPoll(p *models.Poll) PublicPoll {
	return PublicPoll{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Questions:      p.Questions,
		ConsentEnabled: p.ConsentEnabled,
		ConsentText:    p.ConsentText,
		CreatedAt:      p.CreatedAt,
		ExpireAt:       p.ExpireAt,
	}
}

func pollIDs(polls []models.Poll) []uint {
	ids := make([]uint, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
	}
	return ids
}
