package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf16"

	"ipnote/internal/models"
	"ipnote/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mock_notifier_test.go -package=service ipnote/internal/service Notifier

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	CancelMessage(ctx context.Context, id string, at time.Time) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, filter MessageFilter, after *models.Message, limit int) ([]models.Message, error)
	RecentMessagesByPrefix(ctx context.Context, prefix string, since time.Time, limit int) ([]models.Message, error)
}

type SessionRepository interface {
	ListLiveSessions(ctx context.Context, excludeIP string, limit int) ([]models.ConnectionSession, error)
	TouchSessions(ctx context.Context, ids []string, at time.Time) error
	CloseStaleSessions(ctx context.Context, cutoff, at time.Time) (int64, error)
}

// Notifier delivers lifecycle events to live connections. Errors are logged
// by the service and never reach the caller of the triggering operation.
type Notifier interface {
	EmitIncoming(ctx context.Context, msg models.Message) error
	EmitUpdate(ctx context.Context, msg models.Message) error
	EmitDeleted(ctx context.Context, msg models.DeletedMessage) error
}

// MessageFilter is the scoping predicate of a listing. Empty fields match
// everything.
type MessageFilter struct {
	ToIP   string
	FromIP string
	Status models.Status
}

func (f MessageFilter) Matches(msg *models.Message) bool {
	if f.ToIP != "" && msg.ToIP != f.ToIP {
		return false
	}
	if f.FromIP != "" && msg.FromIP != f.FromIP {
		return false
	}
	if f.Status != "" && msg.Status != f.Status {
		return false
	}
	return true
}

// SendInput lengths are counted in UTF-16 code units, the unit browsers use
// for maxlength.
type SendInput struct {
	ToIP    string  `json:"toIP" validate:"required,ip"`
	Subject *string `json:"subject" validate:"omitempty,maxutf16=120"`
	Body    string  `json:"body" validate:"required,maxutf16=2000"`
}

type Options struct {
	NearbyMode NearbyMode
	Clock      func() time.Time
	NewID      func() (string, error)
}

type MessageService struct {
	repo       MessageRepository
	sessions   SessionRepository
	notifier   Notifier
	nearbyMode NearbyMode
	clock      func() time.Time
	newID      func() (string, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("maxutf16", maxUTF16); err != nil {
		panic(err)
	}
	return v
}

func maxUTF16(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	n := 0
	for _, r := range fl.Field().String() {
		n += utf16.RuneLen(r)
	}
	return n <= limit
}

func NewMessageService(repo MessageRepository, sessions SessionRepository, notifier Notifier, opts Options) *MessageService {
	s := &MessageService{
		repo:       repo,
		sessions:   sessions,
		notifier:   notifier,
		nearbyMode: opts.NearbyMode,
		clock:      opts.Clock,
		newID:      opts.NewID,
	}
	if s.nearbyMode == "" {
		s.nearbyMode = NearbyTraffic
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
	}
	return s
}

// now is truncated to microseconds so values round-trip through Postgres
// unchanged and keyset comparisons stay exact.
func (s *MessageService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *MessageService) Send(ctx context.Context, fromIP string, in SendInput) (*models.Message, error) {
	if err := validate.Struct(in); err != nil {
		return nil, translateSendError(err)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	now := s.now()
	msg := &models.Message{
		ID:        id,
		FromIP:    fromIP,
		ToIP:      in.ToIP,
		Subject:   in.Subject,
		Body:      in.Body,
		Status:    models.StatusSent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	log.Debugf("Message %s sent %s -> %s", msg.ID, msg.FromIP, msg.ToIP)

	s.logFanout(models.EventMessageReceived, msg.ID, s.notifier.EmitIncoming(ctx, *msg))
	return msg, nil
}

func (s *MessageService) Get(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, notFoundError(msgNotFound)
	}
	return msg, err
}

func (s *MessageService) Cancel(ctx context.Context, id, requesterIP string) (*models.Message, error) {
	msg, err := s.ownedMessage(ctx, id, requesterIP)
	if err != nil {
		return nil, err
	}
	if msg.Status != models.StatusSent {
		return nil, &Error{Kind: KindConflict, Message: msgAlreadyProcessed}
	}

	updated, err := s.repo.CancelMessage(ctx, id, s.now())
	switch {
	case errors.Is(err, types.ErrNoRows):
		// lost a race with another cancel
		return nil, &Error{Kind: KindConflict, Message: msgAlreadyProcessed}
	case errors.Is(err, types.ErrNotFound):
		return nil, notFoundError(msgNotFound)
	case err != nil:
		return nil, err
	}
	log.Debugf("Message %s canceled by %s", id, requesterIP)

	s.logFanout(models.EventMessageUpdated, id, s.notifier.EmitUpdate(ctx, *updated))
	return updated, nil
}

func (s *MessageService) Delete(ctx context.Context, id, requesterIP string) error {
	msg, err := s.ownedMessage(ctx, id, requesterIP)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return notFoundError(msgNotFound)
		}
		return err
	}
	log.Debugf("Message %s deleted by %s", id, requesterIP)

	deleted := models.DeletedMessage{ID: msg.ID, FromIP: msg.FromIP, ToIP: msg.ToIP}
	s.logFanout(models.EventMessageDeleted, id, s.notifier.EmitDeleted(ctx, deleted))
	return nil
}

func (s *MessageService) ListInbox(ctx context.Context, toIP, cursor string, limit int) (*models.Page, error) {
	return s.paginate(ctx, MessageFilter{ToIP: toIP}, cursor, limit, msgCursorInbox)
}

func (s *MessageService) ListSent(ctx context.Context, fromIP, cursor string, limit int) (*models.Page, error) {
	return s.paginate(ctx, MessageFilter{FromIP: fromIP}, cursor, limit, msgCursorSent)
}

func (s *MessageService) ListByStatus(ctx context.Context, status models.Status, cursor string, limit int) (*models.Page, error) {
	if !status.Valid() {
		return nil, validationError(msgInvalidStatus)
	}
	return s.paginate(ctx, MessageFilter{Status: status}, cursor, limit, msgCursorStatus)
}

// SweepSessions marks liveIDs as seen now, then closes every open session not
// seen for maxAge. Sessions held by another process stay open as long as that
// process sweeps more often than maxAge.
func (s *MessageService) SweepSessions(ctx context.Context, liveIDs []string, maxAge time.Duration) (int64, error) {
	now := s.now()
	if err := s.sessions.TouchSessions(ctx, liveIDs, now); err != nil {
		return 0, err
	}
	return s.sessions.CloseStaleSessions(ctx, now.Add(-maxAge), now)
}

func (s *MessageService) ownedMessage(ctx context.Context, id, requesterIP string) (*models.Message, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.FromIP != requesterIP {
		return nil, forbiddenError(msgNotOwner)
	}
	return msg, nil
}

func (s *MessageService) logFanout(event, id string, err error) {
	if err == nil {
		return
	}
	log.WithFields(log.Fields{
		"event":      event,
		"message_id": id,
	}).WithError(err).Warn("Failed to fan out message event")
}

func translateSendError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationError(msgInvalidRequest)
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "ToIP":
		return validationError(msgInvalidToIP)
	case "Subject":
		return validationError(msgSubjectTooLong)
	case "Body":
		if fe.Tag() == "required" {
			return validationError(msgBodyRequired)
		}
		return validationError(msgBodyTooLong)
	}
	return validationError(msgInvalidRequest)
}
