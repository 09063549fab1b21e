package diagnostic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repairit-app/repairit-platform/internal/observability/metrics"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// ErrEmptyTurn rejects turns carrying neither text nor an image.
var ErrEmptyTurn = errors.New("diagnostic: turn requires text or an image")

// Reply sources recorded on turn metrics.
const (
	replySourceScripted  = "scripted"
	replySourceDelegated = "delegated"
	replySourceFallback  = "fallback"
)

// BookingRequest is handed to the booking collaborator when the user
// confirms a billing directive.
type BookingRequest struct {
	UserID      string           `json:"user_id"`
	ServiceName string           `json:"service_name"`
	ExpertName  string           `json:"expert_name"`
	Status      string           `json:"status"`
	ArrivalTime time.Time        `json:"arrival_time"`
	TotalAmount string           `json:"total_amount"`
	Breakdown   BillingDirective `json:"breakdown"`
}

// BookingCreator creates a booking record. Failures here do not roll back
// conversation state; the engine treats the call as fire-and-forget.
type BookingCreator interface {
	CreateFromDiagnostic(ctx context.Context, req BookingRequest) error
}

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	UserID      string
	ExpertName  string
	ServiceName string
	Text        string
	ImageBase64 string
}

// TurnResult carries the reply message and the stage after the turn.
type TurnResult struct {
	Reply Message `json:"reply"`
	Stage Stage   `json:"stage"`
}

// ConfirmRequest confirms a billing directive from a quoted message.
type ConfirmRequest struct {
	UserID      string
	ExpertName  string
	ServiceName string
	MessageText string
}

// Engine is the conversation state machine. It maps an incoming user turn
// plus the current session state to a reply and a new stage, persisting
// both sides of the exchange. Turns for one (user, expert) pair are
// serialized on a per-pair lock; cross-pair turns run concurrently.
type Engine struct {
	store    *MessageStore
	index    *ExpertIndex
	invoker  *Invoker
	bookings BookingCreator
	logger   *logging.Logger
	metrics  *metrics.EngineMetrics

	mu       sync.Mutex
	sessions map[string]*lockedSession
}

type lockedSession struct {
	mu sync.Mutex
	*session
}

func NewEngine(store *MessageStore, index *ExpertIndex, invoker *Invoker, logger *logging.Logger) *Engine {
	if store == nil {
		panic("diagnostic: message store cannot be nil")
	}
	if index == nil {
		panic("diagnostic: expert index cannot be nil")
	}
	if invoker == nil {
		panic("diagnostic: invoker cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:    store,
		index:    index,
		invoker:  invoker,
		logger:   logger,
		sessions: make(map[string]*lockedSession),
	}
}

func (e *Engine) WithBookings(b BookingCreator) *Engine {
	e.bookings = b
	return e
}

func (e *Engine) WithMetrics(m *metrics.EngineMetrics) *Engine {
	e.metrics = m
	return e
}

// OpenSession returns the persisted stream for (user, expert). A brand-new
// session gets the deterministic 5-bullet welcome instead; the welcome is
// synthesized locally, never persisted, and never regenerated once the
// stream has history.
func (e *Engine) OpenSession(ctx context.Context, userID, expertName, serviceName string) ([]Message, error) {
	if userID == "" || expertName == "" {
		return nil, errors.New("diagnostic: userID and expertName required")
	}
	if err := e.index.Ensure(ctx, userID, expertName); err != nil {
		return nil, err
	}
	msgs, err := e.store.List(ctx, userID, expertName)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		return msgs, nil
	}
	return []Message{{
		ID:         uuid.NewString(),
		Role:       RoleExpert,
		Text:       WelcomeText(serviceName),
		ExpertName: expertName,
		CreatedAt:  time.Now().UTC(),
	}}, nil
}

// Experts lists the experts the user has contacted.
func (e *Engine) Experts(ctx context.Context, userID string) ([]string, error) {
	return e.index.List(ctx, userID)
}

// ProcessTurn runs one turn of the intake dialog. Invoker failures never
// escape: the fallback text becomes the reply and the stage holds. The only
// error paths are validation, persistence, and caller cancellation.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.UserID == "" || req.ExpertName == "" {
		return nil, errors.New("diagnostic: userID and expertName required")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.ImageBase64 == "" {
		return nil, ErrEmptyTurn
	}

	slot := e.sessionFor(req.UserID, req.ExpertName)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	// History snapshot of prior turns, taken before appending the new one.
	history, err := e.store.List(ctx, req.UserID, req.ExpertName)
	if err != nil {
		return nil, err
	}

	userMsg := Message{
		Role:       RoleUser,
		Text:       req.Text,
		Image:      req.ImageBase64,
		ExpertName: req.ExpertName,
	}
	if err := e.store.Append(ctx, req.UserID, userMsg); err != nil {
		return nil, err
	}
	if err := e.index.Ensure(ctx, req.UserID, req.ExpertName); err != nil {
		return nil, err
	}

	isGreeting := strings.EqualFold(text, "hi")
	st := slot.session

	var reply Message
	var source string
	switch {
	case st.Stage == StageGreeting && isGreeting:
		st.advanceTo(StageDevice)
		reply = scriptedMessage(req.ExpertName, devicePrompt)
		source = replySourceScripted

	case st.Stage == StageDevice && !isGreeting:
		st.DeviceName = text
		st.advanceTo(StageDamage)
		reply = scriptedMessage(req.ExpertName, damagePrompt)
		source = replySourceScripted

	case st.Stage == StageDamage:
		st.DamageDescription = text
		st.QuestionsAsked = 0
		st.advanceTo(StageQuestions)
		r, err := e.delegate(ctx, history, req, text, damageDefaultPrompt)
		if err != nil {
			return nil, err
		}
		reply = expertMessage(req.ExpertName, r)
		source = delegatedSource(r)

	case st.Stage == StageQuestions:
		r, err := e.delegate(ctx, history, req, text, questionsDefaultPrompt)
		if err != nil {
			return nil, err
		}
		st.QuestionsAsked++
		if !r.Fallback && ContainsBillingDirective(r.Text) {
			st.advanceTo(StageCompleted)
		}
		reply = expertMessage(req.ExpertName, r)
		source = delegatedSource(r)

	default:
		// Completed sessions keep answering, and a non-greeting opener in
		// the greeting stage goes straight to the expert without advancing.
		r, err := e.delegate(ctx, history, req, text, questionsDefaultPrompt)
		if err != nil {
			return nil, err
		}
		reply = expertMessage(req.ExpertName, r)
		source = delegatedSource(r)
	}

	if err := e.store.Append(ctx, req.UserID, reply); err != nil {
		return nil, err
	}

	e.metrics.ObserveTurn(string(st.Stage), source)
	return &TurnResult{Reply: reply, Stage: st.Stage}, nil
}

// ConfirmBooking turns a quoted billing message into a booking record. The
// booking collaborator is fire-and-forget: its failure is logged, not
// returned.
func (e *Engine) ConfirmBooking(ctx context.Context, req ConfirmRequest) (*BookingRequest, error) {
	if req.UserID == "" || req.ExpertName == "" {
		return nil, errors.New("diagnostic: userID and expertName required")
	}

	slot := e.sessionFor(req.UserID, req.ExpertName)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	// A quoted message without the sentinel still yields a booking; the
	// breakdown then carries only the (possibly default) total.
	breakdown, ok := ParseBillingDirective(req.MessageText)
	if !ok {
		breakdown = BillingDirective{Total: ExtractTotal(req.MessageText)}
	}

	ack := scriptedMessage(req.ExpertName, fetchingPartnerText)
	if err := e.store.Append(ctx, req.UserID, ack); err != nil {
		return nil, err
	}

	serviceName := req.ServiceName
	if serviceName == "" {
		serviceName = "Hardware Fix"
	}
	booking := BookingRequest{
		UserID:      req.UserID,
		ServiceName: serviceName,
		ExpertName:  req.ExpertName,
		Status:      "In Progress",
		ArrivalTime: time.Now().Add(20 * time.Minute).UTC(),
		TotalAmount: "₹" + breakdown.Total,
		Breakdown:   breakdown,
	}

	if e.bookings != nil {
		if err := e.bookings.CreateFromDiagnostic(ctx, booking); err != nil {
			e.logger.Error("booking creation failed",
				"error", err,
				"user_id", req.UserID,
				"expert", req.ExpertName,
			)
		}
	}

	slot.session.advanceTo(StageCompleted)
	return &booking, nil
}

// Stage reports the current stage for a (user, expert) session. New
// sessions report greeting.
func (e *Engine) Stage(userID, expertName string) Stage {
	slot := e.sessionFor(userID, expertName)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.session.Stage
}

func (e *Engine) delegate(ctx context.Context, history []Message, req TurnRequest, text, emptyPrompt string) (Reply, error) {
	prompt := text
	if prompt == "" {
		prompt = emptyPrompt
	}
	turns := make([]ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, ChatTurn{Role: m.Role, Text: m.Text})
	}
	return e.invoker.Invoke(ctx, ExpertRequest{
		System:      SystemInstruction,
		History:     turns,
		Prompt:      prompt,
		ImageBase64: req.ImageBase64,
	})
}

func (e *Engine) sessionFor(userID, expertName string) *lockedSession {
	key := userID + ":" + expertName
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.sessions[key]
	if !ok {
		slot = &lockedSession{session: newSession()}
		e.sessions[key] = slot
	}
	return slot
}

// Reply messages are stamped here rather than in the store so the result
// handed back to the caller matches what was persisted.
func scriptedMessage(expertName, text string) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleExpert,
		Text:       text,
		ExpertName: expertName,
		CreatedAt:  time.Now().UTC(),
	}
}

func expertMessage(expertName string, r Reply) Message {
	msg := scriptedMessage(expertName, r.Text)
	msg.Sources = r.Sources
	return msg
}

func delegatedSource(r Reply) string {
	if r.Fallback {
		return replySourceFallback
	}
	return replySourceDelegated
}
