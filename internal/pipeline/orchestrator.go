package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/voxforge/voxcraft/internal/llm"
	"github.com/voxforge/voxcraft/internal/memory"
	"github.com/voxforge/voxcraft/internal/session"
)

// defaultUserID keys sessions for requests that carry no username, so
// anonymous turns still get conversational continuity.
const defaultUserID = "super-user"

// TurnResult is the user-visible outcome of one conversational turn. Every
// turn produces a Message — success confirmation or descriptive error — so
// no turn is ever left unanswered.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Err       error  `json:"-"`

	// ModelPath and PreviewPath are set on success when artifacts were
	// persisted.
	ModelPath   string `json:"model_path,omitempty"`
	PreviewPath string `json:"preview_path,omitempty"`

	// ContextTier reports which memory path supplied the turn's context.
	ContextTier memory.Tier `json:"context_tier,omitempty"`
}

// Orchestrator runs the full turn sequence: session resolution, hybrid
// context retrieval, prompt enhancement, image generation, and 3D
// conversion.
type Orchestrator struct {
	sessions *session.Manager
	enhancer llm.Enhancer
	images   ImageGenerator
	models   ModelGenerator
	sink     ArtifactSink
}

// NewOrchestrator wires the turn pipeline. sink may be nil to skip artifact
// persistence.
func NewOrchestrator(sessions *session.Manager, enhancer llm.Enhancer, images ImageGenerator, models ModelGenerator, sink ArtifactSink) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		enhancer: enhancer,
		images:   images,
		models:   models,
		sink:     sink,
	}
}

// RunTurn handles one (username, prompt) request.
//
// Session policy: the user's active session comes from the index lookup; a
// timed-out session is ended (which stores its summary) and the turn
// answers with a timeout notice, so the next request starts fresh. Absent
// sessions are created on the spot.
//
// Error policy: memory-tier failures degrade silently inside FetchContext;
// enhancement and generation failures are fatal to the turn and reported in
// the returned message; only failures classified ErrUpstream also end the
// session.
func (o *Orchestrator) RunTurn(ctx context.Context, username, prompt string) TurnResult {
	userID := username
	if userID == "" {
		userID = defaultUserID
	}

	s := o.sessions.GetUserSession(userID)
	if s != nil && o.sessions.CheckSessionTimeout(s.SessionID) {
		log.Printf("pipeline: session %s timed out", s.SessionID)
		o.sessions.EndSession(ctx, s.SessionID)
		return TurnResult{
			SessionID: s.SessionID,
			Message:   "Session has timed out. Please start a new session.",
		}
	}
	if s == nil {
		s = o.sessions.CreateSession(userID)
	}
	s.UpdateActivity()

	contextMsgs, prov := s.Memory.FetchContext(ctx, prompt)
	if prov.Tier == memory.DegradedShortTerm || prov.Tier == memory.DegradedLongTerm {
		log.Printf("pipeline: session %s running with degraded memory (%s): %s",
			s.SessionID, prov.Tier, prov.DegradedReason)
	}

	enhanced, err := o.enhancer.Enhance(ctx, prompt, contextMsgs)
	if err != nil {
		return o.failTurn(ctx, s, prov, fmt.Errorf("prompt enhancement failed: %w", err))
	}

	// Record the raw exchange before the slow generation calls so a
	// subsequent turn on this session sees it even if generation fails.
	if err := s.Memory.AppendExchange(ctx, prompt, enhanced); err != nil {
		log.Printf("pipeline: failed to store exchange for session %s: %v", s.SessionID, err)
	}

	image, err := o.images.GenerateImage(ctx, enhanced)
	if err != nil {
		return o.failTurn(ctx, s, prov, err)
	}
	if o.sink != nil {
		if path, err := o.sink.SaveImage(s.SessionID, image); err != nil {
			log.Printf("pipeline: failed to save image for session %s: %v", s.SessionID, err)
		} else {
			log.Printf("pipeline: session %s generated image saved to %s", s.SessionID, path)
		}
	}

	model, err := o.models.GenerateModel(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return o.failTurn(ctx, s, prov, err)
	}

	result := TurnResult{SessionID: s.SessionID, ContextTier: prov.Tier}
	if o.sink != nil {
		if path, err := o.sink.SaveModel(s.SessionID, model.Object); err != nil {
			log.Printf("pipeline: failed to save 3D model for session %s: %v", s.SessionID, err)
		} else {
			result.ModelPath = path
			log.Printf("pipeline: session %s generated 3D model saved to %s", s.SessionID, path)
		}

		if len(model.PreviewVideo) == 0 {
			log.Printf("pipeline: session %s - no preview video generated", s.SessionID)
		} else if path, err := o.sink.SavePreview(s.SessionID, model.PreviewVideo); err != nil {
			log.Printf("pipeline: failed to save preview for session %s: %v", s.SessionID, err)
		} else {
			result.PreviewPath = path
		}
	}

	result.Message = fmt.Sprintf("Successfully generated 3D model from prompt (Session: %s)", s.SessionID)
	if err := s.Memory.AppendAssistant(ctx, result.Message); err != nil {
		log.Printf("pipeline: failed to store success message for session %s: %v", s.SessionID, err)
	}
	return result
}

// EndSession explicitly closes a session (user-initiated teardown).
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) {
	o.sessions.EndSession(ctx, sessionID)
}

// failTurn reports err as the turn's message, records it in short-term
// memory, and ends the session only for upstream API failures.
func (o *Orchestrator) failTurn(ctx context.Context, s *session.Session, prov memory.Provenance, err error) TurnResult {
	msg := fmt.Sprintf("Error: %v", err)
	log.Printf("pipeline: session %s - error during processing: %v", s.SessionID, err)

	if appendErr := s.Memory.AppendAssistant(ctx, msg); appendErr != nil {
		log.Printf("pipeline: failed to store error message for session %s: %v", s.SessionID, appendErr)
	}

	if errors.Is(err, ErrUpstream) {
		o.sessions.EndSession(ctx, s.SessionID)
	}

	return TurnResult{
		SessionID:   s.SessionID,
		Message:     msg,
		Err:         err,
		ContextTier: prov.Tier,
	}
}
