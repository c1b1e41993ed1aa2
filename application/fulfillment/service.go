// Package fulfillment implements the conversational webhook: every named
// handler of the garden's scene graph, run against typed player state.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"gnome-garden/application/dispatch"
	"gnome-garden/application/ports"
	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
	appErrors "gnome-garden/pkg/errors"
)

// Handler names registered by the service.
const (
	HandlerInitGame         = "handle_init_game"
	HandlerWelcome          = "handle_welcome"
	HandlerStory            = "handle_story"
	HandlerOnBoarding       = "handle_on_boarding"
	HandlerGamePlay         = "handle_on_game_play"
	HandlerUserAnswer       = "handle_user_answer"
	HandlerSkipQuestion     = "handle_skip_question"
	HandlerBothQuestion     = "handle_both_question"
	HandlerRepeatQuestion   = "handle_repeat_question"
	HandlerWeedGarden       = "handle_weed_the_garden"
	HandlerSkipWeeding      = "handle_skip_weeding"
	HandlerFirstWeed        = "handle_first_weed"
	HandlerGameOver         = "handle_on_game_over"
	HandlerOpenRemove       = "handle_open_remove"
	HandlerRemoveByID       = "handle_remove_flower_by_id"
	HandlerCloseRemove      = "handle_close_remove"
	HandlerOpenSettings     = "handle_open_settings"
	HandlerUpdateSound      = "handle_update_sound_state"
	HandlerOpenInstructions = "handle_open_instructions"
	HandlerConfirmNewGarden = "handle_confirm_new_garden"
	HandlerGameReset        = "handle_game_reset"
	HandlerKeepGarden       = "handle_keep_garden"
	HandlerNoMatch1         = "handle_nomatch_1"
	HandlerNoMatch2         = "handle_nomatch_2"
	HandlerNoMatch3         = "handle_nomatch_3"
	HandlerGameCloses       = "handle_game_closes"
)

// Metrics receives game-level measurements.
type Metrics interface {
	dispatch.Recorder
	RecordAnswer(outcome string)
	RecordPlanted(category string)
	RecordRemoved(n int)
	RecordWeeded(n int)
	RecordGardenFull()
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordHandler(string, time.Duration, error) {}
func (NopMetrics) RecordAnswer(string)                        {}
func (NopMetrics) RecordPlanted(string)                       {}
func (NopMetrics) RecordRemoved(int)                          {}
func (NopMetrics) RecordWeeded(int)                           {}
func (NopMetrics) RecordGardenFull()                          {}

// Options tunes game behaviour.
type Options struct {
	LifeCycle  garden.LifeCycle
	Matcher    dialogue.Matcher
	HostingURL string
	SessionTTL time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		LifeCycle:  garden.DefaultLifeCycle(),
		SessionTTL: 24 * time.Hour,
	}
}

// Service runs conversation turns.
type Service struct {
	content   ports.ContentSource
	publisher ports.EventPublisher
	clock     ports.Clock
	rng       ports.Random
	metrics   Metrics
	logger    *zap.Logger
	opts      Options

	handlers *dispatch.Dispatcher[*Conversation]
}

// NewService wires a Service and registers every handler.
func NewService(
	content ports.ContentSource,
	publisher ports.EventPublisher,
	clock ports.Clock,
	rng ports.Random,
	metrics Metrics,
	logger *zap.Logger,
	opts Options,
) (*Service, error) {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	s := &Service{
		content:   content,
		publisher: publisher,
		clock:     clock,
		rng:       rng,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
		handlers: dispatch.New(
			dispatch.LoggingMiddleware[*Conversation](logger),
			dispatch.MetricsMiddleware[*Conversation](metrics),
		),
	}

	routes := map[string]func(context.Context, *Conversation) error{
		HandlerInitGame:         s.initGame,
		HandlerWelcome:          s.welcome,
		HandlerStory:            s.story,
		HandlerOnBoarding:       s.onBoarding,
		HandlerGamePlay:         s.gamePlay,
		HandlerUserAnswer:       s.userAnswer,
		HandlerSkipQuestion:     s.skipQuestion,
		HandlerBothQuestion:     s.bothQuestion,
		HandlerRepeatQuestion:   s.repeatQuestion,
		HandlerWeedGarden:       s.weedGarden,
		HandlerSkipWeeding:      s.skipWeeding,
		HandlerFirstWeed:        s.firstWeed,
		HandlerGameOver:         s.gameOver,
		HandlerOpenRemove:       s.openRemove,
		HandlerRemoveByID:       s.removeByID,
		HandlerCloseRemove:      s.closeRemove,
		HandlerOpenSettings:     s.openSettings,
		HandlerUpdateSound:      s.updateSound,
		HandlerOpenInstructions: s.openInstructions,
		HandlerConfirmNewGarden: s.confirmNewGarden,
		HandlerGameReset:        s.gameReset,
		HandlerKeepGarden:       s.keepGarden,
		HandlerNoMatch1:         s.noMatch(1),
		HandlerNoMatch2:         s.noMatch(2),
		HandlerNoMatch3:         s.noMatch(3),
		HandlerGameCloses:       s.gameCloses,
	}
	for name, fn := range routes {
		if err := s.handlers.Register(name, dispatch.HandlerFunc[*Conversation](fn)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handlers lists the registered handler names.
func (s *Service) Handlers() []string {
	return s.handlers.Names()
}

// Handle runs one turn: load state, dispatch the named handler, persist
// state and publish the resulting domain events.
func (s *Service) Handle(ctx context.Context, store ports.StateStore, turn Turn) (*Reply, error) {
	ctx, span := otel.Tracer("gnome-garden/fulfillment").Start(ctx, "fulfillment.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("garden.handler", turn.Handler),
		attribute.String("garden.scene", turn.Scene),
	)

	c, err := s.begin(ctx, store, turn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.handlers.Dispatch(ctx, turn.Handler, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, dispatch.ErrHandlerNotFound) {
			return nil, appErrors.NewValidationError(err.Error()).WithCode("UNKNOWN_HANDLER")
		}
		return nil, appErrors.Wrap(err, "handler "+turn.Handler)
	}

	s.finish(c)

	if err := s.commit(ctx, store, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(c.events) > 0 && s.publisher != nil {
		if err := s.publisher.PublishBatch(ctx, c.events); err != nil {
			s.logger.Warn("Failed to publish garden events",
				zap.String("user_id", turn.UserID),
				zap.Int("count", len(c.events)),
				zap.Error(err),
			)
		}
	}
	return c.Reply, nil
}

// begin loads player state and prepares the turn's working state.
func (s *Service) begin(ctx context.Context, store ports.StateStore, turn Turn) (*Conversation, error) {
	now := s.clock.Now()
	profile, err := store.LoadProfile(ctx, turn.UserID)
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrNotFound):
		profile = player.NewProfile(turn.UserID)
	case errors.Is(err, player.ErrInvalidState):
		s.logger.Warn("Discarding invalid profile", zap.String("user_id", turn.UserID), zap.Error(err))
		fresh := player.NewProfile(turn.UserID)
		if profile != nil {
			fresh.Version = profile.Version
		}
		profile = fresh
	default:
		return nil, appErrors.Wrap(err, "load profile")
	}

	session, err := store.LoadSession(ctx, turn.SessionID)
	switch {
	case err == nil:
		if session.UserID != turn.UserID || (!session.ExpiresAt.IsZero() && session.ExpiresAt.Before(now)) {
			session = player.NewSession(turn.SessionID, turn.UserID)
		}
	case errors.Is(err, ports.ErrNotFound):
		session = player.NewSession(turn.SessionID, turn.UserID)
	case errors.Is(err, player.ErrInvalidState):
		s.logger.Warn("Discarding invalid session", zap.String("session_id", turn.SessionID), zap.Error(err))
		session = player.NewSession(turn.SessionID, turn.UserID)
	default:
		return nil, appErrors.Wrap(err, "load session")
	}

	c := &Conversation{
		Turn:    turn,
		Profile: profile,
		Session: session,
		Content: s.content.Current(),
		Now:     now,
		Reply:   &Reply{},
	}
	s.initGarden(c)
	return c, nil
}

// initGarden chooses the user's template on first use and recomputes the
// open slots from the planted items against the live catalog, which may
// have been reloaded since the session started.
func (s *Service) initGarden(c *Conversation) {
	templates := c.Content.Templates
	if c.Profile.TemplateIndex < 1 || c.Profile.TemplateIndex > templates.Len() {
		c.Profile.TemplateIndex = templates.Pick(s.rng)
	}
	c.Template = templates.Get(c.Profile.TemplateIndex)
	if c.Profile.Garden == nil {
		c.Profile.Garden = garden.GardenProgress{}
	}
	c.Session.Template = c.Profile.TemplateIndex
	c.Session.Available = garden.ComputeAvailable(c.Template, c.Profile.Garden)
}

// finish fills the render command with the garden snapshot.
func (s *Service) finish(c *Conversation) {
	c.Session.FirstWeed = 0
	if at, ok := s.opts.LifeCycle.FirstWeedAt(c.Template, c.Profile.Garden); ok {
		c.Session.FirstWeed = at
	}

	cmd := c.Reply.Canvas
	if cmd == nil {
		return
	}
	cmd.URL = s.opts.HostingURL
	cmd.Params = viewOf(c.Profile)
	if cmd.State == CanvasDefault {
		return
	}
	view := &GardenView{
		GnomeSize: 1,
		Data:      garden.Snapshot(c.Template, c.Profile.Garden, s.opts.LifeCycle, c.Now),
	}
	if c.Turn.Scene == SceneOnBoarding && !c.Profile.Onboarding2 {
		view.GnomeSize = 2
	}
	if next := c.Session.Next; next != nil {
		spot := *next
		view.GnomeSlot = &spot
		if slot, ok := c.Template.Slot(spot); ok {
			pos := slot.GnomePos
			view.GnomePos = &pos
		}
	}
	cmd.Garden = view
}

// commit persists the turn's state.
func (s *Service) commit(ctx context.Context, store ports.StateStore, c *Conversation) error {
	c.Profile.UpdatedAt = c.Now
	if err := store.SaveProfile(ctx, c.Profile); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return appErrors.NewConflictError("garden changed during this turn").WithCause(err)
		}
		return appErrors.Wrap(err, "save profile")
	}
	c.Session.ExpiresAt = c.Now.Add(s.opts.SessionTTL)
	if err := store.SaveSession(ctx, c.Session); err != nil {
		return appErrors.Wrap(err, "save session")
	}
	return nil
}

// Snapshot renders a user's garden without running a turn.
func (s *Service) Snapshot(ctx context.Context, store ports.StateStore, userID string) (*GardenView, error) {
	profile, err := store.LoadProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, appErrors.NewNotFoundError(fmt.Sprintf("garden for user %s", userID))
		}
		return nil, appErrors.Wrap(err, "load profile")
	}
	content := s.content.Current()
	tpl := content.Templates.Get(profile.TemplateIndex)
	return &GardenView{
		GnomeSize: 1,
		Data:      garden.Snapshot(tpl, profile.Garden, s.opts.LifeCycle, s.clock.Now()),
	}, nil
}
