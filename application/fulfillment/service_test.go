package fulfillment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gnome-garden/application/ports"
	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/events"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
	"gnome-garden/infrastructure/persistence/params"
	appErrors "gnome-garden/pkg/errors"
)

const (
	testUser    = "user-1"
	testSession = "session-1"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// published returns the types of every event sent so far.
func (m *MockEventPublisher) published() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method != "PublishBatch" {
			continue
		}
		for _, e := range call.Arguments.Get(1).([]events.DomainEvent) {
			out = append(out, e.GetEventType())
		}
	}
	return out
}

type memoryStore struct {
	profiles map[string]*player.Profile
	sessions map[string]*player.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles: map[string]*player.Profile{},
		sessions: map[string]*player.Session{},
	}
}

func (m *memoryStore) LoadProfile(_ context.Context, userID string) (*player.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryStore) SaveProfile(_ context.Context, p *player.Profile) error {
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *memoryStore) LoadSession(_ context.Context, sessionID string) (*player.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) SaveSession(_ context.Context, s *player.Session) error {
	cp := *s
	m.sessions[s.SessionID] = &cp
	return nil
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type zeroRandom struct{}

func (zeroRandom) IntN(int) int { return 0 }

type staticContent struct{ content *ports.Content }

func (s staticContent) Current() *ports.Content { return s.content }

// swapContent stands in for a catalog that is reloaded between turns.
type swapContent struct{ content *ports.Content }

func (s *swapContent) Current() *ports.Content { return s.content }

func testSlot(c garden.Category, id int, removable bool) garden.Slot {
	return garden.Slot{
		ID:        id,
		Category:  c,
		Size:      garden.SizeSmall,
		Items:     []garden.Point{{X: 0, Y: 0}},
		GnomePos:  garden.Point{X: 0.5, Y: 0.5},
		Removable: removable,
	}
}

func answer(key string, c garden.Category, asset, label string) dialogue.Answer {
	return dialogue.Answer{
		Key:            key,
		ResponseSpeech: "Lovely " + key + ".",
		Plants:         dialogue.Asset{ID: asset, Category: c, Label: label},
	}
}

func testContent(t *testing.T) *ports.Content {
	t.Helper()
	templates, err := garden.NewTemplateCatalog([]garden.Template{{
		Name: "cottage",
		Slots: []garden.Slot{
			testSlot(garden.Flowers, 1, true),
			testSlot(garden.Flowers, 2, true),
			testSlot(garden.Background, 1, false),
			testSlot(garden.Seat, 1, false),
		},
	}})
	require.NoError(t, err)

	script := &dialogue.Script{
		Questions: map[garden.Category][]dialogue.Question{
			garden.Flowers: {
				{PromptSpeech: "Rose or tulip?", PromptText: "Rose or tulip?", Answers: []dialogue.Answer{
					answer("rose", garden.Flowers, "rose_01", "roses"),
					answer("tulip", garden.Flowers, "tulip_01", "tulips"),
				}},
				{PromptSpeech: "Daisy or lily?", PromptText: "Daisy or lily?", Answers: []dialogue.Answer{
					answer("daisy", garden.Flowers, "daisy_01", "daisies"),
					answer("lily", garden.Flowers, "lily_01", "lilies"),
				}},
			},
			garden.Background: {
				{PromptSpeech: "Hills or lake?", PromptText: "Hills or lake?", Answers: []dialogue.Answer{
					answer("hills", garden.Background, "hills_01", ""),
					answer("lake", garden.Background, "lake_01", ""),
				}},
			},
			garden.Seat: {
				{PromptSpeech: "Bench or swing?", PromptText: "Bench or swing?", Answers: []dialogue.Answer{
					answer("bench", garden.Seat, "bench_01", ""),
					answer("swing", garden.Seat, "swing_01", ""),
				}},
			},
		},
		Lines: map[string]dialogue.Line{
			"device_error":           {Speech: "This device cannot show the garden."},
			"welcome":                {Speech: "Welcome!", Suggestions: []string{"Play"}},
			"welcome_new":            {Suggestions: []string{"Story"}},
			"question_both":          {Speech: "Only one, please."},
			"question_repeat":        {Speech: "Here it is again."},
			"question_skip":          {Speech: "Skipping that one."},
			"default_response":       {Speech: "Nice choice."},
			"weeding_response":       {Speech: "All tidy.", Text: "Weeded"},
			"first_weeding_response": {Speech: "Your first weeding!"},
			"remove_response":        {Speech: "Removed <plant_plural_name>."},
			"audio_config_response":  {Speech: "Sound is <audio-state>."},
			"settings_nomatch_2":     {Speech: "Say sound on or off."},
			"new_garden":             {Speech: "A fresh garden."},
			"game_exit":              {Speech: "Goodbye."},
		},
		Variants: map[string][]string{
			"welcome_back":       {"Welcome back!"},
			"question_prefixes":  {"Next up. "},
			"question_nomatch_1": {"Pardon?"},
			"question_nomatch_2": {"Still did not get that."},
			"question_nomatch_3": {"Let us try later."},
		},
		Sounds: map[string]string{
			"gnome_moving":  "[move]",
			"growing_start": "[grow]",
			"growing_end":   "[done]",
			"removing":      "[rm]",
		},
	}
	require.NoError(t, script.Validate())
	return &ports.Content{Templates: templates, Script: script}
}

type harness struct {
	svc   *Service
	store *memoryStore
	pub   *MockEventPublisher
	clock *fixedClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pub := new(MockEventPublisher)
	pub.On("PublishBatch", mock.Anything, mock.Anything).Return(nil).Maybe()
	clock := &fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	svc, err := NewService(staticContent{testContent(t)}, pub, clock, zeroRandom{}, nil, zap.NewNop(), DefaultOptions())
	require.NoError(t, err)
	return &harness{svc: svc, store: newMemoryStore(), pub: pub, clock: clock}
}

// onboarded stores a player who has finished every onboarding step.
func (h *harness) onboarded(items garden.GardenProgress) {
	p := player.NewProfile(testUser)
	p.StoryVisited = true
	p.Onboarding1 = true
	p.Onboarding2 = true
	p.Onboarding3 = true
	p.TemplateIndex = 1
	p.Garden = items
	h.store.profiles[testUser] = p
}

func (h *harness) run(t *testing.T, handler, scene string, params map[string]Param) *Reply {
	t.Helper()
	reply, err := h.svc.Handle(context.Background(), h.store, Turn{
		Handler:      handler,
		Scene:        scene,
		UserID:       testUser,
		SessionID:    testSession,
		Params:       params,
		Capabilities: []string{CapabilityInteractiveCanvas},
	})
	require.NoError(t, err)
	return reply
}

func word(w string) map[string]Param {
	return map[string]Param{ParamWord: {Original: w, Values: []string{w}}}
}

func speech(r *Reply) string {
	return strings.Join(r.Speech, "")
}

func TestServiceRegistersEveryHandler(t *testing.T) {
	h := newHarness(t)
	names := h.svc.Handlers()
	assert.Len(t, names, 26)
	assert.Contains(t, names, HandlerRemoveByID)
	assert.Contains(t, names, HandlerNoMatch3)
}

func TestServiceUnknownHandler(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Handle(context.Background(), h.store, Turn{Handler: "handle_dance", UserID: testUser, SessionID: testSession})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestInitGameRejectsDeviceWithoutCanvas(t *testing.T) {
	h := newHarness(t)
	reply, err := h.svc.Handle(context.Background(), h.store, Turn{
		Handler:      HandlerInitGame,
		UserID:       testUser,
		SessionID:    testSession,
		Capabilities: []string{CapabilityInteractiveCanvas, CapabilityWebLink},
	})
	require.NoError(t, err)
	assert.True(t, reply.EndConversation)
	assert.Equal(t, SceneEndConversation, reply.NextScene)
	assert.Contains(t, speech(reply), "cannot show the garden")
	assert.Nil(t, reply.Canvas)
}

func TestInitGamePreloadsTemplate(t *testing.T) {
	h := newHarness(t)
	reply := h.run(t, HandlerInitGame, "", nil)

	require.NotNil(t, reply.Canvas)
	assert.Equal(t, CanvasPreload, reply.Canvas.State)
	require.NotNil(t, reply.Canvas.Template)
	assert.Equal(t, 1, reply.Canvas.Template.Index)
	assert.True(t, reply.Canvas.SuppressMic)

	profile := h.store.profiles[testUser]
	assert.Equal(t, 1, profile.TemplateIndex)
	assert.True(t, profile.SoundOn)
	assert.Len(t, h.store.sessions[testSession].Available, 4)
}

func TestGamePlayRedirectsNewPlayerToStory(t *testing.T) {
	h := newHarness(t)
	h.run(t, HandlerInitGame, "", nil)

	reply := h.run(t, HandlerGamePlay, SceneGame, nil)
	assert.Equal(t, SceneStory, reply.NextScene)
	assert.Empty(t, reply.Speech)
}

func TestReturningPlayerPlantsAFlower(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)

	h.run(t, HandlerInitGame, "", nil)
	reply := h.run(t, HandlerGamePlay, SceneGame, nil)
	assert.Equal(t, SceneOnBoarding, reply.NextScene)

	reply = h.run(t, HandlerOnBoarding, SceneOnBoarding, nil)
	assert.Contains(t, speech(reply), "Welcome back!")
	assert.Equal(t, CanvasUpdateGarden, reply.Canvas.State)

	reply = h.run(t, HandlerGamePlay, SceneGame, nil)
	assert.Equal(t, CanvasGame, reply.Canvas.State)
	assert.Equal(t, []string{"rose", "tulip"}, reply.Canvas.Suggestions)
	assert.Equal(t, []string{"rose", "tulip"}, reply.Expected)
	assert.Contains(t, speech(reply), "[move]Rose or tulip?")
	assert.NotContains(t, speech(reply), "Next up.")
	require.NotNil(t, reply.Canvas.Garden)
	assert.Equal(t, &garden.Spot{Category: garden.Flowers, ID: 1}, reply.Canvas.Garden.GnomeSlot)

	reply = h.run(t, HandlerUserAnswer, SceneGame, word("Rose"))
	assert.Equal(t, SceneGardenAnimation, reply.NextScene)
	assert.Contains(t, speech(reply), "[grow]Lovely rose.[done]")
	assert.True(t, reply.Canvas.SuppressMic)
	require.Len(t, reply.Canvas.Garden.Data, 1)
	assert.Equal(t, "rose_01", reply.Canvas.Garden.Data[0].AssetID)

	profile := h.store.profiles[testUser]
	assert.Equal(t, 1, profile.Progress.Flowers)
	require.Len(t, profile.Garden, 1)
	assert.Equal(t, h.svc.opts.LifeCycle.PlantTimestamp(h.clock.now), profile.Garden[0].Timestamp)

	session := h.store.sessions[testSession]
	assert.Nil(t, session.Pending)
	assert.False(t, session.Available.Contains(garden.Spot{Category: garden.Flowers, ID: 1}))
	assert.Equal(t, profile.Garden[0].Timestamp+h.svc.opts.LifeCycle.Lifetime().Milliseconds(), session.FirstWeed)

	assert.Equal(t, []string{events.TypeItemPlanted}, h.pub.published())
}

func TestWrongAnswersEndConversation(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)
	h.run(t, HandlerGamePlay, SceneGame, nil)

	reply := h.run(t, HandlerUserAnswer, SceneGame, word("cactus"))
	assert.Equal(t, SceneGame, reply.NextScene)
	assert.Contains(t, speech(reply), "Pardon?")
	assert.Equal(t, 1, h.store.sessions[testSession].Errors)

	reply = h.run(t, HandlerNoMatch1, SceneGame, nil)
	assert.Contains(t, speech(reply), "Still did not get that.")
	assert.Equal(t, 2, h.store.sessions[testSession].Errors)

	reply = h.run(t, HandlerUserAnswer, SceneGame, nil)
	assert.True(t, reply.EndConversation)
	assert.Contains(t, speech(reply), "Let us try later.")
	assert.Equal(t, []string{events.TypeGaveUp}, h.pub.published())
}

func TestBackgroundFollowsFirstFlowerAndErrorsStartFresh(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)

	h.run(t, HandlerGamePlay, SceneGame, nil)
	h.run(t, HandlerUserAnswer, SceneGame, word("cactus"))
	h.run(t, HandlerUserAnswer, SceneGame, word("fern"))
	assert.Equal(t, 2, h.store.sessions[testSession].Errors)

	reply := h.run(t, HandlerUserAnswer, SceneGame, word("rose"))
	assert.Equal(t, SceneGardenAnimation, reply.NextScene)
	assert.Equal(t, 1, h.store.profiles[testUser].Progress.Flowers)
	assert.Equal(t, 0, h.store.sessions[testSession].Errors)

	seat := garden.Spot{Category: garden.Seat, ID: 1}
	require.True(t, h.store.sessions[testSession].Available.Contains(seat))

	reply = h.run(t, HandlerGamePlay, SceneGame, nil)
	assert.Contains(t, speech(reply), "Hills or lake?")
	session := h.store.sessions[testSession]
	require.NotNil(t, session.Pending)
	assert.Equal(t, garden.Spot{Category: garden.Background, ID: 1}, session.Pending.Spot)
	assert.True(t, session.Available.Contains(seat))
	assert.Equal(t, 0, session.Errors)

	reply = h.run(t, HandlerUserAnswer, SceneGame, word("cactus"))
	assert.False(t, reply.EndConversation)
	assert.Equal(t, 1, h.store.sessions[testSession].Errors)
}

func TestMalformedUserParamsAreReplaced(t *testing.T) {
	h := newHarness(t)
	store := params.New(map[string]any{
		params.UserIDKey: testUser,
		"version":        float64(4),
		"userProgress":   "lots",
	}, nil)

	for turn := 0; turn < 2; turn++ {
		reply, err := h.svc.Handle(context.Background(), store, Turn{
			Handler:      HandlerInitGame,
			UserID:       testUser,
			SessionID:    testSession,
			Capabilities: []string{CapabilityInteractiveCanvas},
		})
		require.NoError(t, err, "turn %d", turn)
		require.NotNil(t, reply.Canvas)
		assert.Equal(t, CanvasPreload, reply.Canvas.State)
		store = params.New(store.UserParams(), store.SessionParams())
	}

	profile, err := store.LoadProfile(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(6), profile.Version)
	assert.Equal(t, 1, profile.TemplateIndex)
}

func TestReloadedTemplateDropsStaleSlots(t *testing.T) {
	content := testContent(t)
	source := &swapContent{content: content}
	h := newHarness(t)
	svc, err := NewService(source, h.pub, h.clock, zeroRandom{}, nil, zap.NewNop(), DefaultOptions())
	require.NoError(t, err)
	h.svc = svc
	h.onboarded(nil)

	h.run(t, HandlerGamePlay, SceneGame, nil)
	require.Equal(t, garden.Spot{Category: garden.Flowers, ID: 1}, h.store.sessions[testSession].Pending.Spot)

	templates, err := garden.NewTemplateCatalog([]garden.Template{{
		Name: "cottage",
		Slots: []garden.Slot{
			testSlot(garden.Flowers, 2, true),
			testSlot(garden.Background, 1, false),
		},
	}})
	require.NoError(t, err)
	source.content = &ports.Content{Templates: templates, Script: content.Script}

	h.run(t, HandlerGamePlay, SceneGame, nil)
	session := h.store.sessions[testSession]
	assert.Len(t, session.Available, 2)
	assert.False(t, session.Available.Contains(garden.Spot{Category: garden.Flowers, ID: 1}))
	require.NotNil(t, session.Pending)
	assert.Equal(t, garden.Spot{Category: garden.Flowers, ID: 2}, session.Pending.Spot)
}

func TestBothAndRepeatKeepQuestion(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)
	h.run(t, HandlerGamePlay, SceneGame, nil)
	h.run(t, HandlerUserAnswer, SceneGame, word("cactus"))

	reply := h.run(t, HandlerBothQuestion, SceneGame, nil)
	assert.Contains(t, speech(reply), "Only one, please.")
	assert.Equal(t, SceneGame, reply.NextScene)

	reply = h.run(t, HandlerRepeatQuestion, SceneGame, nil)
	assert.Contains(t, speech(reply), "Here it is again.")

	session := h.store.sessions[testSession]
	assert.Equal(t, 1, session.Errors)
	require.NotNil(t, session.Pending)

	reply = h.run(t, HandlerGamePlay, SceneGame, nil)
	assert.Contains(t, speech(reply), "Rose or tulip?")
	assert.NotContains(t, speech(reply), "[move]")
}

func TestSkipQuestionAdvancesProgress(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)
	h.run(t, HandlerGamePlay, SceneGame, nil)

	reply := h.run(t, HandlerSkipQuestion, SceneGame, nil)
	assert.Equal(t, SceneGardenAnimation, reply.NextScene)
	assert.Equal(t, 1, h.store.profiles[testUser].Progress.Flowers)
	assert.Empty(t, h.store.profiles[testUser].Garden)
	assert.Nil(t, h.store.sessions[testSession].Pending)
}

func TestFullGardenGoesToGameOver(t *testing.T) {
	h := newHarness(t)
	now := h.clock.now.UnixMilli()
	h.onboarded(garden.GardenProgress{
		{Category: garden.Flowers, Slot: 1, AssetID: "rose_01", Timestamp: now},
		{Category: garden.Flowers, Slot: 2, AssetID: "tulip_01", Timestamp: now},
		{Category: garden.Background, Slot: 1, AssetID: "lake_01", Timestamp: now},
		{Category: garden.Seat, Slot: 1, AssetID: "bench_01", Timestamp: now},
	})

	reply := h.run(t, HandlerGamePlay, SceneGame, nil)
	assert.Equal(t, SceneGameOver, reply.NextScene)
	assert.Nil(t, h.store.sessions[testSession].Next)
	assert.Equal(t, []string{events.TypeGardenFull}, h.pub.published())
}

func TestRemoveFlowersByBadgeNumber(t *testing.T) {
	h := newHarness(t)
	now := h.clock.now.UnixMilli()
	h.onboarded(garden.GardenProgress{
		{Category: garden.Flowers, Slot: 1, AssetID: "rose_01", Label: "roses", Timestamp: now},
		{Category: garden.Background, Slot: 1, AssetID: "lake_01", Timestamp: now},
		{Category: garden.Flowers, Slot: 2, AssetID: "lily_01", Label: "lilies", Timestamp: now},
	})

	reply := h.run(t, HandlerRemoveByID, SceneRemove, map[string]Param{
		ParamNumber: {Values: []string{"2", "7", "x"}},
	})
	assert.Equal(t, SceneCloseRemove, reply.NextScene)
	assert.Contains(t, speech(reply), "[rm]Removed lilies.")

	profile := h.store.profiles[testUser]
	require.Len(t, profile.Garden, 2)
	_, stillThere := profile.Garden.Find(garden.Spot{Category: garden.Flowers, ID: 2})
	assert.False(t, stillThere)
	assert.True(t, h.store.sessions[testSession].Available.Contains(garden.Spot{Category: garden.Flowers, ID: 2}))
	assert.Equal(t, []string{events.TypeItemsRemoved}, h.pub.published())
}

func TestWeedTheGarden(t *testing.T) {
	h := newHarness(t)
	old := h.clock.now.Add(-time.Hour).UnixMilli()
	h.onboarded(garden.GardenProgress{
		{Category: garden.Flowers, Slot: 1, AssetID: "rose_01", Timestamp: old},
	})

	reply := h.run(t, HandlerWeedGarden, SceneFirstWeed, nil)
	assert.Equal(t, SceneGardenAnimation, reply.NextScene)
	assert.Contains(t, speech(reply), "[rm]Your first weeding!")

	ts := h.store.profiles[testUser].Garden[0].Timestamp
	assert.Greater(t, ts, h.clock.now.UnixMilli())
	assert.Equal(t, []string{events.TypeWeeded}, h.pub.published())
}

func TestUpdateSoundState(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)

	reply := h.run(t, HandlerUpdateSound, SceneSettings, map[string]Param{ParamState: {Values: []string{"OFF"}}})
	assert.Contains(t, speech(reply), "Sound is off.")
	assert.False(t, h.store.profiles[testUser].SoundOn)
	assert.Equal(t, 0, reply.Canvas.Params.SoundState)

	reply = h.run(t, HandlerUpdateSound, SceneSettings, nil)
	assert.Contains(t, speech(reply), "Sound is off.")
}

func TestNoMatchOutsideGame(t *testing.T) {
	h := newHarness(t)
	h.onboarded(nil)

	reply := h.run(t, HandlerNoMatch2, SceneSettings, nil)
	assert.Contains(t, speech(reply), "Say sound on or off.")
	require.NotNil(t, reply.Canvas)
	assert.Equal(t, CanvasDefault, reply.Canvas.State)
	assert.Nil(t, reply.Canvas.Garden)
}

func TestGameResetKeepsQuestionProgress(t *testing.T) {
	h := newHarness(t)
	now := h.clock.now.UnixMilli()
	h.onboarded(garden.GardenProgress{
		{Category: garden.Flowers, Slot: 1, AssetID: "rose_01", Timestamp: now},
	})
	h.store.profiles[testUser].Progress.Flowers = 1

	reply := h.run(t, HandlerGameReset, SceneConfirmNewGarden, nil)
	assert.Equal(t, CanvasResetGame, reply.Canvas.State)
	require.NotNil(t, reply.Canvas.Template)
	assert.Contains(t, speech(reply), "[rm]A fresh garden.")

	profile := h.store.profiles[testUser]
	assert.Empty(t, profile.Garden)
	assert.Equal(t, 1, profile.Progress.Flowers)
	assert.Len(t, h.store.sessions[testSession].Available, 4)
	assert.Equal(t, []string{events.TypeGardenReset}, h.pub.published())
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Snapshot(context.Background(), h.store, "nobody")
	assert.True(t, appErrors.IsType(err, appErrors.ErrorTypeNotFound))

	h.onboarded(garden.GardenProgress{
		{Category: garden.Flowers, Slot: 1, AssetID: "rose_01", Timestamp: h.clock.now.UnixMilli()},
	})
	view, err := h.svc.Snapshot(context.Background(), h.store, testUser)
	require.NoError(t, err)
	assert.Len(t, view.Data, 1)
}

func TestSSML(t *testing.T) {
	assert.Equal(t, `<speak><prosody volume="default"><break time="1.5s"/>Hi</prosody></speak>`, SSML("Hi", 1.5))
	assert.Equal(t, `<speak><prosody volume="default"><break time="0s"/>Hi</prosody></speak>`, SSML("Hi", 0))
}
