package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/internal/store/storetest"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []*model.RelationshipEvent
}

func (r *eventRecorder) Publish(_ context.Context, ev *model.RelationshipEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	db            *gorm.DB
	orchestrator  *service.Orchestrator
	connections   *service.ConnectionService
	conversations *service.ConversationService
	mentorships   *service.MentorshipService
	sessions      *service.SessionService
	events        *eventRecorder
}

func newFixture(t *testing.T, autoEngage bool) *fixture {
	t.Helper()
	db := storetest.DB(t)
	events := &eventRecorder{}
	log := logger.NewNop()

	mentorships := service.NewMentorshipService(store.NewMentorshipRepo(db), events, log)
	return &fixture{
		db:            db,
		orchestrator:  service.NewOrchestrator(db, events, autoEngage, 5, log),
		connections:   service.NewConnectionService(store.NewConnectionRepo(db), events, log),
		conversations: service.NewConversationService(store.NewConversationRepo(db), events, log),
		mentorships:   mentorships,
		sessions:      service.NewSessionService(db, mentorships, events, log),
		events:        events,
	}
}

// connect submits a request from one actor to another.
func connect(ctx context.Context, f *fixture, from, to model.ActorRef, message string, intent bool) (*model.ConnectionRequest, error) {
	return f.connections.Create(ctx, from, model.CreateConnectionRequest{
		ToRole:           to.Role,
		ToID:             to.ID,
		Message:          message,
		MentorshipIntent: intent,
	})
}

func TestAcceptanceUnlocksConversationAndEngagement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	junior := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	senior := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	req, err := connect(ctx, f, junior, senior, "interested in mentoring", true)
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionPending, req.Status)

	resolved, err := f.orchestrator.Respond(ctx, req.ID, senior, model.DecisionAccept, "happy to help")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionAccepted, resolved.Status)
	assert.Equal(t, "happy to help", resolved.ResponseMessage)
	require.NotNil(t, resolved.RespondedAt)

	// The conversation exists with zeroed counters for both sides.
	convs, err := f.conversations.ListFor(ctx, junior)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	for _, uc := range convs[0].UnreadCounts {
		assert.Zero(t, uc.Count)
	}

	// mentorship_intent was set, so acceptance started an engagement with
	// the senior as mentor.
	views, err := f.mentorships.ListFor(ctx, junior)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, senior.ID, views[0].Mentor.ID)
	assert.Equal(t, junior.ID, views[0].Mentee.ID)
	assert.Equal(t, model.EngagementActive, views[0].Status)
	assert.Equal(t, 5, views[0].TotalPlannedSessions)
	assert.Zero(t, views[0].Progress)

	assert.Equal(t, []model.EventType{
		model.EventConnectionRequested,
		model.EventConnectionAccepted,
		model.EventEngagementStarted,
	}, f.events.types())
}

func TestMentorshipTermsCarryOntoEngagement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	junior := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	senior := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	req, err := f.connections.Create(ctx, junior, model.CreateConnectionRequest{
		ToRole:           senior.Role,
		ToID:             senior.ID,
		Message:          "interested in mentoring",
		MentorshipIntent: true,
		SkillsToLearn:    []string{"go", "system design"},
		Goals:            "ship a production service",
		PlannedSessions:  8,
	})
	require.NoError(t, err)
	_, err = f.orchestrator.Respond(ctx, req.ID, senior, model.DecisionAccept, "")
	require.NoError(t, err)

	views, err := f.mentorships.ListFor(ctx, junior)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []string{"go", "system design"}, views[0].SkillsToLearn)
	assert.Equal(t, "ship a production service", views[0].Goals)
	assert.Equal(t, 8, views[0].TotalPlannedSessions)
}

func TestRespondIsRecipientOnlyAndOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	junior := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	senior := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}
	stranger := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	req, err := connect(ctx, f, junior, senior, "hello", false)
	require.NoError(t, err)

	_, err = f.orchestrator.Respond(ctx, req.ID, stranger, model.DecisionAccept, "")
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.orchestrator.Respond(ctx, req.ID, junior, model.DecisionAccept, "")
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.orchestrator.Respond(ctx, req.ID, senior, model.DecisionAccept, "")
	require.NoError(t, err)

	// A second response loses, regardless of decision.
	_, err = f.orchestrator.Respond(ctx, req.ID, senior, model.DecisionReject, "")
	assert.ErrorIs(t, err, model.ErrAlreadyResolved)

	got, err := f.connections.ListFor(ctx, senior, "all")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ConnectionAccepted, got[0].Status)
}

func TestRejectionCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	junior := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	senior := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	req, err := connect(ctx, f, junior, senior, "hello", true)
	require.NoError(t, err)

	resolved, err := f.orchestrator.Respond(ctx, req.ID, senior, model.DecisionReject, "not right now")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionRejected, resolved.Status)

	convs, err := f.conversations.ListFor(ctx, junior)
	require.NoError(t, err)
	assert.Empty(t, convs)
	views, err := f.mentorships.ListFor(ctx, junior)
	require.NoError(t, err)
	assert.Empty(t, views)

	// Rejection is terminal for the request, not the pair.
	_, err = connect(ctx, f, junior, senior, "second try", false)
	assert.NoError(t, err)
}

func TestAutoEngageOverridesIntent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	junior := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	senior := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	req, err := connect(ctx, f, junior, senior, "hello", false)
	require.NoError(t, err)
	_, err = f.orchestrator.Respond(ctx, req.ID, senior, model.DecisionAccept, "")
	require.NoError(t, err)

	views, err := f.mentorships.ListFor(ctx, senior)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, senior.ID, views[0].Mentor.ID)
}

func TestSameRolePairMentorIsRecipient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	a := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}
	b := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}

	req, err := connect(ctx, f, a, b, "peer mentoring", true)
	require.NoError(t, err)
	_, err = f.orchestrator.Respond(ctx, req.ID, b, model.DecisionAccept, "")
	require.NoError(t, err)

	views, err := f.mentorships.ListFor(ctx, a)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, b.ID, views[0].Mentor.ID)
	assert.Equal(t, a.ID, views[0].Mentee.ID)
}

func TestCreateRejectsSelfAndUnknownRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	self := model.ActorRef{Role: model.RoleJunior, ID: uuid.New()}
	_, err := connect(ctx, f, self, self, "hi me", false)
	assert.ErrorIs(t, err, model.ErrInvalidActor)

	_, err = connect(ctx, f, self, model.ActorRef{Role: "admin", ID: uuid.New()}, "hi", false)
	assert.ErrorIs(t, err, model.ErrInvalidActor)
}

func TestRespondUnknownRequest(t *testing.T) {
	f := newFixture(t, false)

	actor := model.ActorRef{Role: model.RoleSenior, ID: uuid.New()}
	_, err := f.orchestrator.Respond(context.Background(), uuid.New(), actor, model.DecisionAccept, "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}
