package server_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/access"
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/artifact"
	"github.com/nluhub/nluhub/internal/auth"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/client"
	"github.com/nluhub/nluhub/internal/logger"
	"github.com/nluhub/nluhub/internal/notify"
	"github.com/nluhub/nluhub/internal/server"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/store/memory"
	"github.com/nluhub/nluhub/internal/trainer"
	"github.com/nluhub/nluhub/internal/training"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeTrainer struct {
	mu          sync.Mutex
	err         error
	credentials []uuid.UUID
	trained     []*trainer.TrainRequest
}

func (f *fakeTrainer) Train(ctx context.Context, credential uuid.UUID, req *trainer.TrainRequest) (*trainer.TrainResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.credentials = append(f.credentials, credential)
	f.trained = append(f.trained, req)
	return &trainer.TrainResponse{Status: "queued", TaskID: "task-1"}, nil
}

func (f *fakeTrainer) Evaluate(ctx context.Context, credential uuid.UUID, req *trainer.EvaluateRequest) (*trainer.EvaluateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &trainer.EvaluateResponse{EvaluationID: "eval-1", Accuracy: 0.9, Precision: 0.8, F1Score: 0.85}, nil
}

func (f *fakeTrainer) Analyze(ctx context.Context, credential uuid.UUID, req *trainer.AnalyzeRequest) (*trainer.AnalyzeResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &trainer.AnalyzeResponse{
		Text:   req.Text,
		Intent: trainer.Prediction{Name: "greet", Confidence: 0.97},
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, []uuid.UUID, map[string]any) {}

var _ notify.Notifier = nopNotifier{}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	stores  *store.Stores
	trainer *fakeTrainer
	logs    *syncBuffer
	url     string
	client  *client.Client
}

func newTestEnv(t *testing.T, withTrainer bool) *testEnv {
	t.Helper()

	env := &testEnv{stores: memory.NewStores(), logs: &syncBuffer{}}

	resolver := authz.NewResolver(env.stores)
	workflow := access.NewWorkflow(env.stores, resolver, nopNotifier{})

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	manager := training.NewManager(env.stores, resolver, training.WithClock(clock))

	srv := server.NewServer(env.stores, resolver, workflow, manager)
	if withTrainer {
		env.trainer = &fakeTrainer{}
		srv.WithTrainer(env.trainer)
	}

	log := zerolog.New(env.logs)
	ts := httptest.NewServer(srv.Handler(auth.NoAuthFunc, logger.NewConnectRequests(log)))
	t.Cleanup(ts.Close)

	env.url = ts.URL
	env.client = client.NewWithHTTPClient(ts.Client(), ts.URL, connect.WithInterceptors(client.NewContextPrincipalInterceptor()))
	return env
}

func (e *testEnv) register(t *testing.T, name string) context.Context {
	t.Helper()
	ctx := client.WithPrincipal(context.Background(), uuid.Must(uuid.NewV7()))
	_, err := e.client.RegisterPrincipal(ctx, &api.RegisterPrincipalRequest{Name: name})
	require.NoError(t, err)
	return ctx
}

func (e *testEnv) createRepository(t *testing.T, ctx context.Context, slug string, private bool) (*api.Repository, string) {
	t.Helper()
	res, err := e.client.CreateRepository(ctx, &api.CreateRepositoryRequest{
		Name:      slug,
		Slug:      slug,
		Language:  "en",
		IsPrivate: private,
	})
	require.NoError(t, err)

	vl, err := e.client.EnsureVersionLanguage(ctx, &api.EnsureVersionLanguageRequest{
		VersionID: res.Repository.VersionID,
		Language:  "en",
	})
	require.NoError(t, err)
	return &res.Repository, vl.VersionLanguage.VersionLanguageID
}

func (e *testEnv) addExample(t *testing.T, ctx context.Context, vlID, text, intent string) string {
	t.Helper()
	res, err := e.client.AddExample(ctx, &api.AddExampleRequest{VersionLanguageID: vlID, Text: text, Intent: intent})
	require.NoError(t, err)
	return res.ExampleID
}

func (e *testEnv) readiness(t *testing.T, ctx context.Context, vlID string) *api.GetVersionReadinessResponse {
	t.Helper()
	res, err := e.client.GetVersionReadiness(ctx, &api.GetVersionReadinessRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	return res
}

func requireCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, connect.CodeOf(err), "error: %v", err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	res, err := http.Get(env.url + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRegisterPrincipal_Idempotent(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := env.register(t, "alice")

	res, err := env.client.RegisterPrincipal(ctx, &api.RegisterPrincipalRequest{Name: "someone else"})
	require.NoError(t, err)
	require.Equal(t, "alice", res.Principal.Name)
	require.False(t, res.Principal.IsOrganization)
}

func TestTrainingLifecycle(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	_, vlID := env.createRepository(t, owner, "weather-bot", false)

	ready := env.readiness(t, owner, vlID)
	require.False(t, ready.Ready)
	require.Equal(t, training.ReasonNoContent, ready.Reason)
	require.Equal(t, "fresh", ready.State)

	env.addExample(t, owner, vlID, "hello", "greet")
	ready = env.readiness(t, owner, vlID)
	require.False(t, ready.Ready)
	require.Equal(t, []string{`intent "greet" has 1 example, needs at least 2`}, ready.Blocking)

	env.addExample(t, owner, vlID, "hi there", "greet")
	ready = env.readiness(t, owner, vlID)
	require.True(t, ready.Ready)
	require.Empty(t, ready.Blocking)
	require.Equal(t, training.ReasonNeverTrained, ready.Reason)

	started, err := env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	require.Equal(t, "training", started.VersionLanguage.State)
	require.Empty(t, started.TrainerStatus)

	ready = env.readiness(t, owner, vlID)
	require.False(t, ready.Ready)
	require.Equal(t, training.ReasonTraining, ready.Reason)

	_, err = env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	requireCode(t, err, connect.CodeFailedPrecondition)

	payload := []byte("model weights")
	completed, err := env.client.CompleteTraining(owner, &api.CompleteTrainingRequest{VersionLanguageID: vlID, Payload: payload})
	require.NoError(t, err)
	require.Equal(t, "trained", completed.VersionLanguage.State)
	require.Equal(t, 1, completed.VersionLanguage.TotalTrainingEnd)
	require.Equal(t, artifact.Checksum(payload), completed.VersionLanguage.ArtifactChecksum)

	ready = env.readiness(t, owner, vlID)
	require.False(t, ready.Ready)
	require.Equal(t, training.ReasonUpToDate, ready.Reason)

	model, err := env.client.GetModel(owner, &api.GetModelRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	require.Equal(t, payload, model.Payload)
	require.Equal(t, artifact.Checksum(payload), model.Checksum)

	env.addExample(t, owner, vlID, "good morning", "greet")
	ready = env.readiness(t, owner, vlID)
	require.True(t, ready.Ready)
	require.Equal(t, training.ReasonContentChanged, ready.Reason)

	require.Contains(t, env.logs.String(), api.CompleteTrainingProcedure)
}

func TestDeleteExample_BlocksReadiness(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	_, vlID := env.createRepository(t, owner, "weather-bot", false)

	env.addExample(t, owner, vlID, "hello", "greet")
	exampleID := env.addExample(t, owner, vlID, "hi", "greet")
	require.True(t, env.readiness(t, owner, vlID).Ready)

	_, err := env.client.DeleteExample(owner, &api.DeleteExampleRequest{ExampleID: exampleID, VersionLanguageID: vlID})
	require.NoError(t, err)
	require.False(t, env.readiness(t, owner, vlID).Ready)

	_, err = env.client.DeleteExample(owner, &api.DeleteExampleRequest{ExampleID: exampleID, VersionLanguageID: vlID})
	requireCode(t, err, connect.CodeNotFound)
}

func TestUpdateConfig_Drift(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	repo, vlID := env.createRepository(t, owner, "weather-bot", false)

	env.addExample(t, owner, vlID, "hello", "greet")
	env.addExample(t, owner, vlID, "hi", "greet")
	_, err := env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	_, err = env.client.CompleteTraining(owner, &api.CompleteTrainingRequest{VersionLanguageID: vlID, Payload: []byte("m")})
	require.NoError(t, err)

	cfg := repo.Config
	cfg.UseAnalyzeChar = !cfg.UseAnalyzeChar
	changed, err := env.client.UpdateConfig(owner, &api.UpdateConfigRequest{RepositoryID: repo.RepositoryID, Config: cfg})
	require.NoError(t, err)
	require.Equal(t, []string{"use_analyze_char"}, changed.Changed)

	ready := env.readiness(t, owner, vlID)
	require.True(t, ready.Ready)
	require.Equal(t, training.ReasonConfigDrift, ready.Reason)
}

func TestAccessRequestFlow(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	requester := env.register(t, "requester")
	repo, vlID := env.createRepository(t, owner, "private-bot", true)

	view, err := env.client.ResolveAuthorization(requester, &api.ResolveAuthorizationRequest{RepositoryID: repo.RepositoryID})
	require.NoError(t, err)
	require.Equal(t, "nothing", view.Level)
	require.False(t, view.CanRead)

	_, err = env.client.GetVersionReadiness(requester, &api.GetVersionReadinessRequest{VersionLanguageID: vlID})
	requireCode(t, err, connect.CodePermissionDenied)

	created, err := env.client.CreateAccessRequest(requester, &api.CreateAccessRequestRequest{
		RepositoryID: repo.RepositoryID,
		Text:         "please let me in",
	})
	require.NoError(t, err)
	require.Empty(t, created.Request.ApprovedBy)

	_, err = env.client.CreateAccessRequest(requester, &api.CreateAccessRequestRequest{RepositoryID: repo.RepositoryID, Text: "again"})
	requireCode(t, err, connect.CodeAlreadyExists)

	_, err = env.client.ListAccessRequests(requester, &api.ListAccessRequestsRequest{RepositoryID: repo.RepositoryID})
	requireCode(t, err, connect.CodePermissionDenied)

	list, err := env.client.ListAccessRequests(owner, &api.ListAccessRequestsRequest{RepositoryID: repo.RepositoryID})
	require.NoError(t, err)
	require.Len(t, list.Requests, 1)

	approved, err := env.client.ApproveRequest(owner, &api.ApproveRequestRequest{RequestID: created.Request.RequestID})
	require.NoError(t, err)
	require.NotEmpty(t, approved.Request.ApprovedBy)

	_, err = env.client.ApproveRequest(owner, &api.ApproveRequestRequest{RequestID: created.Request.RequestID})
	requireCode(t, err, connect.CodeFailedPrecondition)

	view, err = env.client.ResolveAuthorization(requester, &api.ResolveAuthorizationRequest{RepositoryID: repo.RepositoryID})
	require.NoError(t, err)
	require.Equal(t, "user", view.Role)
	require.True(t, view.CanRead)
	require.False(t, view.CanContribute)

	_, err = env.client.RejectRequest(owner, &api.RejectRequestRequest{RequestID: created.Request.RequestID})
	require.NoError(t, err)

	view, err = env.client.ResolveAuthorization(requester, &api.ResolveAuthorizationRequest{RepositoryID: repo.RepositoryID})
	require.NoError(t, err)
	require.Equal(t, "nothing", view.Level)
}

func TestOrganizationMembership(t *testing.T) {
	env := newTestEnv(t, false)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	org, err := env.client.CreateOrganization(alice, &api.CreateOrganizationRequest{Name: "acme"})
	require.NoError(t, err)

	res, err := env.client.CreateRepository(alice, &api.CreateRepositoryRequest{
		OwnerID:   org.OrganizationID,
		Name:      "support",
		Slug:      "support",
		Language:  "en",
		IsPrivate: true,
	})
	require.NoError(t, err)
	repoID := res.Repository.RepositoryID
	require.Equal(t, org.OrganizationID, res.Repository.OwnerID)

	bobView, err := env.client.ResolveAuthorization(bob, &api.ResolveAuthorizationRequest{RepositoryID: repoID})
	require.NoError(t, err)
	require.False(t, bobView.CanRead)

	_, err = env.client.SetOrganizationRole(bob, &api.SetOrganizationRoleRequest{
		OrganizationID: org.OrganizationID,
		PrincipalID:    bobView.PrincipalID,
		Role:           "contributor",
	})
	requireCode(t, err, connect.CodePermissionDenied)

	_, err = env.client.SetOrganizationRole(alice, &api.SetOrganizationRoleRequest{
		OrganizationID: org.OrganizationID,
		PrincipalID:    bobView.PrincipalID,
		Role:           "contributor",
	})
	require.NoError(t, err)

	bobView, err = env.client.ResolveAuthorization(bob, &api.ResolveAuthorizationRequest{RepositoryID: repoID})
	require.NoError(t, err)
	require.Equal(t, "contributor", bobView.Role)
	require.True(t, bobView.CanContribute)
	require.False(t, bobView.CanWrite)

	// Bob may not create repositories for an organization he does not administer.
	_, err = env.client.CreateRepository(bob, &api.CreateRepositoryRequest{
		OwnerID:  org.OrganizationID,
		Name:     "other",
		Slug:     "other",
		Language: "en",
	})
	requireCode(t, err, connect.CodePermissionDenied)
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	member := env.register(t, "member")
	repo, vlID := env.createRepository(t, owner, "weather-bot", true)

	memberView, err := env.client.ResolveAuthorization(member, &api.ResolveAuthorizationRequest{RepositoryID: repo.RepositoryID})
	require.NoError(t, err)

	_, err = env.client.AddExample(member, &api.AddExampleRequest{VersionLanguageID: vlID, Text: "hello", Intent: "greet"})
	requireCode(t, err, connect.CodePermissionDenied)

	set, err := env.client.SetRole(owner, &api.SetRoleRequest{
		RepositoryID: repo.RepositoryID,
		PrincipalID:  memberView.PrincipalID,
		Role:         "contributor",
	})
	require.NoError(t, err)
	require.Equal(t, "contributor", set.Role)

	env.addExample(t, member, vlID, "hello", "greet")

	// Resolving someone else requires admin.
	_, err = env.client.ResolveAuthorization(member, &api.ResolveAuthorizationRequest{
		RepositoryID: repo.RepositoryID,
		PrincipalID:  repo.OwnerID,
	})
	requireCode(t, err, connect.CodePermissionDenied)

	ownerView, err := env.client.ResolveAuthorization(owner, &api.ResolveAuthorizationRequest{
		RepositoryID: repo.RepositoryID,
		PrincipalID:  memberView.PrincipalID,
	})
	require.NoError(t, err)
	require.Equal(t, "contributor", ownerView.Level)

	_, err = env.client.SetRole(owner, &api.SetRoleRequest{
		RepositoryID: repo.RepositoryID,
		PrincipalID:  repo.OwnerID,
		Role:         "user",
	})
	requireCode(t, err, connect.CodeFailedPrecondition)
}

func TestErrorCodes(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	repo, _ := env.createRepository(t, owner, "weather-bot", false)
	anonymous := context.Background()

	tests := []struct {
		name string
		call func() error
		code connect.Code
	}{
		{
			name: "anonymous mutation",
			call: func() error {
				_, err := env.client.CreateRepository(anonymous, &api.CreateRepositoryRequest{Name: "x", Slug: "x", Language: "en"})
				return err
			},
			code: connect.CodeUnauthenticated,
		},
		{
			name: "malformed repository id",
			call: func() error {
				_, err := env.client.ResolveAuthorization(owner, &api.ResolveAuthorizationRequest{RepositoryID: "nope"})
				return err
			},
			code: connect.CodeNotFound,
		},
		{
			name: "unknown repository",
			call: func() error {
				_, err := env.client.ResolveAuthorization(owner, &api.ResolveAuthorizationRequest{RepositoryID: uuid.Must(uuid.NewV7()).String()})
				return err
			},
			code: connect.CodeNotFound,
		},
		{
			name: "access request text too long",
			call: func() error {
				other := env.register(t, "other")
				_, err := env.client.CreateAccessRequest(other, &api.CreateAccessRequestRequest{
					RepositoryID: repo.RepositoryID,
					Text:         string(bytes.Repeat([]byte("a"), access.MaxTextLength+1)),
				})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "owner requests access",
			call: func() error {
				_, err := env.client.CreateAccessRequest(owner, &api.CreateAccessRequestRequest{RepositoryID: repo.RepositoryID, Text: "hi"})
				return err
			},
			code: connect.CodeAlreadyExists,
		},
		{
			name: "invalid role",
			call: func() error {
				_, err := env.client.SetRole(owner, &api.SetRoleRequest{RepositoryID: repo.RepositoryID, PrincipalID: repo.OwnerID, Role: "root"})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "duplicate slug",
			call: func() error {
				_, err := env.client.CreateRepository(owner, &api.CreateRepositoryRequest{Name: "again", Slug: "weather-bot", Language: "en"})
				return err
			},
			code: connect.CodeAlreadyExists,
		},
		{
			name: "complete without training",
			call: func() error {
				_, vlID := env.createRepository(t, owner, fmt.Sprintf("bot-%d", time.Now().UnixNano()), false)
				_, err := env.client.CompleteTraining(owner, &api.CompleteTrainingRequest{VersionLanguageID: vlID, Payload: []byte("m")})
				return err
			},
			code: connect.CodeFailedPrecondition,
		},
		{
			name: "model before training",
			call: func() error {
				_, vlID := env.createRepository(t, owner, fmt.Sprintf("bot-%d", time.Now().UnixNano()), false)
				_, err := env.client.GetModel(owner, &api.GetModelRequest{VersionLanguageID: vlID})
				return err
			},
			code: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, tt.call(), tt.code)
		})
	}
}

func TestInvalidPrincipalHeader(t *testing.T) {
	env := newTestEnv(t, false)

	req, err := http.NewRequest(http.MethodPost, env.url+api.RegisterPrincipalProcedure, bytes.NewBufferString(`{"name":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.PrincipalHeader, "not-a-uuid")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestStartTraining_Dispatch(t *testing.T) {
	env := newTestEnv(t, true)
	owner := env.register(t, "owner")
	repo, vlID := env.createRepository(t, owner, "weather-bot", false)

	env.addExample(t, owner, vlID, "hello", "greet")
	env.addExample(t, owner, vlID, "hi", "greet")

	started, err := env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	require.Equal(t, "queued", started.TrainerStatus)
	require.Equal(t, "training", started.VersionLanguage.State)

	require.Len(t, env.trainer.trained, 1)
	require.Equal(t, vlID, env.trainer.trained[0].VersionLanguageID.String())
	require.Equal(t, repo.Config, env.trainer.trained[0].Config)

	ownerID := uuid.MustParse(repo.OwnerID)
	rec, err := env.stores.Authorizations.Get(context.Background(), uuid.MustParse(repo.RepositoryID), ownerID)
	require.NoError(t, err)
	require.Equal(t, rec.AuthorizationID, env.trainer.credentials[0])
}

func TestStartTraining_TrainerUnavailable(t *testing.T) {
	env := newTestEnv(t, true)
	env.trainer.err = fmt.Errorf("%w: train: connection refused", trainer.ErrUnavailable)
	owner := env.register(t, "owner")
	_, vlID := env.createRepository(t, owner, "weather-bot", false)

	env.addExample(t, owner, vlID, "hello", "greet")
	env.addExample(t, owner, vlID, "hi", "greet")

	_, err := env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	requireCode(t, err, connect.CodeUnavailable)

	ready := env.readiness(t, owner, vlID)
	require.Equal(t, "failed", ready.State)
	require.True(t, ready.Ready)
}

func TestAnalyzeAndEvaluate(t *testing.T) {
	env := newTestEnv(t, true)
	owner := env.register(t, "owner")
	reader := env.register(t, "reader")
	_, vlID := env.createRepository(t, owner, "weather-bot", false)

	_, err := env.client.Analyze(owner, &api.AnalyzeRequest{VersionLanguageID: vlID, Text: "hello"})
	requireCode(t, err, connect.CodeNotFound)

	env.addExample(t, owner, vlID, "hello", "greet")
	env.addExample(t, owner, vlID, "hi", "greet")
	_, err = env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	_, err = env.client.CompleteTraining(owner, &api.CompleteTrainingRequest{VersionLanguageID: vlID, Payload: []byte("m")})
	require.NoError(t, err)

	analyzed, err := env.client.Analyze(reader, &api.AnalyzeRequest{VersionLanguageID: vlID, Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, "greet", analyzed.Intent.Name)

	_, err = env.client.Evaluate(reader, &api.EvaluateRequest{VersionLanguageID: vlID})
	requireCode(t, err, connect.CodePermissionDenied)

	evaluated, err := env.client.Evaluate(owner, &api.EvaluateRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	require.Equal(t, "eval-1", evaluated.EvaluationID)

	env.trainer.err = errors.New("boom")
	_, err = env.client.Evaluate(owner, &api.EvaluateRequest{VersionLanguageID: vlID})
	requireCode(t, err, connect.CodeInternal)
}

func TestAnalyze_NoTrainer(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.register(t, "owner")
	_, vlID := env.createRepository(t, owner, "weather-bot", false)

	env.addExample(t, owner, vlID, "hello", "greet")
	env.addExample(t, owner, vlID, "hi", "greet")
	_, err := env.client.StartTraining(owner, &api.StartTrainingRequest{VersionLanguageID: vlID})
	require.NoError(t, err)
	_, err = env.client.CompleteTraining(owner, &api.CompleteTrainingRequest{VersionLanguageID: vlID, Payload: []byte("m")})
	require.NoError(t, err)

	_, err = env.client.Analyze(owner, &api.AnalyzeRequest{VersionLanguageID: vlID, Text: "hello"})
	requireCode(t, err, connect.CodeUnavailable)
}
