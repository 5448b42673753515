package server

import (
	"context"
	"net/http"

	"connectrpc.com/authn"
	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/access"
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/auth"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/store"
	"github.com/nluhub/nluhub/internal/trainer"
	"github.com/nluhub/nluhub/internal/training"
)

// Trainer is the remote training service.
type Trainer interface {
	Train(ctx context.Context, credential uuid.UUID, req *trainer.TrainRequest) (*trainer.TrainResponse, error)
	Evaluate(ctx context.Context, credential uuid.UUID, req *trainer.EvaluateRequest) (*trainer.EvaluateResponse, error)
	Analyze(ctx context.Context, credential uuid.UUID, req *trainer.AnalyzeRequest) (*trainer.AnalyzeResponse, error)
}

// Server implements the repository service on top of the engine.
type Server struct {
	stores   *store.Stores
	resolver *authz.Resolver
	access   *access.Workflow
	training *training.Manager
	trainer  Trainer
}

// NewServer creates a Server. Without a trainer, training state is still
// recorded but no remote training is requested.
func NewServer(stores *store.Stores, resolver *authz.Resolver, workflow *access.Workflow, manager *training.Manager) *Server {
	return &Server{
		stores:   stores,
		resolver: resolver,
		access:   workflow,
		training: manager,
	}
}

// WithTrainer sets the remote trainer.
func (s *Server) WithTrainer(t Trainer) *Server {
	s.trainer = t
	return s
}

func register[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts ...connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// Handler returns the HTTP handler serving the repository service behind
// authFunc.
func (s *Server) Handler(authFunc authn.AuthFunc, interceptors ...connect.Interceptor) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	opts := []connect.HandlerOption{
		connect.WithCodec(api.JSONCodec{}),
		connect.WithInterceptors(interceptors...),
	}
	readOnly := append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)
	idempotent := append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyIdempotent)}, opts...)

	register(mux, api.RegisterPrincipalProcedure, s.RegisterPrincipal, idempotent...)
	register(mux, api.CreateOrganizationProcedure, s.CreateOrganization, opts...)
	register(mux, api.SetOrganizationRoleProcedure, s.SetOrganizationRole, idempotent...)
	register(mux, api.CreateRepositoryProcedure, s.CreateRepository, opts...)
	register(mux, api.ResolveAuthorizationProcedure, s.ResolveAuthorization, idempotent...)
	register(mux, api.SetRoleProcedure, s.SetRole, idempotent...)
	register(mux, api.CreateAccessRequestProcedure, s.CreateAccessRequest, opts...)
	register(mux, api.ApproveRequestProcedure, s.ApproveRequest, opts...)
	register(mux, api.RejectRequestProcedure, s.RejectRequest, opts...)
	register(mux, api.ListAccessRequestsProcedure, s.ListAccessRequests, readOnly...)
	register(mux, api.UpdateConfigProcedure, s.UpdateConfig, idempotent...)
	register(mux, api.CreateVersionProcedure, s.CreateVersion, opts...)
	register(mux, api.SetDefaultVersionProcedure, s.SetDefaultVersion, idempotent...)
	register(mux, api.EnsureVersionLanguageProcedure, s.EnsureVersionLanguage, idempotent...)
	register(mux, api.AddExampleProcedure, s.AddExample, opts...)
	register(mux, api.DeleteExampleProcedure, s.DeleteExample, opts...)
	register(mux, api.AddTranslationProcedure, s.AddTranslation, opts...)
	register(mux, api.GetVersionReadinessProcedure, s.GetVersionReadiness, readOnly...)
	register(mux, api.StartTrainingProcedure, s.StartTraining, opts...)
	register(mux, api.CompleteTrainingProcedure, s.CompleteTraining, opts...)
	register(mux, api.FailTrainingProcedure, s.FailTraining, opts...)
	register(mux, api.GetModelProcedure, s.GetModel, readOnly...)
	register(mux, api.AnalyzeProcedure, s.Analyze, readOnly...)
	register(mux, api.EvaluateProcedure, s.Evaluate, opts...)

	return authn.NewMiddleware(authFunc).Wrap(mux)
}

// callerOrAnonymous returns the authenticated principal, uuid.Nil for
// anonymous callers.
func callerOrAnonymous(ctx context.Context) uuid.UUID {
	return auth.PrincipalFromContext(ctx)
}

// caller returns the authenticated principal or errUnauthenticated.
func caller(ctx context.Context) (uuid.UUID, error) {
	principalID := callerOrAnonymous(ctx)
	if principalID == uuid.Nil {
		return uuid.Nil, errUnauthenticated
	}
	return principalID, nil
}
