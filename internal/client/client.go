package client

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/nluhub/nluhub/internal/api"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool
	// CacheModels caches model downloads, on disk when CacheDir is set.
	CacheModels bool
	CacheDir    string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "https://localhost:8080",
		Timeout:   5 * time.Minute,
		Debug:     false,
	}
}

// Client calls the repository service.
type Client struct {
	registerPrincipal     *connect.Client[api.RegisterPrincipalRequest, api.RegisterPrincipalResponse]
	createOrganization    *connect.Client[api.CreateOrganizationRequest, api.CreateOrganizationResponse]
	setOrganizationRole   *connect.Client[api.SetOrganizationRoleRequest, api.SetOrganizationRoleResponse]
	createRepository      *connect.Client[api.CreateRepositoryRequest, api.CreateRepositoryResponse]
	resolveAuthorization  *connect.Client[api.ResolveAuthorizationRequest, api.ResolveAuthorizationResponse]
	setRole               *connect.Client[api.SetRoleRequest, api.SetRoleResponse]
	createAccessRequest   *connect.Client[api.CreateAccessRequestRequest, api.CreateAccessRequestResponse]
	approveRequest        *connect.Client[api.ApproveRequestRequest, api.ApproveRequestResponse]
	rejectRequest         *connect.Client[api.RejectRequestRequest, api.RejectRequestResponse]
	listAccessRequests    *connect.Client[api.ListAccessRequestsRequest, api.ListAccessRequestsResponse]
	updateConfig          *connect.Client[api.UpdateConfigRequest, api.UpdateConfigResponse]
	createVersion         *connect.Client[api.CreateVersionRequest, api.CreateVersionResponse]
	setDefaultVersion     *connect.Client[api.SetDefaultVersionRequest, api.SetDefaultVersionResponse]
	ensureVersionLanguage *connect.Client[api.EnsureVersionLanguageRequest, api.EnsureVersionLanguageResponse]
	addExample            *connect.Client[api.AddExampleRequest, api.AddExampleResponse]
	deleteExample         *connect.Client[api.DeleteExampleRequest, api.DeleteExampleResponse]
	addTranslation        *connect.Client[api.AddTranslationRequest, api.AddTranslationResponse]
	getVersionReadiness   *connect.Client[api.GetVersionReadinessRequest, api.GetVersionReadinessResponse]
	startTraining         *connect.Client[api.StartTrainingRequest, api.StartTrainingResponse]
	completeTraining      *connect.Client[api.CompleteTrainingRequest, api.CompleteTrainingResponse]
	failTraining          *connect.Client[api.FailTrainingRequest, api.FailTrainingResponse]
	getModel              *connect.Client[api.GetModelRequest, api.GetModelResponse]
	analyze               *connect.Client[api.AnalyzeRequest, api.AnalyzeResponse]
	evaluate              *connect.Client[api.EvaluateRequest, api.EvaluateResponse]
}

// New creates a client for the service at config.ServerURL.
func New(config Config, opts ...connect.ClientOption) *Client {
	if config.CacheModels {
		return NewWithHTTPClient(NewCachingHTTPClient(config.CacheDir, config.Timeout), config.ServerURL, opts...)
	}
	return NewWithHTTPClient(&http.Client{Timeout: config.Timeout}, config.ServerURL, opts...)
}

// NewWithHTTPClient creates a client that sends requests through httpClient.
func NewWithHTTPClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(api.JSONCodec{})}, opts...)
	readOnly := append([]connect.ClientOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)
	cacheable := append([]connect.ClientOption{connect.WithHTTPGet(), connect.WithHTTPGetMaxURLSize(4096, true)}, readOnly...)

	return &Client{
		registerPrincipal:     connect.NewClient[api.RegisterPrincipalRequest, api.RegisterPrincipalResponse](httpClient, baseURL+api.RegisterPrincipalProcedure, opts...),
		createOrganization:    connect.NewClient[api.CreateOrganizationRequest, api.CreateOrganizationResponse](httpClient, baseURL+api.CreateOrganizationProcedure, opts...),
		setOrganizationRole:   connect.NewClient[api.SetOrganizationRoleRequest, api.SetOrganizationRoleResponse](httpClient, baseURL+api.SetOrganizationRoleProcedure, opts...),
		createRepository:      connect.NewClient[api.CreateRepositoryRequest, api.CreateRepositoryResponse](httpClient, baseURL+api.CreateRepositoryProcedure, opts...),
		resolveAuthorization:  connect.NewClient[api.ResolveAuthorizationRequest, api.ResolveAuthorizationResponse](httpClient, baseURL+api.ResolveAuthorizationProcedure, opts...),
		setRole:               connect.NewClient[api.SetRoleRequest, api.SetRoleResponse](httpClient, baseURL+api.SetRoleProcedure, opts...),
		createAccessRequest:   connect.NewClient[api.CreateAccessRequestRequest, api.CreateAccessRequestResponse](httpClient, baseURL+api.CreateAccessRequestProcedure, opts...),
		approveRequest:        connect.NewClient[api.ApproveRequestRequest, api.ApproveRequestResponse](httpClient, baseURL+api.ApproveRequestProcedure, opts...),
		rejectRequest:         connect.NewClient[api.RejectRequestRequest, api.RejectRequestResponse](httpClient, baseURL+api.RejectRequestProcedure, opts...),
		listAccessRequests:    connect.NewClient[api.ListAccessRequestsRequest, api.ListAccessRequestsResponse](httpClient, baseURL+api.ListAccessRequestsProcedure, readOnly...),
		updateConfig:          connect.NewClient[api.UpdateConfigRequest, api.UpdateConfigResponse](httpClient, baseURL+api.UpdateConfigProcedure, opts...),
		createVersion:         connect.NewClient[api.CreateVersionRequest, api.CreateVersionResponse](httpClient, baseURL+api.CreateVersionProcedure, opts...),
		setDefaultVersion:     connect.NewClient[api.SetDefaultVersionRequest, api.SetDefaultVersionResponse](httpClient, baseURL+api.SetDefaultVersionProcedure, opts...),
		ensureVersionLanguage: connect.NewClient[api.EnsureVersionLanguageRequest, api.EnsureVersionLanguageResponse](httpClient, baseURL+api.EnsureVersionLanguageProcedure, opts...),
		addExample:            connect.NewClient[api.AddExampleRequest, api.AddExampleResponse](httpClient, baseURL+api.AddExampleProcedure, opts...),
		deleteExample:         connect.NewClient[api.DeleteExampleRequest, api.DeleteExampleResponse](httpClient, baseURL+api.DeleteExampleProcedure, opts...),
		addTranslation:        connect.NewClient[api.AddTranslationRequest, api.AddTranslationResponse](httpClient, baseURL+api.AddTranslationProcedure, opts...),
		getVersionReadiness:   connect.NewClient[api.GetVersionReadinessRequest, api.GetVersionReadinessResponse](httpClient, baseURL+api.GetVersionReadinessProcedure, readOnly...),
		startTraining:         connect.NewClient[api.StartTrainingRequest, api.StartTrainingResponse](httpClient, baseURL+api.StartTrainingProcedure, opts...),
		completeTraining:      connect.NewClient[api.CompleteTrainingRequest, api.CompleteTrainingResponse](httpClient, baseURL+api.CompleteTrainingProcedure, opts...),
		failTraining:          connect.NewClient[api.FailTrainingRequest, api.FailTrainingResponse](httpClient, baseURL+api.FailTrainingProcedure, opts...),
		getModel:              connect.NewClient[api.GetModelRequest, api.GetModelResponse](httpClient, baseURL+api.GetModelProcedure, cacheable...),
		analyze:               connect.NewClient[api.AnalyzeRequest, api.AnalyzeResponse](httpClient, baseURL+api.AnalyzeProcedure, readOnly...),
		evaluate:              connect.NewClient[api.EvaluateRequest, api.EvaluateResponse](httpClient, baseURL+api.EvaluateProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) RegisterPrincipal(ctx context.Context, req *api.RegisterPrincipalRequest) (*api.RegisterPrincipalResponse, error) {
	return call(ctx, c.registerPrincipal, req)
}

func (c *Client) CreateOrganization(ctx context.Context, req *api.CreateOrganizationRequest) (*api.CreateOrganizationResponse, error) {
	return call(ctx, c.createOrganization, req)
}

func (c *Client) SetOrganizationRole(ctx context.Context, req *api.SetOrganizationRoleRequest) (*api.SetOrganizationRoleResponse, error) {
	return call(ctx, c.setOrganizationRole, req)
}

func (c *Client) CreateRepository(ctx context.Context, req *api.CreateRepositoryRequest) (*api.CreateRepositoryResponse, error) {
	return call(ctx, c.createRepository, req)
}

func (c *Client) ResolveAuthorization(ctx context.Context, req *api.ResolveAuthorizationRequest) (*api.ResolveAuthorizationResponse, error) {
	return call(ctx, c.resolveAuthorization, req)
}

func (c *Client) SetRole(ctx context.Context, req *api.SetRoleRequest) (*api.SetRoleResponse, error) {
	return call(ctx, c.setRole, req)
}

func (c *Client) CreateAccessRequest(ctx context.Context, req *api.CreateAccessRequestRequest) (*api.CreateAccessRequestResponse, error) {
	return call(ctx, c.createAccessRequest, req)
}

func (c *Client) ApproveRequest(ctx context.Context, req *api.ApproveRequestRequest) (*api.ApproveRequestResponse, error) {
	return call(ctx, c.approveRequest, req)
}

func (c *Client) RejectRequest(ctx context.Context, req *api.RejectRequestRequest) (*api.RejectRequestResponse, error) {
	return call(ctx, c.rejectRequest, req)
}

func (c *Client) ListAccessRequests(ctx context.Context, req *api.ListAccessRequestsRequest) (*api.ListAccessRequestsResponse, error) {
	return call(ctx, c.listAccessRequests, req)
}

func (c *Client) UpdateConfig(ctx context.Context, req *api.UpdateConfigRequest) (*api.UpdateConfigResponse, error) {
	return call(ctx, c.updateConfig, req)
}

func (c *Client) CreateVersion(ctx context.Context, req *api.CreateVersionRequest) (*api.CreateVersionResponse, error) {
	return call(ctx, c.createVersion, req)
}

func (c *Client) SetDefaultVersion(ctx context.Context, req *api.SetDefaultVersionRequest) (*api.SetDefaultVersionResponse, error) {
	return call(ctx, c.setDefaultVersion, req)
}

func (c *Client) EnsureVersionLanguage(ctx context.Context, req *api.EnsureVersionLanguageRequest) (*api.EnsureVersionLanguageResponse, error) {
	return call(ctx, c.ensureVersionLanguage, req)
}

func (c *Client) AddExample(ctx context.Context, req *api.AddExampleRequest) (*api.AddExampleResponse, error) {
	return call(ctx, c.addExample, req)
}

func (c *Client) DeleteExample(ctx context.Context, req *api.DeleteExampleRequest) (*api.DeleteExampleResponse, error) {
	return call(ctx, c.deleteExample, req)
}

func (c *Client) AddTranslation(ctx context.Context, req *api.AddTranslationRequest) (*api.AddTranslationResponse, error) {
	return call(ctx, c.addTranslation, req)
}

func (c *Client) GetVersionReadiness(ctx context.Context, req *api.GetVersionReadinessRequest) (*api.GetVersionReadinessResponse, error) {
	return call(ctx, c.getVersionReadiness, req)
}

func (c *Client) StartTraining(ctx context.Context, req *api.StartTrainingRequest) (*api.StartTrainingResponse, error) {
	return call(ctx, c.startTraining, req)
}

func (c *Client) CompleteTraining(ctx context.Context, req *api.CompleteTrainingRequest) (*api.CompleteTrainingResponse, error) {
	return call(ctx, c.completeTraining, req)
}

func (c *Client) FailTraining(ctx context.Context, req *api.FailTrainingRequest) (*api.FailTrainingResponse, error) {
	return call(ctx, c.failTraining, req)
}

func (c *Client) GetModel(ctx context.Context, req *api.GetModelRequest) (*api.GetModelResponse, error) {
	return call(ctx, c.getModel, req)
}

func (c *Client) Analyze(ctx context.Context, req *api.AnalyzeRequest) (*api.AnalyzeResponse, error) {
	return call(ctx, c.analyze, req)
}

func (c *Client) Evaluate(ctx context.Context, req *api.EvaluateRequest) (*api.EvaluateResponse, error) {
	return call(ctx, c.evaluate, req)
}
