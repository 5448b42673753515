// Package api holds the wire contract of the repository service shared by
// the server and its clients.
package api

// ServiceName is the fully-qualified name of the repository service.
const ServiceName = "nluhub.v1.RepositoryService"

// Procedures of the repository service.
const (
	RegisterPrincipalProcedure     = "/" + ServiceName + "/RegisterPrincipal"
	CreateOrganizationProcedure    = "/" + ServiceName + "/CreateOrganization"
	SetOrganizationRoleProcedure   = "/" + ServiceName + "/SetOrganizationRole"
	CreateRepositoryProcedure      = "/" + ServiceName + "/CreateRepository"
	ResolveAuthorizationProcedure  = "/" + ServiceName + "/ResolveAuthorization"
	SetRoleProcedure               = "/" + ServiceName + "/SetRole"
	CreateAccessRequestProcedure   = "/" + ServiceName + "/CreateAccessRequest"
	ApproveRequestProcedure        = "/" + ServiceName + "/ApproveRequest"
	RejectRequestProcedure         = "/" + ServiceName + "/RejectRequest"
	ListAccessRequestsProcedure    = "/" + ServiceName + "/ListAccessRequests"
	UpdateConfigProcedure          = "/" + ServiceName + "/UpdateConfig"
	CreateVersionProcedure         = "/" + ServiceName + "/CreateVersion"
	SetDefaultVersionProcedure     = "/" + ServiceName + "/SetDefaultVersion"
	EnsureVersionLanguageProcedure = "/" + ServiceName + "/EnsureVersionLanguage"
	AddExampleProcedure            = "/" + ServiceName + "/AddExample"
	DeleteExampleProcedure         = "/" + ServiceName + "/DeleteExample"
	AddTranslationProcedure        = "/" + ServiceName + "/AddTranslation"
	GetVersionReadinessProcedure   = "/" + ServiceName + "/GetVersionReadiness"
	StartTrainingProcedure         = "/" + ServiceName + "/StartTraining"
	CompleteTrainingProcedure      = "/" + ServiceName + "/CompleteTraining"
	FailTrainingProcedure          = "/" + ServiceName + "/FailTraining"
	GetModelProcedure              = "/" + ServiceName + "/GetModel"
	AnalyzeProcedure               = "/" + ServiceName + "/Analyze"
	EvaluateProcedure              = "/" + ServiceName + "/Evaluate"
)
