package api

import (
	"time"

	"github.com/nluhub/nluhub/internal/models"
)

// RepositoryService messages.

type RegisterPrincipalRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Principal struct {
	PrincipalID    string `json:"principal_id"`
	Name           string `json:"name"`
	IsOrganization bool   `json:"is_organization"`
}

type RegisterPrincipalResponse struct {
	Principal Principal `json:"principal"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type CreateOrganizationResponse struct {
	OrganizationID string `json:"organization_id"`
}

type SetOrganizationRoleRequest struct {
	OrganizationID string `json:"organization_id"`
	PrincipalID    string `json:"principal_id"`
	Role           string `json:"role"`
}

type SetOrganizationRoleResponse struct{}

type CreateRepositoryRequest struct {
	// OwnerID is an organization the caller administers; empty for the caller.
	OwnerID   string `json:"owner_id,omitempty"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Language  string `json:"language"`
	IsPrivate bool   `json:"is_private"`
}

type Repository struct {
	RepositoryID string                `json:"repository_id"`
	OwnerID      string                `json:"owner_id"`
	Name         string                `json:"name"`
	Slug         string                `json:"slug"`
	Language     string                `json:"language"`
	IsPrivate    bool                  `json:"is_private"`
	Config       models.TrainingConfig `json:"config"`
	VersionID    string                `json:"version_id,omitempty"`
}

type CreateRepositoryResponse struct {
	Repository Repository `json:"repository"`
}

type ResolveAuthorizationRequest struct {
	RepositoryID string `json:"repository_id"`
	// PrincipalID defaults to the caller. Resolving someone else requires admin.
	PrincipalID string `json:"principal_id,omitempty"`
}

type ResolveAuthorizationResponse struct {
	RepositoryID  string `json:"repository_id"`
	PrincipalID   string `json:"principal_id"`
	Role          string `json:"role"`
	Level         string `json:"level"`
	IsOwner       bool   `json:"is_owner"`
	CanRead       bool   `json:"can_read"`
	CanContribute bool   `json:"can_contribute"`
	CanWrite      bool   `json:"can_write"`
	IsAdmin       bool   `json:"is_admin"`
}

type SetRoleRequest struct {
	RepositoryID string `json:"repository_id"`
	PrincipalID  string `json:"principal_id"`
	Role         string `json:"role"`
}

type SetRoleResponse struct {
	AuthorizationID string `json:"authorization_id"`
	Role            string `json:"role"`
}

type AccessRequest struct {
	RequestID    string    `json:"request_id"`
	RepositoryID string    `json:"repository_id"`
	PrincipalID  string    `json:"principal_id"`
	Text         string    `json:"text"`
	ApprovedBy   string    `json:"approved_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateAccessRequestRequest struct {
	RepositoryID string `json:"repository_id"`
	Text         string `json:"text"`
}

type CreateAccessRequestResponse struct {
	Request AccessRequest `json:"request"`
}

type ApproveRequestRequest struct {
	RequestID string `json:"request_id"`
}

type ApproveRequestResponse struct {
	Request AccessRequest `json:"request"`
}

type RejectRequestRequest struct {
	RequestID string `json:"request_id"`
}

type RejectRequestResponse struct{}

type ListAccessRequestsRequest struct {
	RepositoryID string `json:"repository_id"`
}

type ListAccessRequestsResponse struct {
	Requests []AccessRequest `json:"requests"`
}

type UpdateConfigRequest struct {
	RepositoryID string                `json:"repository_id"`
	Config       models.TrainingConfig `json:"config"`
}

type UpdateConfigResponse struct {
	Changed []string `json:"changed"`
}

type CreateVersionRequest struct {
	RepositoryID string `json:"repository_id"`
	Name         string `json:"name"`
	IsDefault    bool   `json:"is_default"`
}

type CreateVersionResponse struct {
	VersionID string `json:"version_id"`
	IsDefault bool   `json:"is_default"`
}

type SetDefaultVersionRequest struct {
	RepositoryID string `json:"repository_id"`
	VersionID    string `json:"version_id"`
}

type SetDefaultVersionResponse struct{}

type EnsureVersionLanguageRequest struct {
	VersionID string `json:"version_id"`
	Language  string `json:"language"`
}

type VersionLanguage struct {
	VersionLanguageID string     `json:"version_language_id"`
	VersionID         string     `json:"version_id"`
	RepositoryID      string     `json:"repository_id"`
	Language          string     `json:"language"`
	State             string     `json:"state"`
	TrainingStartedAt *time.Time `json:"training_started_at,omitempty"`
	TrainingEndAt     *time.Time `json:"training_end_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	TotalTrainingEnd  int        `json:"total_training_end"`
	ArtifactChecksum  string     `json:"artifact_checksum,omitempty"`
}

type EnsureVersionLanguageResponse struct {
	VersionLanguage VersionLanguage `json:"version_language"`
}

type Entity struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Entity string `json:"entity"`
}

type AddExampleRequest struct {
	VersionLanguageID string   `json:"version_language_id"`
	Text              string   `json:"text"`
	Intent            string   `json:"intent"`
	Entities          []Entity `json:"entities,omitempty"`
}

type AddExampleResponse struct {
	ExampleID string `json:"example_id"`
}

type DeleteExampleRequest struct {
	ExampleID         string `json:"example_id"`
	VersionLanguageID string `json:"version_language_id"`
}

type DeleteExampleResponse struct{}

type AddTranslationRequest struct {
	ExampleID         string `json:"example_id"`
	VersionLanguageID string `json:"version_language_id"`
	Text              string `json:"text"`
}

type AddTranslationResponse struct {
	TranslationID string `json:"translation_id"`
}

type GetVersionReadinessRequest struct {
	VersionLanguageID string `json:"version_language_id"`
}

type GetVersionReadinessResponse struct {
	Ready    bool     `json:"ready"`
	State    string   `json:"state"`
	Reason   string   `json:"reason"`
	Blocking []string `json:"blocking"`
	Warnings []string `json:"warnings"`
}

type StartTrainingRequest struct {
	VersionLanguageID string `json:"version_language_id"`
}

type StartTrainingResponse struct {
	VersionLanguage VersionLanguage `json:"version_language"`
	TrainerStatus   string          `json:"trainer_status,omitempty"`
}

type CompleteTrainingRequest struct {
	VersionLanguageID string `json:"version_language_id"`
	Payload           []byte `json:"payload"`
}

type CompleteTrainingResponse struct {
	VersionLanguage VersionLanguage `json:"version_language"`
}

type FailTrainingRequest struct {
	VersionLanguageID string `json:"version_language_id"`
}

type FailTrainingResponse struct {
	VersionLanguage VersionLanguage `json:"version_language"`
}

type GetModelRequest struct {
	VersionLanguageID string `json:"version_language_id"`
}

type GetModelResponse struct {
	Checksum string `json:"checksum"`
	Payload  []byte `json:"payload"`
}

type AnalyzeRequest struct {
	VersionLanguageID string `json:"version_language_id"`
	Text              string `json:"text"`
}

type Prediction struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type AnalyzeResponse struct {
	Intent   Prediction `json:"intent"`
	Entities []Entity   `json:"entities"`
}

type EvaluateRequest struct {
	VersionLanguageID string `json:"version_language_id"`
}

type EvaluateResponse struct {
	EvaluationID string  `json:"evaluation_id"`
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	F1Score      float64 `json:"f1_score"`
}
