package store

// Stores groups the stores the engine reads and writes through.
type Stores struct {
	Principals     PrincipalStore
	Organizations  OrganizationStore
	Repositories   RepositoryStore
	Authorizations AuthorizationStore
	AccessRequests AccessRequestStore
	Versions       VersionStore
	Examples       ExampleStore
}
