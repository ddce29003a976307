package constants

// Caller roles carried in the principal token. Authentication itself is
// external; these only gate admin surfaces.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
