package identity

// Actor identifies the authenticated caller of an operation, as carried
// in the bearer token. Passed explicitly into every application-service
// call; the engine holds no per-request state of its own.
type Actor struct {
	Email string
	Role  Role
}
