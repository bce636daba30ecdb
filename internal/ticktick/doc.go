// Package ticktick provides a client for the TickTick Open API.
//
// The client covers projects and tasks (the /open/v1 surface) and handles
// OAuth2 bearer authentication transparently: a 401 response triggers a
// single token refresh against the TickTick token endpoint, after which the
// original request is retried exactly once with the new token. Rotated
// tokens are written back to the configured env file so they survive
// restarts.
//
// All methods take a context.Context and return explicit errors. Remote
// failures are reported as *APIError so callers can distinguish them from
// programming errors:
//
//	client, err := ticktick.NewClient(creds, ticktick.WithEnvFile(".env"))
//	if err != nil {
//		return err
//	}
//	projects, err := client.GetProjects(ctx)
//	var apiErr *ticktick.APIError
//	if errors.As(err, &apiErr) {
//		// remote or transport failure
//	}
//
// The API interface mirrors the client's resource methods so consumers can
// substitute a stub in tests.
package ticktick
