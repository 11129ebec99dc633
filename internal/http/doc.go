// Package http provides HTTP handlers and middleware for the rehearsal scheduler API.
//
// The router exposes the following endpoints:
//   - POST /users: registers a member. Body: {"email","password","nickname","circle_code"}.
//   - POST /sessions/login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","user"} with the token also surfaced via the `X-Session-Token`
//     header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the token extracted from the Authorization header
//     or session cookie. Returns 204 No Content and clears the cookie.
//   - GET /me, PUT /me: the signed-in member; PUT changes the nickname.
//   - GET /rehearsals, POST /rehearsals: ongoing rehearsals of the member's circle and
//     creation of a new one.
//   - POST /rehearsals/import: stores a rehearsal described by a share link.
//   - GET /rehearsals/{id}: the rehearsal with member nicknames; viewing joins it.
//   - DELETE /rehearsals/{id}: creator only.
//   - PUT /rehearsals/{id}/availability: replaces the member's free slots.
//   - GET /rehearsals/{id}/grid, GET /rehearsals/{id}/slots/{key}: availability views.
//   - POST /rehearsals/{id}/finalize: confirms slots with a room and equipment; the
//     response carries double-booking and equipment warnings.
//   - GET /rehearsals/{id}/share: the invitation link.
//
// Every endpoint except registration and login requires a session token. Error messages
// are localized from the Accept-Language header (Japanese by default).
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
