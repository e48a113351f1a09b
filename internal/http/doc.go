// Package http provides HTTP handlers and middleware for the exam scheduler API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password","fingerprint"}.
//     The token is returned in the body, surfaced via the `X-Session-Token`
//     header and set as a `session_token` cookie.
//   - PUT /sessions/current: rotates the current session token before it
//     expires. DELETE /sessions/current revokes it and clears the cookie.
//   - DELETE /sessions/{token}: administrator controlled revocation of an
//     arbitrary session token.
//   - POST /reservations: books a machine for an exam sitting, exchanging the
//     `reservationRequest`/`reservationDTO` payloads defined in
//     reservation_handler.go. DELETE /reservations/{id} releases a strictly
//     future reservation.
//   - GET /rooms/{id}/hours?date=YYYY-MM-DD: lists the bookable spans of a
//     room for one calendar date.
//   - GET /start: resolves whether the requesting machine should start a
//     sitting now. The decision is mirrored into the `X-Exam-*` response
//     headers so thin exam agents can act without parsing the body.
//
// All endpoints except POST /sessions and PUT /sessions/current require an
// authenticated principal established by the RequireSession middleware.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
