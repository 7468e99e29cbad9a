// Package auth guards the HTTP API.
//
// The server listens on localhost by default and then needs no credentials.
// When it is exposed, API_TOKEN makes every /api request carry
//
//	Authorization: Bearer <token>
//
// The health endpoints stay public so that supervisors can probe them.
package auth
