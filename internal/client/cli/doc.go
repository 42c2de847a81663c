// Package cli provides the interactive La Bandina command-line client.
//
// It wires configuration, the REST API client and a session file into a
// small REPL:
//   - register / login: obtain an access and refresh token pair
//   - whoami: show the profile behind the current access token
//   - refresh: trade the refresh token for a new pair
//   - logout: revoke the session server side and forget it locally
//
// The session survives restarts in the file named by config.SessionFile.
package cli
