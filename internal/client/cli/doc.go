// Package cli provides the interactive RecipeHub command-line client.
//
// It wires configuration and the HTTP API client into a REPL for account
// and session management: register, login, whoami, refresh, passwd,
// update, avatar, cover and logout.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends. See App and runREPL for details.
package cli
