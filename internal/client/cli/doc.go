// Package cli provides the LeftOverChef command-line client.
//
// Every operation is a urfave/cli command (register, login, predict, history,
// show, delete, clear, stats, ...). The "shell" command starts a small REPL
// that feeds each line back through the same command set. The bearer token
// from login is kept in a session file (mode 0600) so later invocations stay
// signed in.
package cli
