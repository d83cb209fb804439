// Package cli provides the interactive clientkeeper command-line client.
//
// It wires configuration, the local session store, the API client and an
// interactive REPL. On start it tries to resume the previous session from the
// stored refresh token and otherwise asks the user to log in.
//
// Commands cover the account (register, login, logout, whoami, profiles,
// role), service records (list, show, add, edit, note, delete), their images
// (images, upload, rmimage) and CSV import/export.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
