// Package credstore provides CredentialStore backends: an in-process
// map, a JSON file per scope, and redis. The postgres backend lives in
// internal/repository/postgres; Open picks one from configuration.
package credstore
