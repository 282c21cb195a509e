// Package auth checks front-desk credentials against the bcrypt hashes in
// the configuration file.
package auth
