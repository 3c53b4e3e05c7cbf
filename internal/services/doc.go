// Package services defines the shared error taxonomy and the retry policy
// applied at I/O boundaries (file reads, store transactions).
package services
