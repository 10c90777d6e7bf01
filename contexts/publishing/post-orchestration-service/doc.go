// Package postorchestrationservice runs post attempts for submissions across their
// destination accounts.
//
// Each attempt is a post record whose progress is written to an append-only event ledger.
// The ledger is the only source used to resume: a new attempt derives which accounts and
// files to skip, and which source URLs to carry forward, by walking the submission's
// attempt history under its resume mode. The post queue starts its head entry only while
// no attempt of the same submission type is in flight, and the posting registry keeps at
// most one in-flight attempt per submission.
package postorchestrationservice
