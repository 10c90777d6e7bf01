package memory

import (
	"context"
	"strings"
	"sync"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// Catalog serves submissions and accounts to the engine when no submission service is wired.
type Catalog struct {
	mu          sync.RWMutex
	submissions map[string]entities.Submission
	accounts    map[string]entities.Account
}

func NewCatalog() *Catalog {
	return &Catalog{
		submissions: make(map[string]entities.Submission),
		accounts:    make(map[string]entities.Account),
	}
}

func (c *Catalog) PutSubmission(submission entities.Submission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submissions[submission.ID] = submission
}

func (c *Catalog) PutAccount(account entities.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[account.ID] = account
}

func (c *Catalog) GetSubmission(_ context.Context, submissionID string) (entities.Submission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	submission, ok := c.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	return submission, nil
}

func (c *Catalog) GetAccount(_ context.Context, accountID string) (entities.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	account, ok := c.accounts[strings.TrimSpace(accountID)]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return account, nil
}

var _ ports.SubmissionReader = (*Catalog)(nil)
var _ ports.AccountReader = (*Catalog)(nil)
