package posting

import (
	"context"

	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
)

// CancellationToken is the cooperative cancellation signal shared by one attempt.
// Checkpoints call IsCancelled; adapters observe Context.
type CancellationToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewCancellationToken(parent context.Context) *CancellationToken {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &CancellationToken{ctx: ctx, cancel: cancel}
}

// Child derives a token for a single adapter call. Cancelling the parent cancels the child.
func (t *CancellationToken) Child() *CancellationToken {
	return NewCancellationToken(t.ctx)
}

func (t *CancellationToken) Context() context.Context {
	return t.ctx
}

func (t *CancellationToken) Cancel() {
	t.cancel()
}

func (t *CancellationToken) IsCancelled() bool {
	return t.ctx.Err() != nil
}

// Err returns ErrPostCancelled once the token is cancelled.
func (t *CancellationToken) Err() error {
	if t.IsCancelled() {
		return domainerrors.ErrPostCancelled
	}
	return nil
}
