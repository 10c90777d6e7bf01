package websites

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// SimulatedOptions configures a destination that never leaves the process.
// It backs local runs and tests where real destination adapters are absent.
type SimulatedOptions struct {
	BaseURL   string
	Files     bool
	Messages  bool
	BatchSize int
	// MaxDimension requests a resize for files whose width or height exceeds it.
	MaxDimension int
	// MaxBytes rejects files larger than it through the resize request.
	MaxBytes int64
	// FailAccounts maps an account id to the error message the destination returns.
	FailAccounts map[string]string
}

type simulatedCore struct {
	name    string
	opts    SimulatedOptions
	counter atomic.Int64

	mu    sync.Mutex
	calls []SimulatedCall
}

// SimulatedCall is one observed adapter invocation.
type SimulatedCall struct {
	AccountID string
	FileIDs   []string
	Message   bool
}

type simulatedFileSite struct{ *simulatedCore }
type simulatedMessageSite struct{ *simulatedCore }
type simulatedFullSite struct {
	simulatedFileSite
	simulatedMessageSite
}

// NewSimulated builds a destination exposing only the capabilities enabled in opts.
func NewSimulated(name string, opts SimulatedOptions) ports.Website {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = "https://" + normalizeName(name) + ".example"
	}
	core := &simulatedCore{name: normalizeName(name), opts: opts}
	switch {
	case opts.Files && opts.Messages:
		return simulatedFullSite{simulatedFileSite{core}, simulatedMessageSite{core}}
	case opts.Files:
		return simulatedFileSite{core}
	case opts.Messages:
		return simulatedMessageSite{core}
	default:
		return core
	}
}

// SimulatedCalls returns the invocations observed by a site built with NewSimulated.
func SimulatedCalls(site ports.Website) []SimulatedCall {
	var core *simulatedCore
	switch typed := site.(type) {
	case *simulatedCore:
		core = typed
	case simulatedFileSite:
		core = typed.simulatedCore
	case simulatedMessageSite:
		core = typed.simulatedCore
	case simulatedFullSite:
		core = typed.simulatedFileSite.simulatedCore
	default:
		return nil
	}
	core.mu.Lock()
	defer core.mu.Unlock()
	return append([]SimulatedCall(nil), core.calls...)
}

func (c *simulatedCore) Name() string {
	return c.name
}

func (c *simulatedCore) record(call SimulatedCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *simulatedCore) respond(ctx context.Context, data entities.PostData) (entities.PostResponse, error) {
	if err := ctx.Err(); err != nil {
		return entities.PostResponse{}, err
	}
	if message, ok := c.opts.FailAccounts[data.AccountID]; ok {
		return entities.PostResponse{}, fmt.Errorf("%s: %s", c.name, message)
	}
	n := c.counter.Add(1)
	return entities.PostResponse{
		SourceURL: fmt.Sprintf("%s/%s/%s/%d", strings.TrimRight(c.opts.BaseURL, "/"), data.AccountID, data.SubmissionID, n),
		Message:   "posted",
	}, nil
}

func (s simulatedFileSite) PostFiles(
	ctx context.Context,
	data entities.PostData,
	files []entities.SubmissionFile,
) (entities.PostResponse, error) {
	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, file.ID)
	}
	s.record(SimulatedCall{AccountID: data.AccountID, FileIDs: ids})
	return s.respond(ctx, data)
}

func (s simulatedFileSite) FileBatchSize() int {
	if s.opts.BatchSize <= 0 {
		return 1
	}
	return s.opts.BatchSize
}

func (s simulatedFileSite) CalculateResize(file entities.SubmissionFile) *entities.ResizeRequest {
	var req entities.ResizeRequest
	if limit := s.opts.MaxDimension; limit > 0 && (file.Width > limit || file.Height > limit) {
		req.MaxWidth, req.MaxHeight = limit, limit
	}
	if s.opts.MaxBytes > 0 && file.Size > s.opts.MaxBytes {
		req.MaxBytes = s.opts.MaxBytes
	}
	if req == (entities.ResizeRequest{}) {
		return nil
	}
	return &req
}

func (s simulatedMessageSite) PostMessage(ctx context.Context, data entities.PostData) (entities.PostResponse, error) {
	s.record(SimulatedCall{AccountID: data.AccountID, Message: true})
	return s.respond(ctx, data)
}

func (s simulatedFullSite) Name() string {
	return s.simulatedFileSite.Name()
}

var _ ports.FileCapable = simulatedFileSite{}
var _ ports.FileBatcher = simulatedFileSite{}
var _ ports.ResizeCapable = simulatedFileSite{}
var _ ports.MessageCapable = simulatedMessageSite{}
var _ ports.FileCapable = simulatedFullSite{}
var _ ports.MessageCapable = simulatedFullSite{}
