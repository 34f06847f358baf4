package runner

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted Runner for tests. Each call consumes the next
// response; the last response repeats once the script is exhausted.
type Fake struct {
	mu        sync.Mutex
	responses []Response
	calls     []Command
}

// Response is one scripted outcome.
type Response struct {
	Result Result
	Err    error
}

// NewFake returns a Fake that answers with responses in order.
func NewFake(responses ...Response) *Fake {
	return &Fake{responses: responses}
}

func (f *Fake) Run(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return f.next(cmd)
}

func (f *Fake) Attach(ctx context.Context, cmd Command) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	result, err := f.next(cmd)
	return result.ExitCode, err
}

// Calls returns the commands received so far.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

func (f *Fake) next(cmd Command) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)
	if len(f.responses) == 0 {
		return Result{}, fmt.Errorf("fake runner: no response scripted for %s", cmd.Name)
	}
	index := len(f.calls) - 1
	if index >= len(f.responses) {
		index = len(f.responses) - 1
	}
	response := f.responses[index]
	return response.Result, response.Err
}
