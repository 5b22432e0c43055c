// Package agent runs resource agent executables in metadata discovery mode
// and captures what they print.
package agent

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/resrules/pkg/rules"
	"github.com/openfroyo/resrules/pkg/schema"
)

// MetadataArg is the single argument that asks an agent to describe itself.
const MetadataArg = "meta-data"

// chunkSize bounds each read from the agent's output pipe.
const chunkSize = 4096

// ErrProberClosed is returned by a Prober after Close.
var ErrProberClosed = errors.New("prober is closed")

// Prober invokes agents and parses their metadata. A scan holds one Prober for
// its whole duration and closes it when done. The read buffer is shared by
// every invocation, so a Prober must not be used concurrently.
type Prober struct {
	// Timeout bounds each agent invocation. Zero waits for the agent to exit
	// however long that takes.
	Timeout time.Duration

	logger zerolog.Logger
	buf    []byte
	closed bool
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds every invocation by d.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.Timeout = d
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// NewProber creates a Prober.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		logger: zerolog.Nop(),
		buf:    make([]byte, chunkSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the read buffer. Further probes fail with ErrProberClosed.
func (p *Prober) Close() error {
	p.buf = nil
	p.closed = true
	return nil
}

// Probe runs the agent at path and parses its metadata. It returns a nil
// document and a nil error when the agent prints nothing, which means the
// executable is not a resource agent. Spawn failures and malformed output are
// returned as skippable errors.
func (p *Prober) Probe(ctx context.Context, path string) (*schema.Document, error) {
	data, err := p.ReadMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	doc, err := schema.Parse(data)
	if err != nil {
		return nil, rules.NewSkipError(rules.ErrCodeMalformedMetadata,
			"agent printed malformed metadata", err).WithAgent(path)
	}
	return doc, nil
}

// ReadMetadata runs the agent at path with MetadataArg and returns everything
// it wrote to standard output. Standard input and error are attached to the
// null device. The child is always reaped before ReadMetadata returns.
func (p *Prober) ReadMetadata(ctx context.Context, path string) ([]byte, error) {
	if p.closed {
		return nil, ErrProberClosed
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, rules.NewSkipError(rules.ErrCodeSpawnFailed, "failed to create pipe", err).WithAgent(path)
	}
	defer r.Close()

	cmd := exec.CommandContext(ctx, path, MetadataArg)
	cmd.Stdout = w
	err = cmd.Start()
	// The child holds its own copy of the write end.
	_ = w.Close()
	if err != nil {
		return nil, rules.NewSkipError(rules.ErrCodeSpawnFailed, "failed to start agent", err).WithAgent(path)
	}

	// Unblock the read loop if the deadline passes while a descendant of the
	// agent still holds the pipe open.
	stop := context.AfterFunc(ctx, func() {
		_ = r.SetReadDeadline(time.Now())
	})
	data, readErr := readPipe(r, p.buf)
	stop()

	waitErr := cmd.Wait()
	if waitErr != nil {
		p.logger.Debug().Err(waitErr).Str("agent", path).Msg("Agent exited abnormally")
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, rules.NewSkipError(rules.ErrCodeProbeTimeout, "agent did not finish in time", ctx.Err()).WithAgent(path)
	case ctx.Err() != nil:
		return nil, rules.NewSkipError(rules.ErrCodeProbeCancelled, "probe cancelled", ctx.Err()).WithAgent(path)
	}
	if readErr != nil {
		return nil, rules.NewSkipError(rules.ErrCodeReadFailed, "failed to read agent output", readErr).WithAgent(path)
	}

	return data, nil
}

// ReadPipe reads r to end of stream in bounded chunks, growing a single
// buffer as data arrives.
func ReadPipe(r io.Reader) ([]byte, error) {
	return readPipe(r, make([]byte, chunkSize))
}

// readPipe is ReadPipe with a caller-owned chunk buffer.
func readPipe(r io.Reader, buf []byte) ([]byte, error) {
	var data []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
