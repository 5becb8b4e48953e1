package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/importer"
)

// MessageTypeAPI is the only message type the dispatcher reacts to.
const MessageTypeAPI = "api"

// Operator-facing replies.
const (
	MsgMissingPayload = "Provide a valid JSON string for import."
	MsgInvalidJSON    = "Error: Invalid JSON provided."
	msgUnknownFormat  = "Unknown sub-command: %s"
	msgDumpFormat     = "Dumped %d character(s)."
)

// Message is one inbound chat message.
type Message struct {
	Type    string
	Who     string
	Content string
}

// Reply is one outbound whisper.
type Reply struct {
	Speaker string
	To      string
	Text    string
}

// String renders the reply in chat whisper syntax.
func (r Reply) String() string {
	return fmt.Sprintf("%s: /w %s %s", r.Speaker, r.To, r.Text)
}

// Replier delivers whispers to the operator.
type Replier interface {
	Whisper(ctx context.Context, r Reply) error
}

// Runner is the importing backend driven by the dispatcher.
type Runner interface {
	Process(ctx context.Context, batch importer.Batch) importer.Report
	DumpCharacters(ctx context.Context) ([]importer.CharacterDump, error)
}

// ImportHook is consulted after every completed import. A non-empty return
// is whispered after the report.
type ImportHook interface {
	AfterImport(ctx context.Context, report importer.Report) (string, error)
}

// Config holds the dispatcher's addressing.
type Config struct {
	// Prefix is the chat command word without the leading "!".
	Prefix string
	// Speaker is the name replies are sent as.
	Speaker string
	// WhisperTo is the recipient of every reply.
	WhisperTo string
}

// DefaultConfig returns the addressing used by the original chat script.
func DefaultConfig() Config {
	return Config{Prefix: DefaultPrefix, Speaker: "tac", WhisperTo: "gm"}
}

// Dispatcher routes chat messages to sub-commands. Handle is serialized so
// one message is processed to completion before the next begins.
type Dispatcher struct {
	mu       sync.Mutex
	cfg      Config
	registry *Registry
	runner   Runner
	replier  Replier
	hooks    []ImportHook
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: runner, replier and logger must be non-nil; cfg.Prefix must
// be non-empty.
// Postcondition: Returns a Dispatcher using the default registry.
func NewDispatcher(cfg Config, runner Runner, replier Replier, logger *zap.Logger, hooks ...ImportHook) (*Dispatcher, error) {
	if runner == nil || replier == nil || logger == nil {
		return nil, errors.New("runner, replier and logger are required")
	}
	if cfg.Prefix == "" {
		return nil, errors.New("command prefix must not be empty")
	}
	return &Dispatcher{
		cfg:      cfg,
		registry: DefaultRegistry(),
		runner:   runner,
		replier:  replier,
		hooks:    hooks,
		logger:   logger,
	}, nil
}

// Handle processes one chat message. Messages that are not API messages or
// are not addressed to the configured prefix are ignored silently.
//
// Postcondition: Every addressed message produces at least one whisper; the
// returned error reports only delivery failures.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) error {
	if msg.Type != MessageTypeAPI {
		return nil
	}
	inv, ok := Parse(msg.Content, d.cfg.Prefix)
	if !ok {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sub, found := d.registry.Resolve(inv.Subcommand)
	if !found {
		d.logger.Info("unknown sub-command",
			zap.String("who", msg.Who),
			zap.String("subcommand", inv.Subcommand),
		)
		return d.whisper(ctx, fmt.Sprintf(msgUnknownFormat, inv.Subcommand))
	}

	switch sub.Handler {
	case HandlerHelp:
		d.logger.Info("help invoked", zap.String("who", msg.Who))
		return d.whisper(ctx, d.registry.Usage())
	case HandlerDump:
		return d.handleDump(ctx, msg)
	case HandlerImport:
		return d.handleImport(ctx, msg, inv.Payload)
	default:
		return fmt.Errorf("sub-command %q has unhandled handler %q", sub.Name, sub.Handler)
	}
}

func (d *Dispatcher) handleImport(ctx context.Context, msg Message, payload string) error {
	if payload == "" {
		d.logger.Info("import requires a JSON payload", zap.String("who", msg.Who))
		return d.whisper(ctx, MsgMissingPayload)
	}

	batch, err := importer.DecodeBatch([]byte(payload))
	if err != nil {
		d.logger.Warn("parsing import payload",
			zap.String("who", msg.Who),
			zap.Error(err),
		)
		return d.whisper(ctx, MsgInvalidJSON)
	}

	d.logger.Info("import started",
		zap.String("who", msg.Who),
		zap.Int("scenes", len(batch.Scenes)),
		zap.Int("monsters", len(batch.Monsters)),
		zap.Int("notes", len(batch.Notes)),
	)
	report := d.runner.Process(ctx, batch)
	if err := d.whisper(ctx, report.String()); err != nil {
		return err
	}

	for _, h := range d.hooks {
		extra, err := h.AfterImport(ctx, report)
		if err != nil {
			d.logger.Warn("import hook failed", zap.Error(err))
			continue
		}
		if extra == "" {
			continue
		}
		if err := d.whisper(ctx, extra); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) handleDump(ctx context.Context, msg Message) error {
	dumps, err := d.runner.DumpCharacters(ctx)
	if err != nil {
		d.logger.Error("dumping characters", zap.String("who", msg.Who), zap.Error(err))
		return d.whisper(ctx, "Error: "+err.Error())
	}
	return d.whisper(ctx, fmt.Sprintf(msgDumpFormat, len(dumps)))
}

func (d *Dispatcher) whisper(ctx context.Context, text string) error {
	r := Reply{Speaker: d.cfg.Speaker, To: d.cfg.WhisperTo, Text: text}
	if err := d.replier.Whisper(ctx, r); err != nil {
		return fmt.Errorf("whispering to %s: %w", r.To, err)
	}
	return nil
}
