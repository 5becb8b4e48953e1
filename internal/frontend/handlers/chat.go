// Package handlers provides the Telnet chat session that feeds operator
// messages to the command dispatcher.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/command"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/frontend/telnet"
)

const welcomeBanner = "TAC importer chat.\r\n" +
	"Type !tac --help for importer commands, quit to disconnect.\r\n"

// MessageTypeGeneral marks ordinary chat lines.
const MessageTypeGeneral = "general"

// MessageHandler consumes one chat message.
type MessageHandler interface {
	Handle(ctx context.Context, msg command.Message) error
}

// lineWriter is the subset of *telnet.Conn the hub writes to.
type lineWriter interface {
	WriteLine(text string) error
}

// ChatHub tracks connected sessions. It implements command.Replier: every
// connected operator is a GM, so a whisper reaches every session.
type ChatHub struct {
	mu       sync.RWMutex
	sessions map[lineWriter]string // writer → display name
	logger   *zap.Logger
}

// NewChatHub creates an empty hub.
//
// Precondition: logger must be non-nil.
func NewChatHub(logger *zap.Logger) *ChatHub {
	return &ChatHub{
		sessions: make(map[lineWriter]string),
		logger:   logger,
	}
}

// Join registers a session under name.
func (h *ChatHub) Join(w lineWriter, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[w] = name
}

// Leave unregisters a session.
func (h *ChatHub) Leave(w lineWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, w)
}

// Len returns the number of connected sessions.
func (h *ChatHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Whisper writes r to every connected session.
//
// Postcondition: Returns the joined write errors, nil if all writes succeed.
func (h *ChatHub) Whisper(_ context.Context, r command.Reply) error {
	return h.broadcast(fmt.Sprintf("(From %s): %s", r.Speaker, r.Text), nil)
}

// Say relays an ordinary chat line from one session to the others.
func (h *ChatHub) Say(from lineWriter, who, text string) error {
	return h.broadcast(fmt.Sprintf("%s: %s", who, text), from)
}

func (h *ChatHub) broadcast(text string, skip lineWriter) error {
	h.mu.RLock()
	targets := make([]lineWriter, 0, len(h.sessions))
	for w := range h.sessions {
		if w != skip {
			targets = append(targets, w)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.logger.Debug("no chat sessions to deliver to")
		return nil
	}

	var errs []error
	for _, w := range targets {
		if err := w.WriteLine(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChatHandler implements telnet.SessionHandler. Lines starting with "!" are
// API messages for the dispatcher; other lines are relayed as chat.
type ChatHandler struct {
	hub     *ChatHub
	handler MessageHandler
	logger  *zap.Logger
}

// NewChatHandler creates a ChatHandler.
//
// Precondition: hub, handler and logger must be non-nil.
func NewChatHandler(hub *ChatHub, handler MessageHandler, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{hub: hub, handler: handler, logger: logger}
}

// HandleSession runs the read loop for one operator.
//
// Postcondition: Returns nil on quit, ctx.Err() on shutdown, or the read error.
func (h *ChatHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	who := conn.RemoteAddr().String()

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}
	h.hub.Join(conn, who)
	defer h.hub.Leave(conn)

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine("Server shutting down. Goodbye!")
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine("Error: message too long.")
			continue
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit":
			_ = conn.WriteLine("Goodbye!")
			h.logger.Info("operator quit",
				zap.String("remote_addr", who),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil
		}

		msg := command.Message{Type: MessageTypeGeneral, Who: who, Content: line}
		if strings.HasPrefix(line, "!") {
			msg.Type = command.MessageTypeAPI
		} else if err := h.hub.Say(conn, who, line); err != nil {
			h.logger.Warn("relaying chat", zap.Error(err))
		}

		if err := h.handler.Handle(ctx, msg); err != nil {
			h.logger.Error("handling message",
				zap.String("remote_addr", who),
				zap.Error(err),
			)
		}
	}
}
