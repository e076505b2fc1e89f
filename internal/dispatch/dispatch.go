package dispatch

import (
	"context"
	"fmt"
	"strings"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/metrics"
	"trade-relay-bot/internal/store"
	"trade-relay-bot/internal/tradelog"
)

// Command is one inbound chat command. Name may carry a leading slash and
// an @botname suffix.
type Command struct {
	Caller string
	Name   string
	Args   []string
}

type Params struct {
	// AllowedCaller is the only chat identity whose commands are served.
	AllowedCaller string
	SellMode      string
}

// result labels for metrics
const (
	resultOK           = "ok"
	resultUnauthorized = "unauthorized"
	resultUsage        = "usage"
	resultUnknown      = "unknown_command"
	resultRejected     = "rejected"
	resultNotFound     = "not_found"
	resultBadSymbol    = "unknown_symbol"
	resultError        = "error"
	resultPanic        = "panic"

	// commandOther labels every name that has no handler
	commandOther = "other"
)

type handler func(ctx context.Context, args []string) (reply, result string)

// Dispatcher turns chat commands into engine calls and renders exactly one
// reply per command.
type Dispatcher struct {
	eng      interfaces.Engine
	p        Params
	handlers map[string]handler
}

func New(eng interfaces.Engine, p Params) *Dispatcher {
	if p.SellMode == "" {
		p.SellMode = store.SellModeBracket
	}
	d := &Dispatcher{eng: eng, p: p}
	d.handlers = map[string]handler{
		"buy":     d.buy,
		"sell":    d.sell,
		"replace": d.replace,
		"help":    d.help,
		"start":   d.help,
	}
	return d
}

// Handle authorizes and runs cmd. It never panics and always returns a
// non-empty reply.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) (reply string) {
	name := commandName(cmd.Name)
	result := resultOK

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Command handler panicked", "command", name, "panic", fmt.Sprint(r))
			reply = fmt.Sprintf("Error: %v", r)
			result = resultPanic
		}
		metrics.Command(d.metricLabel(name), result)
		logger.Command(ctx, cmd.Caller, name, cmd.Args, reply)
		if err := tradelog.AppendCommand(tradelog.CommandEntry{
			Caller:  cmd.Caller,
			Command: name,
			Args:    cmd.Args,
			Result:  result,
			Reply:   reply,
		}); err != nil {
			logger.Warn(ctx, "Journal write failed", "error", err)
		}
	}()

	if cmd.Caller != d.p.AllowedCaller {
		logger.Warn(ctx, "Unauthorized command", "caller", cmd.Caller, "command", name)
		result = resultUnauthorized
		return "Unauthorized access"
	}

	h, ok := d.handlers[name]
	if !ok {
		result = resultUnknown
		return fmt.Sprintf("Unknown command: /%s. Send /help for usage.", name)
	}

	reply, result = h(ctx, cmd.Args)
	return reply
}

// metricLabel keeps the command label bounded by the handler set.
func (d *Dispatcher) metricLabel(name string) string {
	if _, ok := d.handlers[name]; ok {
		return name
	}
	return commandOther
}

// commandName strips the leading slash and any @botname suffix.
func commandName(raw string) string {
	name := strings.TrimPrefix(strings.TrimSpace(raw), "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
