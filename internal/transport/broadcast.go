package transport

import (
	"encoding/json"
	"net"

	"gungame/server"
	"gungame/server/internal/telemetry"
)

// Broadcaster marshals a message once and fans it out to a recipient set.
// Send failures are logged and counted, never propagated: UDP delivery is
// best-effort and a dead endpoint will be evicted by the inactivity sweep.
type Broadcaster struct {
	sender   Sender
	logger   telemetry.Logger
	counters *telemetry.Counters
}

func NewBroadcaster(sender Sender, logger telemetry.Logger, counters *telemetry.Counters) *Broadcaster {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	return &Broadcaster{sender: sender, logger: logger, counters: counters}
}

// Send marshals the message and writes it to a single endpoint.
func (b *Broadcaster) Send(message any, addr net.Addr) {
	data, err := json.Marshal(message)
	if err != nil {
		b.logger.Printf("broadcast: marshal %T: %v", message, err)
		return
	}
	b.write(data, addr)
}

// Broadcast delivers the message to every recipient.
func (b *Broadcaster) Broadcast(message any, recipients []server.Recipient) {
	if len(recipients) == 0 {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		b.logger.Printf("broadcast: marshal %T: %v", message, err)
		return
	}
	for _, rcpt := range recipients {
		b.write(data, rcpt.Addr)
	}
}

func (b *Broadcaster) write(data []byte, addr net.Addr) {
	if addr == nil {
		return
	}
	if _, err := b.sender.WriteTo(data, addr); err != nil {
		b.counters.Add("broadcast_failures", 1)
		b.logger.Printf("broadcast: write to %s: %v", addr, err)
		return
	}
	b.counters.Add("broadcasts_sent", 1)
}
