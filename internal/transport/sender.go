// Package transport delivers domain results to bound client endpoints and
// adapts the REST control plane onto the lobby operations.
package transport

import (
	"fmt"
	"net"
)

// Sender writes one datagram to one endpoint. The UDP socket satisfies it
// directly; the websocket gateway satisfies it for virtual addresses.
type Sender interface {
	WriteTo(data []byte, addr net.Addr) (int, error)
}

// SenderFunc adapts functions into the Sender interface.
type SenderFunc func(data []byte, addr net.Addr) (int, error)

func (f SenderFunc) WriteTo(data []byte, addr net.Addr) (int, error) {
	return f(data, addr)
}

// Router picks a sender by the address network. Players bound over UDP and
// players bound through the websocket gateway live in the same broadcast
// sets; the router keeps that split invisible to the domain.
type Router struct {
	senders map[string]Sender
	def     Sender
}

// NewRouter builds a router with a default sender for unmatched networks.
func NewRouter(def Sender) *Router {
	return &Router{senders: make(map[string]Sender), def: def}
}

// Register routes addresses whose Network() equals network to the sender.
func (r *Router) Register(network string, sender Sender) {
	r.senders[network] = sender
}

func (r *Router) WriteTo(data []byte, addr net.Addr) (int, error) {
	if addr == nil {
		return 0, fmt.Errorf("transport: nil address")
	}
	if sender, ok := r.senders[addr.Network()]; ok {
		return sender.WriteTo(data, addr)
	}
	if r.def == nil {
		return 0, fmt.Errorf("transport: no sender for network %q", addr.Network())
	}
	return r.def.WriteTo(data, addr)
}
