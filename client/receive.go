package client

import "lanchat/wire"

// receiveLoop owns the sole read access to the connection. It reads one
// opcode at a time; a SAY_DISPATCH is decoded and surfaced via onMessage,
// anything else is ignored for forward compatibility. EOF or any transport
// error ends the loop and, unless the client was closed explicitly, raises
// ConnectionLost.
func (c *Client) receiveLoop() error {
	for {
		op, err := wire.ReadOpcode(c.reader)
		if err != nil {
			c.onDisconnect()
			return nil
		}

		if op != wire.OpSayDispatch {
			// The protocol defines no other server->client opcode, so there
			// is no generic way to skip an unknown payload's length. A
			// conforming server never sends one; if it did, the stream
			// would desync from here, which the next read error surfaces.
			continue
		}

		name, msg, err := wire.ReadSayDispatch(c.reader)
		if err != nil {
			c.onDisconnect()
			return nil
		}
		if c.onMessage != nil {
			c.onMessage(name, msg)
		}
	}
}

// onDisconnect transitions an unexpectedly-terminated connection to closed
// and raises ConnectionLost, unless Close already claimed the transition.
func (c *Client) onDisconnect() {
	prev := state(c.state.Swap(int32(stateClosed)))
	if prev != stateConnected {
		return // Close() got there first; no ConnectionLost for an explicit close
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.onConnectionLost != nil {
		c.onConnectionLost()
	}
}
