// Package bus implements the in-process message bus: per-agent mailboxes
// with unicast send, broadcast fan-out, non-destructive receive,
// acknowledge-to-remove and reply construction. Mailboxes are created lazily
// on first delivery and live for the process lifetime.
package bus
