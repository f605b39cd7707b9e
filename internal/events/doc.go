// Package events carries notifications about committed card state changes.
//
// Engines emit an Event after a transaction commits; handlers registered on an
// EventEmitter (for example the NATS publisher) forward them to interested
// parties. A failing handler never undoes the change the event describes.
package events
