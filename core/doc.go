// Package core holds the session renewal contracts and the authenticated
// request client. Transports and credential stores live in sibling packages
// and depend on core, never the other way around.
package core
