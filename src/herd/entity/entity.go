// Package entity contains the domain logic for the herd-daemon service.
package entity

import (
	"github.com/gofrs/uuid"
	"go.lsp.dev/uri"
)

type keyType string

// SessionContextKey indicates the key to be used to identify the session UUID in the context.
const SessionContextKey keyType = "SessionUUID"

// ServersConfigKey is the config key that contains the language server descriptor table.
const ServersConfigKey = "servers"

// ServerDescriptor is the static declaration of one language server: how to
// start it, which filetypes it applies to, and what to hand it at initialization.
// Descriptors are constructed once by the registry and never mutated afterward.
type ServerDescriptor struct {
	// ID uniquely identifies the server within the registry.
	ID string `yaml:"id"`
	// Command is the argv used to start the server. Defaults to {ID} when empty.
	Command []string `yaml:"command"`
	// Filetypes this server attaches to.
	Filetypes []string `yaml:"filetypes"`
	// RootMarkers are directory entries that mark a project root for this server.
	RootMarkers []string `yaml:"rootMarkers"`
	// Package is the tool identifier handed to the installer. Defaults to ID when empty.
	Package string `yaml:"package"`
	// CapabilityOverrides force individual features on or off regardless of negotiation.
	CapabilityOverrides map[Feature]bool `yaml:"capabilityOverrides"`
	// Settings is an opaque document passed through as initializationOptions.
	Settings map[string]interface{} `yaml:"settings"`
}

// Argv returns the command used to launch this server.
func (d *ServerDescriptor) Argv() []string {
	if len(d.Command) > 0 {
		return d.Command
	}
	return []string{d.ID}
}

// ToolID returns the identifier handed to the package manager for this server.
func (d *ServerDescriptor) ToolID() string {
	if d.Package != "" {
		return d.Package
	}
	return d.ID
}

// AppliesTo reports whether this descriptor matches the given filetype.
func (d *ServerDescriptor) AppliesTo(filetype string) bool {
	for _, ft := range d.Filetypes {
		if ft == filetype {
			return true
		}
	}
	return false
}

// SessionState tracks a document session through its lifecycle.
type SessionState int

const (
	// StateStarting indicates the server process is being spawned or reused.
	StateStarting SessionState = iota
	// StateNegotiating indicates the initialize request is in flight.
	StateNegotiating
	// StateActive indicates capabilities have been received and features bound.
	StateActive
	// StateDetached is terminal: the document closed or the server went away.
	StateDetached
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateDetached:
		return "detached"
	}
	return "unknown"
}

// DocumentSession is a (document, attached-server) pairing. Created on attach,
// destroyed on detach. Capabilities are nil until negotiation completes.
type DocumentSession struct {
	UUID         uuid.UUID     `json:"uuid" zap:"uuid"`
	Document     uri.URI       `json:"document" zap:"document"`
	Filetype     string        `json:"filetype" zap:"filetype"`
	DescriptorID string        `json:"descriptorId" zap:"descriptorId"`
	Root         string        `json:"root" zap:"root"`
	State        SessionState  `json:"state" zap:"state"`
	Capabilities CapabilitySet `json:"-" zap:"-"`
}

// ProcessKey identifies a running server process. Sessions sharing a key share
// one process; differing roots spawn independent processes.
type ProcessKey struct {
	DescriptorID string
	Root         string
}
