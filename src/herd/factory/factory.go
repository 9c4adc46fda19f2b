package factory

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/entity"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/uri"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC request containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), method, params)
	return req
}

// ServerDescriptor is a factory for a valid descriptor with the given id and filetypes.
func ServerDescriptor(id string, filetypes ...string) *entity.ServerDescriptor {
	return &entity.ServerDescriptor{
		ID:          id,
		Command:     []string{id, "--stdio"},
		Filetypes:   filetypes,
		RootMarkers: []string{".git"},
	}
}

// DocumentSession is a factory for an active session over the given document and descriptor.
func DocumentSession(descriptorID string, document uri.URI, root string) *entity.DocumentSession {
	return &entity.DocumentSession{
		UUID:         UUID(),
		Document:     document,
		Filetype:     "go",
		DescriptorID: descriptorID,
		Root:         root,
		State:        entity.StateActive,
	}
}

// CapabilitySet is a factory for a capability set with the given features enabled.
func CapabilitySet(features ...entity.Feature) entity.CapabilitySet {
	set := make(entity.CapabilitySet, len(features))
	for _, f := range features {
		set[f] = true
	}
	return set
}

// DocumentURI is a factory for a file URI under a fake workspace.
func DocumentURI(name string) uri.URI {
	return uri.File(fmt.Sprintf("/workspace/project/%s", name))
}
