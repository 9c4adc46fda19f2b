package entity

import (
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"
)

// Feature identifies one user-invocable behavior that may be gated on
// negotiated server support.
type Feature string

const (
	// FeatureRename renames the symbol under the cursor across the workspace.
	FeatureRename Feature = "rename"
	// FeatureCodeAction lists code actions available at the cursor.
	FeatureCodeAction Feature = "code-action"
	// FeatureReferences finds all references to the symbol under the cursor.
	FeatureReferences Feature = "references"
	// FeatureDefinition jumps to the definition of the symbol under the cursor.
	FeatureDefinition Feature = "definition"
	// FeatureDeclaration jumps to the declaration of the symbol under the cursor.
	FeatureDeclaration Feature = "declaration"
	// FeatureImplementation jumps to implementations of the symbol under the cursor.
	FeatureImplementation Feature = "implementation"
	// FeatureTypeDefinition jumps to the type definition of the symbol under the cursor.
	FeatureTypeDefinition Feature = "type-definition"
	// FeatureDocumentSymbol lists symbols in the current document.
	FeatureDocumentSymbol Feature = "document-symbol"
	// FeatureWorkspaceSymbol lists symbols across the workspace.
	FeatureWorkspaceSymbol Feature = "workspace-symbol"
	// FeatureInlayHint toggles inline type and parameter hints.
	FeatureInlayHint Feature = "inlay-hint"
	// FeatureDocumentHighlight highlights other occurrences of the symbol under the cursor.
	FeatureDocumentHighlight Feature = "document-highlight"
)

// _providerKeys maps each feature to its provider field in the server
// capabilities document.
var _providerKeys = map[Feature]string{
	FeatureRename:            "renameProvider",
	FeatureCodeAction:        "codeActionProvider",
	FeatureReferences:        "referencesProvider",
	FeatureDefinition:        "definitionProvider",
	FeatureDeclaration:       "declarationProvider",
	FeatureImplementation:    "implementationProvider",
	FeatureTypeDefinition:    "typeDefinitionProvider",
	FeatureDocumentSymbol:    "documentSymbolProvider",
	FeatureWorkspaceSymbol:   "workspaceSymbolProvider",
	FeatureInlayHint:         "inlayHintProvider",
	FeatureDocumentHighlight: "documentHighlightProvider",
}

// CapabilitySet records which features a server confirmed support for during
// negotiation. Read-only after derivation.
type CapabilitySet map[Feature]bool

// Supports reports whether the server confirmed support for the given feature.
func (c CapabilitySet) Supports(f Feature) bool {
	return c[f]
}

// NewCapabilitySet derives the negotiated feature set from a server's
// capability document. Provider fields arrive in one of two shapes depending
// on server generation: a plain boolean, or a structured options object. Both
// shapes are resolved here, once per negotiation; the raw document is probed
// so that providers newer than the client library's typed model are honored.
func NewCapabilitySet(caps protocol.ServerCapabilities) (CapabilitySet, error) {
	raw, err := json.Marshal(caps)
	if err != nil {
		return nil, fmt.Errorf("encoding server capabilities: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding server capabilities: %w", err)
	}

	set := make(CapabilitySet, len(_providerKeys))
	for feature, key := range _providerKeys {
		set[feature] = providerEnabled(doc[key])
	}
	return set, nil
}

// WithOverrides returns a copy of the set with the descriptor's capability
// overrides applied.
func (c CapabilitySet) WithOverrides(overrides map[Feature]bool) CapabilitySet {
	if len(overrides) == 0 {
		return c
	}
	out := make(CapabilitySet, len(c))
	for f, v := range c {
		out[f] = v
	}
	for f, v := range overrides {
		out[f] = v
	}
	return out
}

// providerEnabled interprets a single provider field. Absent or false means
// no support; true or any options object means support.
func providerEnabled(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}
