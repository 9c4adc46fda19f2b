package dispatcher

import "go.lsp.dev/protocol"

// clientCapabilities declares the feature intents this daemon negotiates for.
// Servers answer with the subset they actually support; only that subset is
// ever bound.
func clientCapabilities() protocol.ClientCapabilities {
	return protocol.ClientCapabilities{
		Workspace: &protocol.WorkspaceClientCapabilities{
			Symbol: &protocol.WorkspaceSymbolClientCapabilities{
				DynamicRegistration: false,
			},
			WorkspaceFolders: true,
		},
		TextDocument: &protocol.TextDocumentClientCapabilities{
			Rename: &protocol.RenameClientCapabilities{
				DynamicRegistration: false,
				PrepareSupport:      true,
			},
			CodeAction: &protocol.CodeActionClientCapabilities{
				DynamicRegistration: false,
			},
			References: &protocol.ReferencesTextDocumentClientCapabilities{
				DynamicRegistration: false,
			},
			Definition: &protocol.DefinitionTextDocumentClientCapabilities{
				DynamicRegistration: false,
				LinkSupport:         true,
			},
			Declaration: &protocol.DeclarationTextDocumentClientCapabilities{
				DynamicRegistration: false,
				LinkSupport:         true,
			},
			Implementation: &protocol.ImplementationTextDocumentClientCapabilities{
				DynamicRegistration: false,
				LinkSupport:         true,
			},
			TypeDefinition: &protocol.TypeDefinitionTextDocumentClientCapabilities{
				DynamicRegistration: false,
				LinkSupport:         true,
			},
			DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
				DynamicRegistration:               false,
				HierarchicalDocumentSymbolSupport: true,
			},
			PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
				RelatedInformation: true,
			},
		},
	}
}
