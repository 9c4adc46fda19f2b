package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/lspherd/lspherd/src/herd/entity"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// RequestToDidOpenTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidOpenTextDocumentParams.
func RequestToDidOpenTextDocumentParams(req jsonrpc2.Request) (*protocol.DidOpenTextDocumentParams, error) {
	params := protocol.DidOpenTextDocumentParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToDidCloseTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidCloseTextDocumentParams.
func RequestToDidCloseTextDocumentParams(req jsonrpc2.Request) (*protocol.DidCloseTextDocumentParams, error) {
	params := protocol.DidCloseTextDocumentParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToInitializeParams maps the parameters from a jsonrpc2.Request into protocol.InitializeParams.
func RequestToInitializeParams(req jsonrpc2.Request) (*protocol.InitializeParams, error) {
	params := protocol.InitializeParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToExecuteCommandParams maps the parameters from a jsonrpc2.Request into protocol.ExecuteCommandParams.
// Arguments are re-encoded to raw JSON so each command can unmarshal its own shape.
func RequestToExecuteCommandParams(req jsonrpc2.Request) (*protocol.ExecuteCommandParams, error) {
	params := protocol.ExecuteCommandParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}

	rawArgs := []interface{}{}
	for _, arg := range params.Arguments {
		rawArg, err := json.Marshal(arg)
		if err != nil {
			return nil, wrapErrParse(err)
		}
		rawArgs = append(rawArgs, rawArg)
	}

	params.Arguments = rawArgs
	return &params, nil
}

// InvokeArgs is the argument shape of the feature invocation command.
type InvokeArgs struct {
	Feature  entity.Feature `json:"feature"`
	Document uri.URI        `json:"uri"`
}

// DocumentArgs is the argument shape of commands scoped to a single document.
type DocumentArgs struct {
	Document uri.URI `json:"uri"`
}

// CommandArgumentToInvokeArgs decodes a single raw command argument into InvokeArgs.
func CommandArgumentToInvokeArgs(arg interface{}) (*InvokeArgs, error) {
	out := InvokeArgs{}
	if err := unmarshalArgument(arg, &out); err != nil {
		return nil, err
	}
	if out.Feature == "" || out.Document == "" {
		return nil, wrapErrInvalidParams(fmt.Errorf("feature and uri are required"))
	}
	return &out, nil
}

// CommandArgumentToDocumentArgs decodes a single raw command argument into DocumentArgs.
func CommandArgumentToDocumentArgs(arg interface{}) (*DocumentArgs, error) {
	out := DocumentArgs{}
	if err := unmarshalArgument(arg, &out); err != nil {
		return nil, err
	}
	if out.Document == "" {
		return nil, wrapErrInvalidParams(fmt.Errorf("uri is required"))
	}
	return &out, nil
}

func unmarshalArgument(arg interface{}, dst interface{}) error {
	raw, ok := arg.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(arg); err != nil {
			return wrapErrParse(err)
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return wrapErrParse(err)
	}
	return nil
}

func wrapErrParse(err error) error {
	return fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err)
}

func wrapErrInvalidParams(err error) error {
	return fmt.Errorf("%s: %w", jsonrpc2.ErrInvalidParams, err)
}
