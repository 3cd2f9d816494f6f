package server

import (
	"context"
	"fmt"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// Handler routes the LSP methods the server implements; everything else
// is answered with MethodNotFound.
func Handler(s *Server) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("request", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			var params protocol.InitializeParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			resp, err := s.Initialize(ctx, &params)
			return reply(ctx, resp, err)

		case protocol.MethodInitialized:
			var params protocol.InitializedParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			return reply(ctx, nil, s.Initialized(ctx, &params))

		case protocol.MethodShutdown:
			return reply(ctx, nil, s.Shutdown(ctx))

		case protocol.MethodExit:
			return reply(ctx, nil, s.Exit(ctx))

		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			return reply(ctx, nil, s.DidOpen(ctx, &params))

		case protocol.MethodTextDocumentDidChange:
			var params protocol.DidChangeTextDocumentParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			return reply(ctx, nil, s.DidChange(ctx, &params))

		case protocol.MethodTextDocumentDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			return reply(ctx, nil, s.DidClose(ctx, &params))

		case protocol.MethodTextDocumentDidSave:
			var params protocol.DidSaveTextDocumentParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			return reply(ctx, nil, s.DidSave(ctx, &params))

		case protocol.MethodTextDocumentCompletion:
			var params protocol.CompletionParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			resp, err := s.Completion(ctx, &params)
			return reply(ctx, resp, err)

		case protocol.MethodWorkspaceDidChangeConfiguration:
			var params protocol.DidChangeConfigurationParams
			if err := decode(req, &params); err != nil {
				return replyParseError(ctx, reply, err)
			}
			return reply(ctx, nil, s.DidChangeConfiguration(ctx, &params))
		}

		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// decode accepts absent params as the zero value.
func decode(req jsonrpc2.Request, v any) error {
	raw := req.Params()
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func replyParseError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrParse, err))
}
