package server

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/juev/hledger-complete/internal/completion"
)

var emptyList = &protocol.CompletionList{Items: []protocol.CompletionItem{}}

func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return emptyList, nil
	}

	line, column := doc.text.Cursor(params.Position)
	res, err := s.engine.Load().Complete(s.dataFor(ctx, doc), line, column, completion.LineInData())
	if err != nil {
		s.logger.Debug("completion failed", zap.Error(err))
		return emptyList, nil
	}

	n := int(params.Position.Line)
	editRange := doc.text.RuneRange(n, res.Start, column)
	typed := string([]rune(line)[res.Start:column])

	items := make([]protocol.CompletionItem, len(res.Items))
	for i, item := range res.Items {
		items[i] = toProtocolItem(item, editRange, typed)
	}

	return &protocol.CompletionList{
		IsIncomplete: true, // prevents VSCode from caching and re-sorting by fuzzy matching
		Items:        items,
	}, nil
}

func toProtocolItem(item completion.Item, editRange protocol.Range, typed string) protocol.CompletionItem {
	text := item.Label
	if item.InsertText != "" {
		text = item.InsertText
	}
	format := protocol.InsertTextFormatPlainText
	if item.Snippet {
		format = protocol.InsertTextFormatSnippet
	}
	filter := typed
	if filter == "" {
		filter = item.Label
	}
	return protocol.CompletionItem{
		Label:            item.Label,
		Kind:             completionKind(item.Domain),
		Detail:           item.Detail,
		SortText:         item.SortKey,
		FilterText:       filter,
		InsertTextFormat: format,
		TextEdit: &protocol.TextEdit{
			Range:   editRange,
			NewText: text,
		},
	}
}

func completionKind(d completion.Domain) protocol.CompletionItemKind {
	switch d {
	case completion.DomainAccounts:
		return protocol.CompletionItemKindVariable
	case completion.DomainPayees:
		return protocol.CompletionItemKindClass
	case completion.DomainCommodities:
		return protocol.CompletionItemKindEnum
	case completion.DomainTags:
		return protocol.CompletionItemKindProperty
	case completion.DomainTagValues:
		return protocol.CompletionItemKindValue
	case completion.DomainDates:
		return protocol.CompletionItemKindConstant
	}
	return protocol.CompletionItemKindText
}
