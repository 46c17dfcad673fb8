package ports

import "context"

type ctxKey string

const CtxImportRecordID ctxKey = "import_record_id"

// Processor consumes one batch of spreadsheet rows keyed by header name.
type Processor interface {
	Type() string
	ProcessBatch(ctx context.Context, batch []map[string]string) error
}

// ItemOutcome is the per-row result of an import.
type ItemOutcome struct {
	ImportRecordID string
	ModelType      string
	ModelID        string
	Payload        map[string]string
	Status         string
	Errors         string
}

// ItemLogger persists import row outcomes and the final record status.
type ItemLogger interface {
	LogItem(ctx context.Context, o ItemOutcome)
	MarkDone(ctx context.Context, importRecordID string) error
	MarkFailed(ctx context.Context, importRecordID, reason string) error
}

// ImportRecordID extracts the import record id placed on ctx by the importer.
func ImportRecordID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxImportRecordID).(string); ok {
		return v
	}
	return ""
}
