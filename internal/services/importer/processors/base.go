package processors

import (
	"context"
	"errors"
	"time"

	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/sirupsen/logrus"
)

const (
	statusDone   = "done"
	statusFailed = "failed"
)

// BaseProcessor carries what every processor needs: the admin store it
// writes to and the sink for per-row outcomes.
type BaseProcessor struct {
	Store    ports.AdminStore
	Items    ports.ItemLogger
	Log      *logrus.Logger
	Location *time.Location
	Now      func() time.Time
}

func NewBaseProcessor(store ports.AdminStore, items ports.ItemLogger, loc *time.Location, log *logrus.Logger) *BaseProcessor {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BaseProcessor{Store: store, Items: items, Log: log, Location: loc, Now: time.Now}
}

type DepProvider interface {
	GetStore() ports.AdminStore
	GetItems() ports.ItemLogger
}

func (b *BaseProcessor) GetStore() ports.AdminStore { return b.Store }
func (b *BaseProcessor) GetItems() ports.ItemLogger { return b.Items }

func CheckDeps[T DepProvider](p T) error {
	if p.GetStore() == nil {
		return errors.New("store not available")
	}
	if p.GetItems() == nil {
		return errors.New("import item log not available")
	}
	return nil
}

func (b *BaseProcessor) today() time.Time {
	return timeutil.Today(b.Now(), b.Location)
}

func (b *BaseProcessor) done(ctx context.Context, modelType, id string, row map[string]string) {
	b.Items.LogItem(ctx, ports.ItemOutcome{
		ImportRecordID: ports.ImportRecordID(ctx),
		ModelType:      modelType,
		ModelID:        id,
		Payload:        row,
		Status:         statusDone,
	})
}

func (b *BaseProcessor) fail(ctx context.Context, modelType, id string, row map[string]string, msg string) {
	b.Log.WithFields(logrus.Fields{
		"model_type":       modelType,
		"model_id":         id,
		"import_record_id": ports.ImportRecordID(ctx),
	}).Debugf("[PROC][%s][SKIP] %s", modelType, msg)
	b.Items.LogItem(ctx, ports.ItemOutcome{
		ImportRecordID: ports.ImportRecordID(ctx),
		ModelType:      modelType,
		ModelID:        id,
		Payload:        row,
		Status:         statusFailed,
		Errors:         msg,
	})
}
