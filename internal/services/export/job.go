package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"debtster_routes/internal/metrics"
	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/minio/minio-go/v7"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultSchedule = "0 20 * * *"

type RouteComputer interface {
	ComputeDailyRoute(ctx context.Context, collectorID int64, date time.Time) (models.Worklist, error)
}

type CollectorLister interface {
	CollectorsOn(ctx context.Context, date time.Time) ([]int64, error)
}

type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// RouteSheetJob writes tomorrow's route sheet for every assigned collector
// to object storage, as a paper fallback for collectors who lose their
// device or connection.
type RouteSheetJob struct {
	Routes     RouteComputer
	Collectors CollectorLister
	Objects    ObjectPutter
	Bucket     string
	Location   *time.Location
	Now        func() time.Time
	Log        *logrus.Logger

	cron *cron.Cron
}

func NewRouteSheetJob(routes RouteComputer, collectors CollectorLister, objects ObjectPutter, bucket string, loc *time.Location, log *logrus.Logger) *RouteSheetJob {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RouteSheetJob{Routes: routes, Collectors: collectors, Objects: objects, Bucket: bucket, Location: loc, Now: time.Now, Log: log}
}

// Start runs the export on a cron schedule in the route timezone.
func (j *RouteSheetJob) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithLocation(j.Location))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			j.Log.Warnf("[EXPORT][ERR] %v", err)
		}
	}); err != nil {
		return fmt.Errorf("export schedule %q: %w", schedule, err)
	}
	c.Start()
	j.cron = c
	j.Log.WithField("schedule", schedule).Info("[EXPORT] scheduled")
	return nil
}

// Stop waits for a running export to finish.
func (j *RouteSheetJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Run exports the next day's sheets and returns the keys written. One
// collector failing does not stop the others.
func (j *RouteSheetJob) Run(ctx context.Context) ([]string, error) {
	date := timeutil.AddDays(timeutil.Today(j.Now(), j.Location), 1)
	collectors, err := j.Collectors.CollectorsOn(ctx, date)
	if err != nil {
		return nil, ports.StoreError("collectors on", err)
	}

	var keys []string
	var errs []error
	for _, id := range collectors {
		key, err := j.ExportOne(ctx, id, date)
		metrics.RouteSheetsExported.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			j.Log.WithFields(logrus.Fields{"collector_id": id, "date": timeutil.FormatDate(date)}).Warnf("[EXPORT][ERR] %v", err)
			errs = append(errs, fmt.Errorf("collector %d: %w", id, err))
			continue
		}
		keys = append(keys, key)
	}
	j.Log.WithFields(logrus.Fields{
		"date":       timeutil.FormatDate(date),
		"collectors": len(collectors),
		"written":    len(keys),
	}).Info("[EXPORT][DONE]")
	return keys, errors.Join(errs...)
}

func (j *RouteSheetJob) ExportOne(ctx context.Context, collectorID int64, date time.Time) (string, error) {
	w, err := j.Routes.ComputeDailyRoute(ctx, collectorID, date)
	if err != nil {
		return "", err
	}
	data, err := RenderRouteSheet(w)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	key := SheetKey(collectorID, timeutil.FormatDate(date))
	if _, err := j.Objects.PutObject(ctx, j.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentTypeXLSX}); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}
