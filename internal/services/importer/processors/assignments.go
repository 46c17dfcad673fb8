package processors

import (
	"context"
	"strconv"
	"strings"

	"debtster_routes/internal/models"
	importitems "debtster_routes/internal/repository/imports"

	"github.com/sirupsen/logrus"
)

// AssignmentsProcessor hands routes to collectors. Columns: route_name,
// collector_id, seq and either date or weekdays + valid_from + valid_until.
type AssignmentsProcessor struct {
	*BaseProcessor
}

func (p AssignmentsProcessor) Type() string { return string(importitems.ModelTypeAssignments) }

func (p *AssignmentsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := CheckDeps(p); err != nil {
		return err
	}
	modelType := p.Type()
	today := p.today()
	p.Log.WithField("rows", len(batch)).Info("[PROC][assignments][START]")

	routeCache := make(map[string]string)
	inserted := 0
	for _, m := range batch {
		v := func(key string) string { return strings.TrimSpace(m[key]) }
		name := v("route_name")

		a, msg := parseAssignment(m)
		if msg != "" {
			p.fail(ctx, modelType, name, m, msg)
			continue
		}

		routeID, ok := routeCache[name]
		if !ok {
			route, err := p.Store.FindRouteByName(ctx, name)
			if err != nil {
				p.fail(ctx, modelType, name, m, err.Error())
				continue
			}
			routeID = route.ID
			routeCache[name] = routeID
		}
		a.RouteID = routeID

		created, err := p.Store.CreateAssignment(ctx, a, today)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fail(ctx, modelType, name, m, err.Error())
			continue
		}
		inserted++
		p.done(ctx, modelType, created.ID, m)
	}

	p.Log.WithFields(logrus.Fields{"total": len(batch), "inserted": inserted}).Info("[PROC][assignments][DONE]")
	return nil
}

func parseAssignment(m map[string]string) (models.RouteAssignment, string) {
	v := func(key string) string { return strings.TrimSpace(m[key]) }
	if v("route_name") == "" {
		return models.RouteAssignment{}, "missing route_name"
	}
	collectorID, err := strconv.ParseInt(v("collector_id"), 10, 64)
	if err != nil || collectorID <= 0 {
		return models.RouteAssignment{}, "bad collector_id"
	}
	seq, err := parseIntDefault(v("seq"), 0)
	if err != nil {
		return models.RouteAssignment{}, "bad seq"
	}
	a := models.RouteAssignment{CollectorID: collectorID, Seq: seq}

	if raw := v("date"); raw != "" {
		d := parseDate(raw)
		if d == nil {
			return models.RouteAssignment{}, "bad date"
		}
		a.Date = d
		return a, ""
	}

	days, ok := parseWeekdays(v("weekdays"))
	if !ok {
		return models.RouteAssignment{}, "date or weekdays required"
	}
	from, until := parseDate(v("valid_from")), parseDate(v("valid_until"))
	if from == nil || until == nil {
		return models.RouteAssignment{}, "bad valid_from/valid_until"
	}
	a.Recurrence = &models.Recurrence{Weekdays: days, From: *from, Until: *until}
	return a, ""
}
