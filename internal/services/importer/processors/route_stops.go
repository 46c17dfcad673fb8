package processors

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	importitems "debtster_routes/internal/repository/imports"

	"github.com/sirupsen/logrus"
)

// RouteStopsProcessor places clients on routes. Columns: route_name, zone,
// client_id, position. Routes are created on first sight; rows for a client
// already on the route update its position.
type RouteStopsProcessor struct {
	*BaseProcessor
}

func (p RouteStopsProcessor) Type() string { return string(importitems.ModelTypeRouteStops) }

type stopRow struct {
	stop models.RouteStop
	row  map[string]string
}

func (p *RouteStopsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := CheckDeps(p); err != nil {
		return err
	}
	modelType := p.Type()
	p.Log.WithField("rows", len(batch)).Info("[PROC][route_stops][START]")

	var order []string
	byRoute := make(map[string][]stopRow)
	zones := make(map[string]string)
	for _, m := range batch {
		v := func(key string) string { return strings.TrimSpace(m[key]) }
		name, clientID := v("route_name"), v("client_id")
		if name == "" {
			p.fail(ctx, modelType, clientID, m, "missing route_name")
			continue
		}
		if clientID == "" {
			p.fail(ctx, modelType, name, m, "missing client_id")
			continue
		}
		st := models.RouteStop{ClientID: clientID}
		if raw := v("position"); raw != "" {
			pos, err := strconv.Atoi(raw)
			if err != nil || pos < 0 {
				p.fail(ctx, modelType, clientID, m, "bad position")
				continue
			}
			st.Position = &pos
		}
		if _, err := p.Store.FindClient(ctx, clientID); err != nil {
			if !errors.Is(err, ports.ErrNotFound) {
				return ports.StoreError("find client", err)
			}
			p.fail(ctx, modelType, clientID, m, "client not found: "+clientID)
			continue
		}
		if _, seen := byRoute[name]; !seen {
			order = append(order, name)
		}
		byRoute[name] = append(byRoute[name], stopRow{stop: st, row: m})
		if z := v("zone"); z != "" {
			zones[name] = z
		}
	}

	placed := 0
	for _, name := range order {
		rows := byRoute[name]
		if err := p.placeStops(ctx, name, zones[name], rows); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			for _, r := range rows {
				p.fail(ctx, modelType, r.stop.ClientID, r.row, err.Error())
			}
			continue
		}
		for _, r := range rows {
			p.done(ctx, modelType, r.stop.ClientID, r.row)
		}
		placed += len(rows)
	}

	p.Log.WithFields(logrus.Fields{"total": len(batch), "routes": len(order), "placed": placed}).Info("[PROC][route_stops][DONE]")
	return nil
}

func (p *RouteStopsProcessor) placeStops(ctx context.Context, name, zone string, rows []stopRow) error {
	route, err := p.Store.FindRouteByName(ctx, name)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		route, err = p.Store.CreateRoute(ctx, models.Route{Name: name, Zone: zone})
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	stops := append([]models.RouteStop(nil), route.Stops...)
	index := make(map[string]int, len(stops))
	for i, s := range stops {
		index[s.ClientID] = i
	}
	for _, r := range rows {
		if i, ok := index[r.stop.ClientID]; ok {
			stops[i].Position = r.stop.Position
			continue
		}
		index[r.stop.ClientID] = len(stops)
		stops = append(stops, r.stop)
	}
	return p.Store.ReplaceRouteStops(ctx, route.ID, stops)
}
