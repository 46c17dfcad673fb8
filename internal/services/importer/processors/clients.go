package processors

import (
	"context"
	"strings"

	"debtster_routes/internal/models"
	importitems "debtster_routes/internal/repository/imports"
	"debtster_routes/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ClientsProcessor upserts clients. Columns: id (optional uuid), full_name,
// phone, address.
type ClientsProcessor struct {
	*BaseProcessor
}

func (p ClientsProcessor) Type() string { return string(importitems.ModelTypeClients) }

func (p *ClientsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := CheckDeps(p); err != nil {
		return err
	}
	modelType := p.Type()
	p.Log.WithField("rows", len(batch)).Info("[PROC][clients][START]")

	inserted := 0
	for _, m := range batch {
		v := func(key string) string { return strings.TrimSpace(m[key]) }

		id := v("id")
		if id != "" {
			if _, err := uuid.Parse(id); err != nil {
				p.fail(ctx, modelType, id, m, "bad id: "+err.Error())
				continue
			}
		} else {
			id = uuid.NewString()
		}

		fullName := strings.Join(strings.Fields(v("full_name")), " ")
		if fullName == "" {
			p.fail(ctx, modelType, id, m, "missing full_name")
			continue
		}
		last, first, middle := utils.ParseFullName(fullName)

		c, err := p.Store.CreateClient(ctx, models.Client{
			ID:         id,
			FullName:   fullName,
			LastName:   last,
			FirstName:  first,
			MiddleName: middle,
			Phone:      v("phone"),
			Address:    v("address"),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fail(ctx, modelType, id, m, err.Error())
			continue
		}
		inserted++
		p.done(ctx, modelType, c.ID, m)
	}

	p.Log.WithFields(logrus.Fields{"total": len(batch), "inserted": inserted}).Info("[PROC][clients][DONE]")
	return nil
}
