package processors

import (
	"context"
	"errors"
	"strings"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	importitems "debtster_routes/internal/repository/imports"
	"debtster_routes/internal/services/schedule"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DebtsProcessor creates debts and generates their schedules. Columns:
// client_id, number, principal, surcharge, cadence, every,
// installment_count, start_on. A number already on file is skipped.
type DebtsProcessor struct {
	*BaseProcessor
}

func (p DebtsProcessor) Type() string { return string(importitems.ModelTypeDebts) }

func (p *DebtsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := CheckDeps(p); err != nil {
		return err
	}
	modelType := p.Type()
	p.Log.WithField("rows", len(batch)).Info("[PROC][debts][START]")

	clientCache := make(map[string]bool)
	inserted := 0
	for _, m := range batch {
		v := func(key string) string { return strings.TrimSpace(m[key]) }
		id := uuid.NewString()

		number := v("number")
		if number == "" {
			p.fail(ctx, modelType, id, m, "missing number")
			continue
		}
		if _, err := p.Store.FindDebtByNumber(ctx, number); err == nil {
			p.fail(ctx, modelType, id, m, "debt already exists: "+number)
			continue
		} else if !errors.Is(err, ports.ErrNotFound) {
			return ports.StoreError("find debt", err)
		}

		clientID := v("client_id")
		known, cached := clientCache[clientID]
		if !cached {
			_, err := p.Store.FindClient(ctx, clientID)
			if err != nil && !errors.Is(err, ports.ErrNotFound) {
				return ports.StoreError("find client", err)
			}
			known = err == nil
			clientCache[clientID] = known
		}
		if !known {
			p.fail(ctx, modelType, id, m, "client not found: "+clientID)
			continue
		}

		d, msg := p.parseDebt(m)
		if msg != "" {
			p.fail(ctx, modelType, id, m, msg)
			continue
		}
		d.ID = id
		d.ClientID = clientID
		d.Number = number

		items, err := schedule.Generate(d)
		if err == nil {
			err = schedule.Validate(d, items)
		}
		if err != nil {
			p.fail(ctx, modelType, id, m, err.Error())
			continue
		}
		if _, err := p.Store.CreateDebt(ctx, d, items); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fail(ctx, modelType, id, m, err.Error())
			continue
		}
		inserted++
		p.done(ctx, modelType, id, m)
	}

	p.Log.WithFields(logrus.Fields{"total": len(batch), "inserted": inserted}).Info("[PROC][debts][DONE]")
	return nil
}

func (p *DebtsProcessor) parseDebt(m map[string]string) (models.Debt, string) {
	principal, err := parseAmount(m["principal"])
	if err != nil || !principal.IsPositive() {
		return models.Debt{}, "bad principal"
	}
	surcharge, err := parseAmount(m["surcharge"])
	if err != nil || surcharge.IsNegative() {
		return models.Debt{}, "bad surcharge"
	}
	cadence, err := models.ParseCadence(firstNonEmpty(m["cadence"], string(models.CadenceDaily)))
	if err != nil {
		return models.Debt{}, err.Error()
	}
	every, err := parseIntDefault(m["every"], 1)
	if err != nil || every <= 0 {
		return models.Debt{}, "bad every"
	}
	count, err := parseIntDefault(m["installment_count"], 0)
	if err != nil || count <= 0 {
		return models.Debt{}, "bad installment_count"
	}
	start := parseDate(m["start_on"])
	if start == nil {
		return models.Debt{}, "bad start_on"
	}
	return models.Debt{
		Principal:        principal.Round(2),
		Surcharge:        surcharge.Round(2),
		Cadence:          cadence,
		Every:            every,
		InstallmentCount: count,
		StartOn:          *start,
	}, ""
}
