// Package cost turns material quantities and price quotes into a priced
// breakdown. Money math runs on decimals and only converts to float at the
// model boundary, so line totals always sum exactly to the subtotal.
package cost

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/takeoff-cli/internal/model"
)

// Aggregator combines quantities with quotes into a CostBreakdown.
type Aggregator interface {
	Aggregate(quantities []model.QuantityResult, quotes []model.PriceQuote, taxRate float64) (model.CostBreakdown, error)
}

// DecimalAggregator is the standard Aggregator. Names for line items come
// from the material catalog when one is supplied.
type DecimalAggregator struct {
	catalog *model.Catalog
}

// NewAggregator builds an aggregator; catalog may be nil.
func NewAggregator(catalog *model.Catalog) *DecimalAggregator {
	return &DecimalAggregator{catalog: catalog}
}

// Aggregate produces one line item per quantity in input order. A quantity
// with no matching quote is priced at zero so the omission is visible in
// the report rather than silently dropped. Line totals are rounded to
// cents before summing.
func (a *DecimalAggregator) Aggregate(quantities []model.QuantityResult, quotes []model.PriceQuote, taxRate float64) (model.CostBreakdown, error) {
	byMaterial := make(map[string]model.PriceQuote, len(quotes))
	for _, q := range quotes {
		byMaterial[q.MaterialID] = q
	}

	subtotal := decimal.Zero
	items := make([]model.LineItem, 0, len(quantities))
	for _, qty := range quantities {
		item := model.LineItem{
			MaterialID: qty.MaterialID,
			Name:       a.materialName(qty.MaterialID),
			Quantity:   qty.Quantity,
			Unit:       qty.Unit,
		}
		if quote, ok := byMaterial[qty.MaterialID]; ok {
			unit := decimal.NewFromFloat(quote.UnitPrice)
			total := unit.Mul(decimal.NewFromFloat(qty.Quantity)).Round(2)
			item.UnitPrice = quote.UnitPrice
			item.LineTotal, _ = total.Float64()
			item.PriceSource = quote.Source
			subtotal = subtotal.Add(total)
		}
		items = append(items, item)
	}

	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Round(2)
	total := subtotal.Add(tax)

	sub, _ := subtotal.Float64()
	taxF, _ := tax.Float64()
	totalF, _ := total.Float64()

	return model.CostBreakdown{
		LineItems: items,
		Subtotal:  sub,
		TaxRate:   taxRate,
		Tax:       taxF,
		Total:     totalF,
	}, nil
}

func (a *DecimalAggregator) materialName(id string) string {
	if a.catalog == nil {
		return id
	}
	if m, ok := a.catalog.Get(id); ok {
		return m.Name
	}
	return id
}
