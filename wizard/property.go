package wizard

import (
	"github.com/propdesk/formflow/record"
	"github.com/propdesk/formflow/validate"
)

// Property returns the wizard for property listings: basics, location,
// pricing, contacts. The submit payload flattens price.total into price; the
// edit-mode mapping reverses it.
func Property() *Definition {
	agentGroup := validate.AnyPresent("agent.name", "agent.email", "agent.phone")
	paymentPlan := validate.FlagSet("hasPaymentPlan")

	return &Definition{
		Kind:       "property",
		CreatePath: "/api/properties",
		UpdatePath: "/api/properties/%s",
		Steps: []Step{
			{
				ID:             "basics",
				Title:          "Basics",
				RequiredFields: []string{"title", "propertyType", "bedrooms", "bathrooms"},
				Rules: []validate.Rule{
					validate.RequiredString("title", "Title"),
					validate.RequiredString("propertyType", "Property type"),
					validate.RequiredNumber("bedrooms", "Bedrooms", 1, 50),
					validate.RequiredNumber("bathrooms", "Bathrooms", 0, 50),
					validate.NumberInRange("floorLevel", "Floor level", -5, 200),
					validate.Area("area", "Area"),
				},
			},
			{
				ID:             "location",
				Title:          "Location",
				RequiredFields: []string{"location.address", "location.city"},
				Rules: []validate.Rule{
					validate.RequiredString("location.address", "Address"),
					validate.RequiredString("location.city", "City"),
					validate.NumberInRange("location.latitude", "Latitude", -90, 90),
					validate.NumberInRange("location.longitude", "Longitude", -180, 180),
				},
			},
			{
				ID:             "pricing",
				Title:          "Pricing",
				RequiredFields: []string{"price.total"},
				Rules: []validate.Rule{
					validate.RequiredNumber("price.total", "Price", 0, 1e12),
					validate.When(paymentPlan, validate.RequiredNumber("paymentPlan.downPercent", "Down payment percent", 0, 100)),
					validate.When(paymentPlan, validate.RequiredNumber("paymentPlan.months", "Payment plan months", 1, 360)),
				},
			},
			{
				ID:    "contacts",
				Title: "Contacts",
				Rules: []validate.Rule{
					validate.When(agentGroup, validate.RequiredString("agent.name", "Agent name")),
					validate.When(agentGroup, validate.RequiredString("agent.email", "Agent email")),
					validate.When(agentGroup, validate.RequiredString("agent.phone", "Agent phone")),
					validate.Email("agent.email", "Agent email"),
					validate.Phone("agent.phone", "Agent phone"),
				},
			},
		},
		Defaults: record.Record{
			"propertyType":   "",
			"hasPaymentPlan": false,
		},
		Transform:  propertyPayload,
		FromEntity: propertyRecord,
	}
}

// propertyPayload flattens price.total into the top-level price the API
// expects and drops the nested price group.
func propertyPayload(r record.Record) record.Record {
	out := r.Clone()
	if total, ok := out.NumberAt("price.total"); ok {
		out["price"] = total
	} else if _, exists := out["price"]; exists {
		if _, isMap := out["price"].(map[string]any); isMap {
			delete(out, "price")
		}
	}
	if currency, ok := r.StringAt("price.currency"); ok && currency != "" {
		out["currency"] = currency
	}
	return out
}

// propertyRecord regroups the flat entity price back under price.total for
// the wizard form.
func propertyRecord(entity map[string]any) record.Record {
	out := record.Record(entity).Clone()
	if price, ok := out.NumberAt("price"); ok {
		out = out.Set("price.total", price)
	}
	if currency, ok := out.StringAt("currency"); ok && currency != "" {
		out = out.Set("price.currency", currency)
		out = out.Delete("currency")
	}
	return out
}
