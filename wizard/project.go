package wizard

import (
	"github.com/propdesk/formflow/record"
	"github.com/propdesk/formflow/validate"
)

// Project returns the wizard for development projects: basics, location,
// construction milestones, media. The location and developer fields are kept
// flat in the form and regrouped into nested sub-objects for the API.
func Project() *Definition {
	developerGroup := validate.AnyPresent("developerName", "developerEmail")

	return &Definition{
		Kind:       "project",
		CreatePath: "/api/projects",
		UpdatePath: "/api/projects/%s",
		Steps: []Step{
			{
				ID:             "basics",
				Title:          "Basics",
				RequiredFields: []string{"name", "status"},
				Rules: []validate.Rule{
					validate.RequiredString("name", "Project name"),
					validate.RequiredString("status", "Status"),
					validate.NumberInRange("totalUnits", "Total units", 1, 100000),
				},
			},
			{
				ID:             "location",
				Title:          "Location",
				RequiredFields: []string{"city", "community"},
				Rules: []validate.Rule{
					validate.RequiredString("city", "City"),
					validate.RequiredString("community", "Community"),
					validate.NumberInRange("latitude", "Latitude", -90, 90),
					validate.NumberInRange("longitude", "Longitude", -180, 180),
				},
			},
			{
				ID:    "milestones",
				Title: "Construction milestones",
				Rules: []validate.Rule{
					validate.EachRow("milestones", validate.Rules(
						validate.RequiredString("name", "Milestone name"),
						validate.RequiredNumber("percent", "Milestone percent", 0, 100),
					)),
				},
				Advisories: []validate.Advisory{
					validate.PercentSum("milestones", "percent", "Milestone percentages", 100),
				},
			},
			{
				ID:    "media",
				Title: "Media & contacts",
				Rules: []validate.Rule{
					validate.URL("brochureUrl", "Brochure URL"),
					validate.When(developerGroup, validate.RequiredString("developerName", "Developer name")),
					validate.Email("developerEmail", "Developer email"),
					validate.Phone("developerPhone", "Developer phone"),
				},
			},
		},
		Defaults: record.Record{
			"status":     "planned",
			"milestones": []any{},
		},
		Transform:  projectPayload,
		FromEntity: projectRecord,
	}
}

// projectPayload regroups the flat lookup fields into the nested location and
// developer sub-objects the API expects.
func projectPayload(r record.Record) record.Record {
	out := r.Clone()
	out = moveField(out, "city", "location.city")
	out = moveField(out, "community", "location.community")
	out = moveField(out, "latitude", "location.latitude")
	out = moveField(out, "longitude", "location.longitude")
	out = moveField(out, "developerName", "developer.name")
	out = moveField(out, "developerEmail", "developer.email")
	out = moveField(out, "developerPhone", "developer.phone")
	return out
}

// projectRecord flattens the nested entity shape back into the form's flat
// fields.
func projectRecord(entity map[string]any) record.Record {
	out := record.Record(entity).Clone()
	out = moveField(out, "location.city", "city")
	out = moveField(out, "location.community", "community")
	out = moveField(out, "location.latitude", "latitude")
	out = moveField(out, "location.longitude", "longitude")
	out = moveField(out, "developer.name", "developerName")
	out = moveField(out, "developer.email", "developerEmail")
	out = moveField(out, "developer.phone", "developerPhone")
	delete(out, "location")
	delete(out, "developer")
	return out
}

func moveField(r record.Record, from, to string) record.Record {
	v, ok := r.Get(from)
	if !ok || v == nil {
		return r
	}
	out := r.Set(to, v)
	return out.Delete(from)
}
