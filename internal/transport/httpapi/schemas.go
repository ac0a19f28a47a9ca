// internal/transport/httpapi/schemas.go
package httpapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "origination-intake/internal/common/errors"
	"origination-intake/internal/models"
)

// Patch schemas per merge section. Every schema is permissive about
// unknown keys (the store shallow-merges whatever the form sends) but
// pins the types of the keys the core reads.
var sectionSchemas = map[string]map[string]interface{}{
	models.SectionPersonal: {
		"type": "object",
		"properties": map[string]interface{}{
			"firstName": map[string]interface{}{"type": "string"},
			"lastName":  map[string]interface{}{"type": "string"},
			"email":     map[string]interface{}{"type": "string"},
			"phone":     map[string]interface{}{"type": "string"},
		},
	},
	models.SectionCompany: {
		"type": "object",
		"properties": map[string]interface{}{
			"legalName":           map[string]interface{}{"type": "string"},
			"dba":                 map[string]interface{}{"type": "string"},
			"yearsInBusinessBand": map[string]interface{}{"type": "string"},
			"stateOfInc":          map[string]interface{}{"type": "string"},
		},
	},
	models.SectionTicketing: {
		"type": "object",
		"properties": map[string]interface{}{
			"remittanceSource":    map[string]interface{}{"type": "string"},
			"remittanceFrequency": map[string]interface{}{"type": "string"},
			"ticketingProvider":   map[string]interface{}{"type": "string"},
		},
	},
	models.SectionVolume: {
		"type": "object",
		"properties": map[string]interface{}{
			"eventCount":             map[string]interface{}{"type": "integer", "minimum": 0},
			"grossAnnualTicketSales": map[string]interface{}{"type": "number", "minimum": 0},
		},
	},
	models.SectionFunds: {
		"type": "object",
		"properties": map[string]interface{}{
			"requestedAmount": map[string]interface{}{"type": "number", "minimum": 0},
			"useOfFunds":      map[string]interface{}{"type": "string"},
		},
	},
	models.SectionFinances: {
		"type": "object",
		"properties": map[string]interface{}{
			"hasBankruptcy":         map[string]interface{}{"type": "boolean"},
			"hasBusinessDebt":       map[string]interface{}{"type": "boolean"},
			"hasPendingLitigation":  map[string]interface{}{"type": "boolean"},
			"hasOverdueLiabilities": map[string]interface{}{"type": "boolean"},
			"hasPriorAdvances":      map[string]interface{}{"type": "boolean"},
			"debtRows":              map[string]interface{}{"type": "array"},
		},
	},
}

// validateSectionPatch checks a merge patch against the section's
// schema before it reaches the store. Unknown sections pass through;
// the store rejects them with its own error.
func validateSectionPatch(section string, patch map[string]interface{}) error {
	schema, ok := sectionSchemas[section]
	if !ok {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(patch)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return stderrors.NewValidationFailed(fmt.Sprintf("schema validation error: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return stderrors.NewValidationFailed(strings.Join(details, "; "))
	}
	return nil
}

var ownersSchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type":     "object",
		"required": []string{"firstName", "lastName", "ownershipPercent"},
		"properties": map[string]interface{}{
			"firstName":        map[string]interface{}{"type": "string", "minLength": 1},
			"lastName":         map[string]interface{}{"type": "string", "minLength": 1},
			"email":            map[string]interface{}{"type": "string"},
			"title":            map[string]interface{}{"type": "string"},
			"ownershipPercent": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100},
		},
	},
}

func validateOwners(owners []models.Owner) error {
	docs := make([]map[string]interface{}, 0, len(owners))
	for _, o := range owners {
		docs = append(docs, map[string]interface{}{
			"firstName":        o.FirstName,
			"lastName":         o.LastName,
			"email":            o.Email,
			"title":            o.Title,
			"ownershipPercent": o.OwnershipPercent,
		})
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ownersSchema),
		gojsonschema.NewGoLoader(docs),
	)
	if err != nil {
		return stderrors.NewValidationFailed(fmt.Sprintf("schema validation error: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return stderrors.NewValidationFailed(strings.Join(details, "; "))
	}
	return nil
}
