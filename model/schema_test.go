package model

import (
	"encoding/json"
	"strings"
	"testing"
)

const validAnalysisJSON = `{
  "executive_summary": "Contrat de prestation de services entre deux sociétés.",
  "parties": [
    {"name": "Acme SAS", "role": "PRESTATAIRE", "legal_form": "SAS", "registration_id": "123 456 789", "address": null, "representative": "J. Martin"},
    {"name": "Globex SARL", "role": "CLIENT", "legal_form": "SARL", "registration_id": null, "address": null, "representative": null}
  ],
  "details": {
    "subject": "Développement logiciel",
    "place": "Paris",
    "start_date": "2024-01-01",
    "end_date": null,
    "minimum_duration": "12",
    "notice_period": "30"
  },
  "obligations": {
    "provider": ["Livrer le logiciel"],
    "client": ["Payer les factures"]
  },
  "financials": {
    "pricing_model": "forfait",
    "payment_terms": "30 jours fin de mois",
    "amounts": [{"label": "Forfait mensuel", "amount": 5000, "currency": "EUR"}]
  },
  "governance": {
    "applicable_law": "Droit français",
    "jurisdiction": "Tribunal de commerce de Paris",
    "liability": "Plafonnée au montant annuel",
    "confidentiality": true
  },
  "risks": ["Pénalités de retard non plafonnées"],
  "missing_info": [],
  "legal_warning": "Ce résumé est informatif, ne constitue pas un conseil juridique et peut contenir des erreurs."
}`

func TestValidateAnalysisAccepts(t *testing.T) {
	if err := ValidateAnalysis([]byte(validAnalysisJSON)); err != nil {
		t.Fatalf("Expected valid document to pass, got %v", err)
	}
}

func TestValidateAnalysisRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not an object", `["executive_summary"]`},
		{"missing structural keys", `{"executive_summary": "x"}`},
		{"bad role enum", `{
			"parties": [{"name": "Acme", "role": "VENDOR"}],
			"details": {}, "obligations": {}, "financials": {}, "governance": {}
		}`},
		{"amount wrong type", `{
			"parties": [],
			"details": {}, "obligations": {},
			"financials": {"amounts": [{"label": "x", "amount": "cinq mille"}]},
			"governance": {}
		}`},
		{"invalid JSON", `{"parties": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAnalysis([]byte(tt.json)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidateAnalysisAllowsNullOptionals(t *testing.T) {
	minimal := `{
		"executive_summary": null,
		"parties": [],
		"details": {"subject": null, "place": null, "start_date": null, "end_date": null, "minimum_duration": null, "notice_period": null},
		"obligations": {"provider": null, "client": null},
		"financials": {"pricing_model": null, "payment_terms": null, "amounts": null},
		"governance": {"applicable_law": null, "jurisdiction": null, "liability": null, "confidentiality": null},
		"risks": null,
		"missing_info": null,
		"legal_warning": null
	}`
	if err := ValidateAnalysis([]byte(minimal)); err != nil {
		t.Fatalf("Expected all-null optionals to pass, got %v", err)
	}
}

func TestValidDocumentUnmarshals(t *testing.T) {
	var doc AnalysisDocument
	if err := json.Unmarshal([]byte(validAnalysisJSON), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(doc.Parties) != 2 {
		t.Errorf("Expected 2 parties, got %d", len(doc.Parties))
	}
	if doc.Parties[0].Role != RolePrestataire {
		t.Errorf("Unexpected role: %s", doc.Parties[0].Role)
	}
	if doc.Details.Subject != "Développement logiciel" {
		t.Errorf("Unexpected subject: %s", doc.Details.Subject)
	}
	if doc.Governance.Confidentiality == nil || doc.Governance.Confidentiality.Display() != "Oui" {
		t.Error("Expected boolean confidentiality to display as Oui")
	}
	if doc.Financials.Amounts[0].Amount == nil || *doc.Financials.Amounts[0].Amount != 5000 {
		t.Error("Unexpected amount value")
	}
}

func TestPromptSchemaMentionsAllSections(t *testing.T) {
	for _, key := range []string{
		"executive_summary", "parties", "details", "obligations",
		"financials", "governance", "risks", "missing_info", "legal_warning",
	} {
		if !strings.Contains(PromptSchema, key) {
			t.Errorf("Prompt schema missing key %q", key)
		}
	}
}
