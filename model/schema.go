package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("contract-analysis.json", bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("contract-analysis.json")
	})
	return compiledSchema, compileErr
}

// ValidateAnalysis checks a raw model response against the canonical
// analysis schema. It validates shape and enumerations only; the fixed
// defaults for executive_summary and legal_warning are applied separately.
func ValidateAnalysis(raw []byte) error {
	schema, err := compiled()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse analysis JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("analysis does not match schema %s: %w", SchemaVersion, err)
	}
	return nil
}

// PromptSchema is the JSON shape embedded in the user prompt so the model
// is told exactly what to return. Kept in sync with schema.json.
const PromptSchema = `{
  "executive_summary": "Résumé en 10–20 lignes",
  "parties": [
    {"name": "...", "role": "CLIENT ou PRESTATAIRE ou AUTRE", "legal_form": "...", "registration_id": "...", "address": "...", "representative": "..."}
  ],
  "details": {
    "subject": "...",
    "place": "...",
    "start_date": "YYYY-MM-DD ou null",
    "end_date": "YYYY-MM-DD ou null",
    "minimum_duration": "nombre de mois ou null",
    "notice_period": "nombre de jours ou null"
  },
  "obligations": {
    "provider": ["..."],
    "client": ["..."]
  },
  "financials": {
    "pricing_model": "forfait | abonnement | à_l_acte | mixte | inconnu",
    "payment_terms": "...",
    "amounts": [{"label": "...", "amount": 0, "currency": "EUR"}]
  },
  "governance": {
    "applicable_law": "...",
    "jurisdiction": "...",
    "liability": "...",
    "confidentiality": true
  },
  "risks": ["..."],
  "missing_info": ["..."],
  "legal_warning": "` + DefaultLegalWarning + `"
}`
