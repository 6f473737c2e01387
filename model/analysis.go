package model

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion identifies the canonical analysis schema. Earlier revisions
// (the flat contract-metadata form and the generic UniversalContract form)
// are migration history and are not produced or accepted at runtime.
const SchemaVersion = "v3"

// Party role constants
const (
	RoleClient      = "CLIENT"
	RolePrestataire = "PRESTATAIRE"
	RoleAutre       = "AUTRE"
)

// Fixed strings substituted when the model leaves mandatory fields empty.
const (
	DefaultExecutiveSummary = "Résumé automatique indisponible - analyse en cours."
	DefaultLegalWarning     = "Ce résumé est informatif, ne constitue pas un conseil juridique et peut contenir des erreurs."
)

// AnalysisDocument is the structured contract summary produced by the
// analyzer. Optional fields are nil when the source text does not state
// them; the analyzer never fabricates values.
type AnalysisDocument struct {
	ExecutiveSummary string      `json:"executive_summary"`
	Parties          []Party     `json:"parties"`
	Details          Details     `json:"details"`
	Obligations      Obligations `json:"obligations"`
	Financials       Financials  `json:"financials"`
	Governance       Governance  `json:"governance"`
	Risks            []string    `json:"risks"`
	MissingInfo      []string    `json:"missing_info"`
	LegalWarning     string      `json:"legal_warning"`
}

// Party is one contracting party. Address must already be PII-masked by
// the analyzer; raw IBAN/e-mail/phone never appear here.
type Party struct {
	Role           string  `json:"role"`
	Name           string  `json:"name"`
	LegalForm      *string `json:"legal_form"`
	RegistrationID *string `json:"registration_id"`
	Address        *string `json:"address"`
	Representative *string `json:"representative"`
}

// Details carries the core contract metadata. Dates are ISO-8601 strings.
type Details struct {
	Subject         string  `json:"subject"`
	Place           *string `json:"place"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	MinimumDuration *string `json:"minimum_duration"`
	NoticePeriod    *string `json:"notice_period"`
}

type Obligations struct {
	Provider []string `json:"provider"`
	Client   []string `json:"client"`
}

type Financials struct {
	PricingModel *string  `json:"pricing_model"`
	PaymentTerms *string  `json:"payment_terms"`
	Amounts      []Amount `json:"amounts"`
}

// Amount is one itemized contract amount. Currency is an ISO-4217 code.
type Amount struct {
	Label    string   `json:"label"`
	Amount   *float64 `json:"amount"`
	Currency *string  `json:"currency"`
}

type Governance struct {
	ApplicableLaw   *string          `json:"applicable_law"`
	Jurisdiction    *string          `json:"jurisdiction"`
	Liability       *string          `json:"liability"`
	Confidentiality *Confidentiality `json:"confidentiality"`
}

// Confidentiality holds either a boolean or a free-text clause summary,
// since models return both forms.
type Confidentiality struct {
	Bool *bool
	Text *string
}

func (c *Confidentiality) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		c.Bool = &b
		c.Text = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = &s
		c.Bool = nil
		return nil
	}

	return fmt.Errorf("confidentiality must be a boolean or a string, got %s", string(data))
}

func (c Confidentiality) MarshalJSON() ([]byte, error) {
	if c.Bool != nil {
		return json.Marshal(*c.Bool)
	}
	if c.Text != nil {
		return json.Marshal(*c.Text)
	}
	return []byte("null"), nil
}

// Display renders the value for reports: "Oui"/"Non" for booleans, the
// clause text otherwise.
func (c Confidentiality) Display() string {
	if c.Bool != nil {
		if *c.Bool {
			return "Oui"
		}
		return "Non"
	}
	if c.Text != nil {
		return *c.Text
	}
	return ""
}

// ApplyDefaults substitutes the fixed default strings for empty
// executive_summary and legal_warning, and normalizes nil slices to
// empty ones. These two fields are never empty in a returned document.
func (d *AnalysisDocument) ApplyDefaults() {
	if d.ExecutiveSummary == "" {
		d.ExecutiveSummary = DefaultExecutiveSummary
	}
	if d.LegalWarning == "" {
		d.LegalWarning = DefaultLegalWarning
	}
	if d.Parties == nil {
		d.Parties = []Party{}
	}
	if d.Obligations.Provider == nil {
		d.Obligations.Provider = []string{}
	}
	if d.Obligations.Client == nil {
		d.Obligations.Client = []string{}
	}
	if d.Financials.Amounts == nil {
		d.Financials.Amounts = []Amount{}
	}
	if d.Risks == nil {
		d.Risks = []string{}
	}
	if d.MissingInfo == nil {
		d.MissingInfo = []string{}
	}
}

// AnalysisResult wraps a document with its provenance. Degraded is true
// when the document is the fixed fallback rather than a real analysis;
// Reason then records why. A missing credential is never expressed here,
// it is an error from the analyzer.
type AnalysisResult struct {
	Document *AnalysisDocument
	Degraded bool
	Reason   string
}

// FallbackAnalysis returns the fixed document served when automatic
// analysis cannot be completed. The content itself signals that manual
// review is required. A fresh copy is returned on every call so callers
// may not corrupt the template.
func FallbackAnalysis() *AnalysisDocument {
	strPtr := func(s string) *string { return &s }

	return &AnalysisDocument{
		ExecutiveSummary: "Analyse automatique indisponible. Ce contrat nécessite une révision manuelle par un expert juridique pour identifier les clauses principales, les obligations des parties, les aspects financiers et les risques potentiels. Veuillez consulter un professionnel du droit pour une analyse complète et des conseils adaptés à votre situation spécifique.",
		Parties: []Party{
			{Name: "Partie A", Role: RolePrestataire},
			{Name: "Partie B", Role: RoleClient},
		},
		Details: Details{
			Subject: "Prestation de services",
		},
		Obligations: Obligations{
			Provider: []string{"Fourniture des services convenus"},
			Client:   []string{"Paiement des services"},
		},
		Financials: Financials{
			PricingModel: strPtr("inconnu"),
			PaymentTerms: strPtr("Non spécifié"),
			Amounts:      []Amount{},
		},
		Governance: Governance{
			ApplicableLaw: strPtr("Droit français"),
			Jurisdiction:  strPtr("Tribunaux compétents"),
			Liability:     strPtr("Non spécifié"),
		},
		Risks:        []string{"Analyse automatique indisponible - révision manuelle requise"},
		MissingInfo:  []string{"Montants financiers", "Dates contractuelles", "Obligations spécifiques", "Clauses de résiliation"},
		LegalWarning: DefaultLegalWarning,
	}
}
