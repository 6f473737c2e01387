package service

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/xyqotech/xyqo-home/model"
	"github.com/xyqotech/xyqo-home/pkg/metrics"
)

// Content types produced by the renderer.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"
)

// notSpecified is the placeholder rendered for absent optional fields.
const notSpecified = "Non spécifié"

// RenderReport renders an analysis document into report bytes. PDF is the
// primary format; any internal fault falls back to the plain-text
// rendering, which covers the same sections in the same order and cannot
// fail. Rendering is deterministic given (doc, processingID, generatedAt):
// the timestamp is an input, nothing is read from the environment.
func RenderReport(doc *model.AnalysisDocument, processingID string, generatedAt time.Time) ([]byte, string) {
	report, err := renderPDF(doc, processingID, generatedAt)
	if err != nil {
		slog.Error("PDF rendering failed, using text fallback",
			"error", err,
			"processing_id", processingID,
		)
		metrics.RenderFallbacksTotal.Inc()
		return renderText(doc, processingID, generatedAt), ContentTypeText
	}
	return report, ContentTypePDF
}

func renderPDF(doc *model.AnalysisDocument, processingID string, generatedAt time.Time) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle("Rapport d'analyse contractuelle", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Core fonts are cp1252; translate French accents
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Title
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(0, 10, tr("RAPPORT D'ANALYSE CONTRACTUELLE"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, tr("XYQO Contract Reader - "+generatedAt.Format("02/01/2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	heading := func(title string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(30, 64, 175)
		pdf.SetFillColor(248, 250, 252)
		pdf.CellFormat(0, 9, tr(title), "1", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}
	body := func(text string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}
	boldLine := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(value), "", "L", false)
	}
	bullet := func(text string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(5, 5, "-", "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}

	// Executive summary
	heading("RÉSUMÉ EXÉCUTIF")
	body(doc.ExecutiveSummary)
	pdf.Ln(5)

	// Contract details as a key/value table
	heading("DÉTAILS DU CONTRAT")
	details := [][2]string{
		{"Objet:", orPlaceholderStr(doc.Details.Subject)},
		{"Lieu:", orPlaceholder(doc.Details.Place)},
		{"Date début:", orPlaceholder(doc.Details.StartDate)},
		{"Date fin:", orPlaceholder(doc.Details.EndDate)},
		{"Durée minimale:", orPlaceholder(doc.Details.MinimumDuration)},
		{"Préavis:", orPlaceholder(doc.Details.NoticePeriod)},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range details {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(243, 244, 246)
		pdf.CellFormat(50, 7, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	// Parties
	heading("PARTIES CONTRACTUELLES")
	for i, party := range doc.Parties {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Partie %d: %s", i+1, orPlaceholderStr(party.Name))), "", "L", false)
		body("Rôle: " + orPlaceholderStr(party.Role))
		body("Forme juridique: " + orPlaceholder(party.LegalForm))
		if party.RegistrationID != nil {
			body("SIREN/SIRET: " + *party.RegistrationID)
		}
		if party.Address != nil {
			body("Adresse: " + *party.Address)
		}
		if party.Representative != nil {
			body("Représentant: " + *party.Representative)
		}
		pdf.Ln(3)
	}
	if len(doc.Parties) == 0 {
		body(notSpecified)
		pdf.Ln(3)
	}

	// Obligations
	heading("OBLIGATIONS")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, tr("Obligations du prestataire:"), "", 1, "L", false, 0, "")
	if len(doc.Obligations.Provider) == 0 {
		body(notSpecified)
	}
	for _, obligation := range doc.Obligations.Provider {
		bullet(obligation)
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, tr("Obligations du client:"), "", 1, "L", false, 0, "")
	if len(doc.Obligations.Client) == 0 {
		body(notSpecified)
	}
	for _, obligation := range doc.Obligations.Client {
		bullet(obligation)
	}
	pdf.Ln(5)

	// Financials
	heading("ASPECTS FINANCIERS")
	boldLine("Modèle tarifaire:", orPlaceholder(doc.Financials.PricingModel))
	boldLine("Conditions de paiement:", orPlaceholder(doc.Financials.PaymentTerms))
	if len(doc.Financials.Amounts) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 5, tr("Montants:"), "", 1, "L", false, 0, "")
		for _, amount := range doc.Financials.Amounts {
			bullet(formatAmount(amount))
		}
	}
	pdf.Ln(5)

	// Governance
	heading("GOUVERNANCE")
	boldLine("Droit applicable:", orPlaceholder(doc.Governance.ApplicableLaw))
	boldLine("Juridiction:", orPlaceholder(doc.Governance.Jurisdiction))
	boldLine("Responsabilité:", orPlaceholder(doc.Governance.Liability))
	if doc.Governance.Confidentiality != nil {
		boldLine("Confidentialité:", doc.Governance.Confidentiality.Display())
	}
	pdf.Ln(5)

	// Risks, omitted entirely when empty
	if len(doc.Risks) > 0 {
		heading("FACTEURS DE RISQUE")
		for _, risk := range doc.Risks {
			bullet(risk)
		}
		pdf.Ln(5)
	}

	// Missing information, omitted entirely when empty
	if len(doc.MissingInfo) > 0 {
		heading("INFORMATIONS MANQUANTES")
		for _, info := range doc.MissingInfo {
			bullet(info)
		}
		pdf.Ln(5)
	}

	// Legal warning
	heading("AVERTISSEMENT JURIDIQUE")
	body(doc.LegalWarning)
	pdf.Ln(8)

	// Footer
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 5, tr("Rapport généré par XYQO Contract Reader"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr("ID de traitement: "+processingID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr("Date de génération: "+generatedAt.Format("02/01/2006 à 15:04")), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// renderText is the unconditionally reliable plain-text rendering. Same
// sections, same order as the PDF.
func renderText(doc *model.AnalysisDocument, processingID string, generatedAt time.Time) []byte {
	var b strings.Builder

	writeLine := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	writeLine("RAPPORT D'ANALYSE CONTRACTUELLE")
	writeLine("XYQO Contract Reader - %s", generatedAt.Format("02/01/2006 15:04"))
	writeLine("")

	writeLine("RÉSUMÉ EXÉCUTIF")
	writeLine("%s", doc.ExecutiveSummary)
	writeLine("")

	writeLine("DÉTAILS DU CONTRAT")
	writeLine("Objet: %s", orPlaceholderStr(doc.Details.Subject))
	writeLine("Lieu: %s", orPlaceholder(doc.Details.Place))
	writeLine("Date début: %s", orPlaceholder(doc.Details.StartDate))
	writeLine("Date fin: %s", orPlaceholder(doc.Details.EndDate))
	writeLine("Durée minimale: %s", orPlaceholder(doc.Details.MinimumDuration))
	writeLine("Préavis: %s", orPlaceholder(doc.Details.NoticePeriod))
	writeLine("")

	writeLine("PARTIES CONTRACTUELLES")
	for i, party := range doc.Parties {
		writeLine("Partie %d: %s (%s)", i+1, orPlaceholderStr(party.Name), orPlaceholderStr(party.Role))
	}
	if len(doc.Parties) == 0 {
		writeLine("%s", notSpecified)
	}
	writeLine("")

	writeLine("OBLIGATIONS")
	writeLine("Obligations du prestataire:")
	for _, obligation := range doc.Obligations.Provider {
		writeLine("- %s", obligation)
	}
	writeLine("Obligations du client:")
	for _, obligation := range doc.Obligations.Client {
		writeLine("- %s", obligation)
	}
	writeLine("")

	writeLine("ASPECTS FINANCIERS")
	writeLine("Modèle tarifaire: %s", orPlaceholder(doc.Financials.PricingModel))
	writeLine("Conditions de paiement: %s", orPlaceholder(doc.Financials.PaymentTerms))
	for _, amount := range doc.Financials.Amounts {
		writeLine("- %s", formatAmount(amount))
	}
	writeLine("")

	writeLine("GOUVERNANCE")
	writeLine("Droit applicable: %s", orPlaceholder(doc.Governance.ApplicableLaw))
	writeLine("Juridiction: %s", orPlaceholder(doc.Governance.Jurisdiction))
	writeLine("Responsabilité: %s", orPlaceholder(doc.Governance.Liability))
	if doc.Governance.Confidentiality != nil {
		writeLine("Confidentialité: %s", doc.Governance.Confidentiality.Display())
	}
	writeLine("")

	if len(doc.Risks) > 0 {
		writeLine("FACTEURS DE RISQUE")
		for _, risk := range doc.Risks {
			writeLine("- %s", risk)
		}
		writeLine("")
	}

	if len(doc.MissingInfo) > 0 {
		writeLine("INFORMATIONS MANQUANTES")
		for _, info := range doc.MissingInfo {
			writeLine("- %s", info)
		}
		writeLine("")
	}

	writeLine("AVERTISSEMENT JURIDIQUE")
	writeLine("%s", doc.LegalWarning)
	writeLine("")

	writeLine("Rapport généré par XYQO Contract Reader")
	writeLine("ID de traitement: %s", processingID)
	writeLine("Date de génération: %s", generatedAt.Format("02/01/2006 à 15:04"))

	return []byte(b.String())
}

func orPlaceholder(value *string) string {
	if value == nil || *value == "" {
		return notSpecified
	}
	return *value
}

func orPlaceholderStr(value string) string {
	if value == "" {
		return notSpecified
	}
	return value
}

func formatAmount(amount model.Amount) string {
	label := amount.Label
	if label == "" {
		label = "Montant"
	}
	value := notSpecified
	if amount.Amount != nil {
		value = fmt.Sprintf("%.2f", *amount.Amount)
	}
	currency := ""
	if amount.Currency != nil {
		currency = " " + *amount.Currency
	}
	return fmt.Sprintf("%s: %s%s", label, value, currency)
}
