package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xyqotech/xyqo-home/model"
	"github.com/xyqotech/xyqo-home/pkg/logger"
	"github.com/xyqotech/xyqo-home/pkg/metrics"
	"github.com/xyqotech/xyqo-home/service"
)

const (
	// maxUploadSize bounds uploads at 10 MiB.
	maxUploadSize = 10 * 1024 * 1024
	// minTextLen is the minimum extracted text length. Below this the
	// extraction is assumed to have failed silently (image-only scan).
	minTextLen = 100

	serviceName    = "xyqo-backend"
	serviceVersion = "1.0.0"
)

// ContractAnalyzer is the analysis dependency of the handler.
type ContractAnalyzer interface {
	Configured() bool
	Analyze(ctx context.Context, contractText string) (*model.AnalysisResult, error)
}

type ContractHandler struct {
	analyzer ContractAnalyzer
	store    service.ReportStore
	extract  func(content []byte) (string, error)
	now      func() time.Time
}

func NewContractHandler(analyzer ContractAnalyzer, store service.ReportStore) *ContractHandler {
	return &ContractHandler{
		analyzer: analyzer,
		store:    store,
		extract:  service.ExtractText,
		now:      time.Now,
	}
}

// Health reports liveness. It never depends on the completion credential
// being present; the credential state is only reported.
func (h *ContractHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           serviceName,
		"version":           serviceVersion,
		"timestamp":         h.now().UTC().Format(time.RFC3339),
		"openai_configured": h.analyzer.Configured(),
	})
}

// Analyze handles the contract upload: validate, extract, analyze,
// render, cache, respond.
func (h *ContractHandler) Analyze(c *gin.Context) {
	startTime := h.now()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucun fichier fourni"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Seuls les fichiers PDF sont acceptés"})
		return
	}

	if header.Size > maxUploadSize {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier trop volumineux (max 10MB)"})
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Impossible de lire le fichier"})
		return
	}
	if len(content) > maxUploadSize {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier trop volumineux (max 10MB)"})
		return
	}

	processingID := service.Fingerprint(content)

	// A disconnecting client must not abort the pipeline: the completion
	// call is already paid for, and caching its result lets a future
	// identical upload reuse it.
	ctx := logger.WithProcessingID(context.WithoutCancel(c.Request.Context()), processingID)

	// Identical bytes were already processed: reuse the cached result
	// instead of paying for a second completion call.
	if entry, err := h.store.Get(ctx, processingID); err == nil && entry.Analysis != nil {
		logger.Info(ctx, "serving cached analysis", "filename", header.Filename)
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeCached).Inc()
		h.respondAnalysis(c, entry.Analysis, header.Filename, processingID, startTime, false, "")
		return
	}

	contractText, err := h.extract(content)
	if err != nil {
		logger.Warn(ctx, "text extraction failed", "error", err, "filename", header.Filename)
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Impossible de lire le fichier PDF"})
		return
	}
	if len(contractText) < minTextLen {
		logger.Warn(ctx, "insufficient extracted text", "length", len(contractText))
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le PDF ne contient pas assez de texte analysable"})
		return
	}

	result, err := h.analyzer.Analyze(ctx, contractText)
	if err != nil {
		if errors.Is(err, service.ErrMissingCredential) {
			logger.Error(ctx, "analysis refused: missing credential")
			metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeConfigError).Inc()
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service d'analyse non configuré"})
			return
		}
		logger.Error(ctx, "analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'analyse du contrat"})
		return
	}

	if result.Degraded {
		logger.Warn(ctx, "analysis degraded to fallback", "reason", result.Reason)
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeDegraded).Inc()
	} else {
		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeAnalyzed).Inc()
	}

	report, contentType := service.RenderReport(result.Document, processingID, h.now())

	entry := &service.CacheEntry{
		Fingerprint: processingID,
		Analysis:    result.Document,
		Report:      report,
		ContentType: contentType,
		CreatedAt:   h.now(),
	}
	if err := h.store.Put(ctx, entry); err != nil {
		// The response is still useful without the cached copy
		logger.Error(ctx, "failed to cache report", "error", err)
	}

	h.respondAnalysis(c, result.Document, header.Filename, processingID, startTime, result.Degraded, result.Reason)
}

func (h *ContractHandler) respondAnalysis(c *gin.Context, doc *model.AnalysisDocument, filename, processingID string, startTime time.Time, degraded bool, reason string) {
	metadata := gin.H{
		"filename":                filename,
		"processing_id":           processingID,
		"download_url":            fmt.Sprintf("/api/v1/contract/download/%s", processingID),
		"processing_time_seconds": h.now().Sub(startTime).Seconds(),
		"processed_at":            h.now().UTC().Format(time.RFC3339),
		"degraded":                degraded,
	}
	if reason != "" {
		metadata["degraded_reason"] = reason
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analysis": doc,
		"metadata": metadata,
	})
}

// Download serves a previously generated report by processing id.
// Unknown ids are a strict 404: regenerating a fallback report for an
// arbitrary id would make cache loss look like success.
func (h *ContractHandler) Download(c *gin.Context) {
	id := c.Param("id")
	id = strings.TrimSuffix(id, ".pdf")

	entry, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			metrics.DownloadsTotal.WithLabelValues("miss").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "Rapport introuvable"})
			return
		}
		logger.Error(c.Request.Context(), "report lookup failed", "error", err, "processing_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération du rapport"})
		return
	}

	metrics.DownloadsTotal.WithLabelValues("hit").Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=rapport_contrat_%s.pdf", id))
	c.Data(http.StatusOK, entry.ContentType, entry.Report)
}
