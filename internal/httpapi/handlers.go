package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spigell/lead-scorer/internal/apperr"
	"github.com/spigell/lead-scorer/internal/leads"
)

const (
	uploadField     = "file"
	resultsFilename = "scored_leads.csv"
)

func (h *handler) setOffer(c *gin.Context) {
	var offer leads.Offer
	if err := c.ShouldBindJSON(&offer); err != nil {
		h.handleError(c, apperr.Wrap(apperr.KindInvalidInput, "invalid offer payload: "+err.Error(), err))
		return
	}

	if err := h.svc.SetOffer(offer); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "offer saved", "offer": offer})
}

func (h *handler) getOffer(c *gin.Context) {
	offer, err := h.svc.Offer()
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

func (h *handler) uploadLeads(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "upload is too large"})
			return
		}
		h.handleError(c, apperr.Wrap(apperr.KindInvalidInput, `multipart field "file" with a csv is required`, err))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.handleError(c, apperr.Internal("open uploaded file", err))
		return
	}
	defer file.Close()

	summary, err := h.svc.UploadCSV(file)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *handler) replaceLeads(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var records []leads.RawRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		h.handleError(c, apperr.Wrap(apperr.KindInvalidInput, "invalid leads payload: "+err.Error(), err))
		return
	}

	summary, err := h.svc.ReplaceLeads(records)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *handler) runScoring(c *gin.Context) {
	info, err := h.svc.RunScoring(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "scoring complete", "run": info})
}

func (h *handler) results(c *gin.Context) {
	run, err := h.svc.Results()
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *handler) csvResults(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.WriteResultsCSV(&buf); err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+resultsFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
