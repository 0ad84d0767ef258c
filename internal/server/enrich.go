package server

import (
	"bytes"
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/input"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
	"github.com/shpitdev/apollo-bulk-enricher/internal/report"
)

const (
	headerRunID         = "X-Run-ID"
	markdownContentType = "text/markdown; charset=utf-8"

	msgMissingAPIKey = "Missing API key"
	msgEmptyInput    = "Please enter at least one domain"
)

type enrichHandler struct {
	enricher enrich.Enricher
	logger   zerolog.Logger
	opts     pipeline.Options
}

type enrichRequest struct {
	Domains []string `json:"domains"`
}

// handle runs one bulk enrichment for the posted domains.
//
// Accepted bodies: JSON {"domains": [...]}, newline-delimited text/plain, or a
// multipart form with a "file" upload and/or a "domains" text field.
func (h *enrichHandler) handle(c *fiber.Ctx) error {
	if h.enricher == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, msgMissingAPIKey)
	}
	format := strings.ToLower(strings.TrimSpace(c.Query("format", report.FormatJSON)))
	if !slices.Contains(report.Formats(), format) {
		return fiber.NewError(fiber.StatusBadRequest, "format must be one of json, csv, markdown")
	}

	domains, err := readDomains(c)
	if err != nil {
		return err
	}
	if errors.Is(input.Require(domains), input.ErrEmptyInput) {
		return fiber.NewError(fiber.StatusBadRequest, msgEmptyInput)
	}

	runID := xid.New().String()
	logger := h.logger.With().
		Str("run", runID).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Logger()
	logger.Info().
		Int("domains", len(domains)).
		Dur("timeout", h.opts.RequestTimeout).
		Float64("rate_limit_rps", h.opts.RateLimitRPS).
		Msg("enrichment run start")

	results, err := pipeline.Run(c.UserContext(), domains, pipeline.Traced(h.enricher, logger, h.opts), h.opts, func(p pipeline.Progress) {
		logger.Debug().Int("done", p.Done).Int("total", p.Total).Str("domain", p.Domain).Msg("progress")
	})
	if err != nil {
		logger.Warn().Err(err).Int("completed", len(results)).Msg("enrichment run canceled")
		return fiber.NewError(fiber.StatusServiceUnavailable, "enrichment canceled")
	}

	rows := pipeline.ToRows(results)
	summary := pipeline.Summarize(rows)
	logger.Info().Int("produced", summary.Total).Int("ok", summary.OK()).Int("failed", summary.Failed()).Msg("enrichment run complete")

	c.Set(headerRunID, runID)
	switch format {
	case report.FormatCSV:
		var buf bytes.Buffer
		if err := pipeline.WriteCSV(&buf, rows); err != nil {
			return err
		}
		c.Attachment(pipeline.DefaultFilename)
		c.Set(fiber.HeaderContentType, pipeline.CSVContentType)
		return c.Send(buf.Bytes())
	case report.FormatMarkdown:
		var buf bytes.Buffer
		if err := report.WriteMarkdown(&buf, rows); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, markdownContentType)
		return c.Send(buf.Bytes())
	default:
		return c.JSON(report.NewDocument(rows))
	}
}

func readDomains(c *fiber.Ctx) ([]string, error) {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	switch {
	case strings.HasPrefix(ct, fiber.MIMEApplicationJSON):
		var req enrichRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		return input.Clean(req.Domains), nil

	case strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		domains := input.ParseText(c.FormValue("domains"))
		fh, err := c.FormFile("file")
		if err != nil {
			// No upload is fine as long as the text field has content.
			return domains, nil
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read uploaded file")
		}
		defer func() {
			_ = f.Close()
		}()
		uploaded, err := input.ReadNamed(fh.Filename, f)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid upload: "+err.Error())
		}
		return append(domains, uploaded...), nil

	default:
		return input.ParseText(string(c.Body())), nil
	}
}
