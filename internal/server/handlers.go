package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"paratext/internal/paraphrase"
	"paratext/internal/summarize"
)

type paraphraseResponse struct {
	Paraphrased string `json:"paraphrased"`
}

type summarizeResponse struct {
	Summary            string `json:"summary"`
	SentencesRequested int    `json:"sentences_requested"`
}

func (s *Server) handleParaphrase(c echo.Context) error {
	text := c.FormValue("text")
	mode := paraphrase.ParseMode(c.FormValue("mode"))
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	res, err := s.paraphraser.Paraphrase(c.Request().Context(), text, mode)
	switch {
	case errors.Is(err, paraphrase.ErrEmptyInput):
		return invalidRequest("text must not be empty")
	case errors.Is(err, context.Canceled):
		slog.Info("paraphrase abandoned by client", "id", requestID, "mode", mode.String())
		return requestError{
			Status:  statusClientClosedRequest,
			Message: "request cancelled",
			Type:    errTypeCancelled,
		}
	case err != nil:
		s.metrics.SetupFailed()
		slog.Error("paraphrase failed", "id", requestID, "mode", mode.String(), "err", err)
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
			Type:    errTypeSetup,
		}
	}

	s.metrics.BackendLoaded()
	outcomes := make(map[string]int, len(res.Outcomes))
	for outcome, n := range res.Outcomes {
		outcomes[string(outcome)] = n
	}
	s.metrics.ObserveChunks(mode.String(), outcomes)
	slog.Info("paraphrased",
		"id", requestID,
		"mode", mode.String(),
		"paragraphs", res.Paragraphs,
		"chunks", res.Chunks,
		"outcomes", outcomes,
	)

	return c.JSON(http.StatusOK, paraphraseResponse{Paraphrased: res.Text})
}

func (s *Server) handleSummarize(c echo.Context) error {
	text := strings.TrimSpace(c.FormValue("text"))
	sentences, err := strconv.Atoi(strings.TrimSpace(c.FormValue("sentences")))
	if err != nil {
		sentences = summarize.DefaultSentences
	}

	// An uploaded file takes precedence over the text field.
	if fh, err := c.FormFile("file"); err == nil && fh.Filename != "" {
		extracted, err := readUpload(fh)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(extracted)
	}

	if text == "" {
		return invalidRequest("no text to summarize")
	}

	return c.JSON(http.StatusOK, summarizeResponse{
		Summary:            summarize.Summarize(text, sentences),
		SentencesRequested: sentences,
	})
}

func readUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", invalidRequest(fmt.Sprintf("open upload: %v", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", invalidRequest(fmt.Sprintf("read upload: %v", err))
	}

	text, err := summarize.ExtractText(fh.Filename, data)
	switch {
	case errors.Is(err, summarize.ErrUnsupportedFormat):
		return "", requestError{
			Status:  http.StatusUnsupportedMediaType,
			Message: "unsupported file format, expected .txt or .pdf",
			Type:    errTypeUnsupported,
		}
	case err != nil:
		slog.Error("extract upload failed", "file", fh.Filename, "err", err)
		return "", requestError{
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
			Type:    errTypeServer,
		}
	}
	return text, nil
}
