package parser

import (
	"log/slog"
	"net/http"

	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/logging"
)

// configHeaders turns the "headers" config map into request headers.
func configHeaders(src domain.Source) http.Header {
	h := http.Header{}
	for k, v := range src.Config.StringMap("headers") {
		h.Set(k, v)
	}
	return h
}

func discardLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return logging.Discard()
}

// Deps carries the optional collaborators shared by the extractors.
type Deps struct {
	Dates  *dates.Inferencer
	Logger *slog.Logger
}
