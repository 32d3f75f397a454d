package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapcols/internal/sqlcheck"
	"github.com/leapstack-labs/leapcols/pkg/lineage"
)

// QueryRequest is the JSON request body.
type QueryRequest struct {
	Query string `json:"query"`
}

// ErrorBody describes a failure. For extraction failures Kind is one of the
// lineage error kinds; request problems use bad_request,
// unsupported_media_type or body_too_large; syntax_error marks an engine
// rejection and internal_error an engine failure.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ColumnsResponse is returned by POST /api/v1/columns. Columns is never null;
// a statement that cannot be parsed yields an empty list and an Error.
type ColumnsResponse struct {
	ID      string                   `json:"id"`
	Columns []lineage.ColumnMetadata `json:"columns"`
	Error   *ErrorBody               `json:"error,omitempty"`
	// Validation is set when the configured engine rejected the statement.
	Validation *ErrorBody `json:"validation,omitempty"`
}

// TablesResponse is returned by POST /api/v1/tables.
type TablesResponse struct {
	ID         string                 `json:"id"`
	Tables     []lineage.TableBinding `json:"tables"`
	Error      *ErrorBody             `json:"error,omitempty"`
	Validation *ErrorBody             `json:"validation,omitempty"`
}

// requestError is a client error with its HTTP status.
type requestError struct {
	status int
	body   ErrorBody
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	query, rerr := s.readQuery(w, r)
	if rerr != nil {
		writeJSON(w, rerr.status, ColumnsResponse{ID: id, Columns: []lineage.ColumnMetadata{}, Error: &rerr.body})
		return
	}

	validation, rerr := s.validate(r.Context(), id, query)
	if rerr != nil {
		writeJSON(w, rerr.status, ColumnsResponse{ID: id, Columns: []lineage.ColumnMetadata{}, Error: &rerr.body})
		return
	}

	res, err := lineage.ExtractWithOptions(query, s.cfg.Lineage)
	if err != nil {
		s.logger.Debug("extraction failed", "id", id, "kind", lineage.ErrorKind(err), "error", err)
		writeJSON(w, http.StatusOK, ColumnsResponse{
			ID:         id,
			Columns:    []lineage.ColumnMetadata{},
			Error:      extractionError(err),
			Validation: validation,
		})
		return
	}

	s.logger.Debug("extracted columns", "id", id, "columns", len(res.Columns))
	writeJSON(w, http.StatusOK, ColumnsResponse{ID: id, Columns: res.Columns, Validation: validation})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	query, rerr := s.readQuery(w, r)
	if rerr != nil {
		writeJSON(w, rerr.status, TablesResponse{ID: id, Tables: []lineage.TableBinding{}, Error: &rerr.body})
		return
	}

	validation, rerr := s.validate(r.Context(), id, query)
	if rerr != nil {
		writeJSON(w, rerr.status, TablesResponse{ID: id, Tables: []lineage.TableBinding{}, Error: &rerr.body})
		return
	}

	res, err := lineage.ExtractWithOptions(query, s.cfg.Lineage)
	if err != nil {
		writeJSON(w, http.StatusOK, TablesResponse{
			ID:         id,
			Tables:     []lineage.TableBinding{},
			Error:      extractionError(err),
			Validation: validation,
		})
		return
	}

	tables := res.Tables
	if tables == nil {
		tables = []lineage.TableBinding{}
	}
	writeJSON(w, http.StatusOK, TablesResponse{ID: id, Tables: tables, Validation: validation})
}

// validate runs the configured checker. A rejection is returned as the
// response's validation body; an engine failure becomes a 500.
func (s *Server) validate(ctx context.Context, id, query string) (*ErrorBody, *requestError) {
	if s.cfg.Checker == nil {
		return nil, nil
	}

	err := s.cfg.Checker.Check(ctx, query)
	if err == nil {
		return nil, nil
	}

	var se *sqlcheck.SyntaxError
	if errors.As(err, &se) {
		s.logger.Debug("statement rejected", "id", id, "engine", se.Engine, "error", se.Message)
		return &ErrorBody{Kind: "syntax_error", Message: se.Error()}, nil
	}

	s.logger.Error("validation failed", "id", id, "engine", s.cfg.Checker.Engine(), "error", err)
	return nil, badRequest(http.StatusInternalServerError, "internal_error", "statement could not be validated")
}

// readQuery reads the statement from a JSON or plain-text body.
func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (string, *requestError) {
	mediaType := "text/plain"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return "", badRequest(http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error())
		}
		mediaType = mt
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", badRequest(http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		}
		return "", badRequest(http.StatusBadRequest, "bad_request", err.Error())
	}

	var query string
	switch mediaType {
	case "application/json":
		var req QueryRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", badRequest(http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		}
		query = req.Query
	case "text/plain", "application/sql":
		query = string(body)
	default:
		return "", badRequest(http.StatusUnsupportedMediaType, "unsupported_media_type",
			"content type must be application/json, text/plain or application/sql")
	}

	if strings.TrimSpace(query) == "" {
		return "", badRequest(http.StatusBadRequest, "bad_request", "query is empty")
	}
	return query, nil
}

func badRequest(status int, kind, msg string) *requestError {
	return &requestError{status: status, body: ErrorBody{Kind: kind, Message: msg}}
}

func extractionError(err error) *ErrorBody {
	return &ErrorBody{Kind: lineage.ErrorKind(err), Message: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
