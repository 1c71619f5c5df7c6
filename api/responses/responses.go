package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/pagination"
	"github.com/angelmondragon/library-backend/pkg/types"
)

// WriteSuccess renders a 200 envelope.
func WriteSuccess(w http.ResponseWriter, message string, data any) {
	WriteSuccessStatus(w, http.StatusOK, message, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, types.Envelope{Success: true, Message: message, Data: data})
}

// WriteList renders a list envelope with count and, when meta is set, page info.
func WriteList(w http.ResponseWriter, data any, count int, meta *pagination.Meta) {
	env := types.Envelope{Success: true, Data: data, Count: &count}
	if meta != nil {
		total, pages, current := meta.Total, meta.Pages, meta.CurrentPage
		env.Total = &total
		env.Pages = &pages
		env.CurrentPage = &current
	}
	writeJSON(w, http.StatusOK, env)
}

// publicMessageCodes pass the service message through to the client.
var publicMessageCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:    true,
	pkgerrors.CodeForbidden:     true,
	pkgerrors.CodeUnauthorized:  true,
	pkgerrors.CodeNotFound:      true,
	pkgerrors.CodeConflict:      true,
	pkgerrors.CodeUnavailable:   true,
	pkgerrors.CodeStateConflict: true,
	pkgerrors.CodeIdempotency:   true,
	pkgerrors.CodeRateLimit:     true,
	pkgerrors.CodeTooLarge:      true,
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if publicMessageCodes[typed.Code()] {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.Envelope{
		Success: false,
		Message: msg,
		Code:    string(typed.Code()),
	}
	if meta.DetailsAllowed {
		payload.Data = typed.Details()
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		fields := map[string]any{
			"error":         dump.TopMessage,
			"error_code":    dump.Code,
			"error_chain":   dump.Chain,
			"http_status":   meta.HTTPStatus,
			"pg_code":       dump.PGCode,
			"pg_detail":     dump.PGDetail,
			"pg_constraint": dump.PGConstraint,
		}
		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
