package paedu

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// RouteRegistrar captures the router methods used by the controllers.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// CurrentSession reads the caller session the gate stored in router locals.
func CurrentSession(ctx router.Context, key string) (*SessionObject, error) {
	if key == "" {
		key = "caller"
	}

	raw := ctx.Locals(key)
	if raw == nil {
		return nil, ErrUnableToDecodeSession
	}

	session, ok := raw.(*SessionObject)
	if !ok {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}

// RespondError maps rich errors onto HTTP statuses and a JSON payload.
func RespondError(ctx router.Context, err error) error {
	status := router.StatusInternalServerError
	payload := map[string]any{
		"error": "Internal Server Error",
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status = statusForError(richErr)
		payload["error"] = richErr.Message
		if richErr.TextCode != "" {
			payload["code"] = richErr.TextCode
		}
	} else if err != nil {
		payload["error"] = err.Error()
	}

	return ctx.JSON(status, payload)
}

func statusForError(err *goerrors.Error) int {
	switch {
	case err.Code == goerrors.CodeUnauthorized:
		return router.StatusUnauthorized
	case err.Code == goerrors.CodeForbidden:
		return router.StatusForbidden
	case err.Code == goerrors.CodeNotFound:
		return router.StatusNotFound
	}

	switch err.Category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber checks the value parses as a phone number for the
// given default region. Empty values pass, pair with validation.Required
// when the field is mandatory.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		parsed, err := phonenumbers.Parse(s, region)
		if err != nil {
			return errors.New("must be a valid phone number")
		}

		if !phonenumbers.IsValidNumber(parsed) {
			return errors.New("must be a valid phone number")
		}

		return nil
	}
}

func debugPayload(logger Logger, label string, payload any) {
	if logger == nil {
		return
	}
	logger.Debug(fmt.Sprintf("======= %s ======", label))
	logger.Debug(print.MaybePrettyJSON(payload))
}
