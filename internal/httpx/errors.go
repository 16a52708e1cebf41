package httpx

import (
	"net/http"

	"github.com/sundayezeilo/edgelink/internal/errx"
)

type kindMapping struct {
	status int
	code   string
}

var kindMappings = map[errx.Kind]kindMapping{
	errx.NotFound:    {http.StatusNotFound, "not_found"},
	errx.Conflict:    {http.StatusConflict, "conflict"},
	errx.Invalid:     {http.StatusBadRequest, "invalid_input"},
	errx.Malformed:   {http.StatusBadGateway, "malformed_record"},
	errx.Unavailable: {http.StatusServiceUnavailable, "unavailable"},
	errx.Internal:    {http.StatusInternalServerError, "internal_error"},
}

func mappingOf(kind errx.Kind) kindMapping {
	if m, ok := kindMappings[kind]; ok {
		return m
	}
	return kindMappings[errx.Internal]
}

// ErrorKindToStatus maps errx.Kind to an HTTP status code. Unknown kinds map to 500.
func ErrorKindToStatus(kind errx.Kind) int {
	return mappingOf(kind).status
}

// ErrorKindToCode maps errx.Kind to the error code used in JSON error bodies.
func ErrorKindToCode(kind errx.Kind) string {
	return mappingOf(kind).code
}
