package adapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/go-resty/resty/v2"
)

// statusKind maps a non-2xx status to an error kind. notFound is the kind
// a 404 stands for in the calling operation.
func statusKind(status int, notFound app.Kind) app.Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return app.KindAuth
	case status == http.StatusConflict:
		return app.KindConflict
	case status == http.StatusNotFound:
		return notFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return app.KindValidation
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return app.KindNetwork
	default:
		return app.KindValidation
	}
}

func mapHTTPError(op string, resp *resty.Response, notFound app.Kind) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}

	return app.E(statusKind(resp.StatusCode(), notFound), op, fmt.Errorf("http %d: %s", resp.StatusCode(), body))
}

// mapTransportError classifies a request that never produced a response.
func mapTransportError(op string, err error) error {
	return app.E(app.KindNetwork, op, err)
}
