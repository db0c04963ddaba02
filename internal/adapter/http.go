package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-resty/resty/v2"
)

const (
	collectionPath = "/api/collections/{collection}"
	recordPath     = "/api/collections/{collection}/{id}"
	changesPath    = "/api/collections/%s/changes"
	pingPath       = "/api/ping"
)

type httpGateway struct {
	client  *utils.HTTPClient
	baseURL string
	token   string
	timeout time.Duration

	logger *logger.Logger
}

// NewHTTPGateway constructs the REST implementation of [Gateway]. It
// normalises and validates adapterCfg.BaseURL and attaches token as a bearer
// credential to every request, push subscriptions included.
func NewHTTPGateway(adapterCfg config.ClientAdapter, token string, logger *logger.Logger) (Gateway, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	token = strings.TrimSpace(token)
	client := utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout).WithBearerToken(token)

	return &httpGateway{
		client:  client,
		baseURL: baseURL,
		token:   token,
		timeout: adapterCfg.RequestTimeout,
		logger:  logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (g *httpGateway) request(ctx context.Context, collection models.Collection) *resty.Request {
	return g.client.R().
		SetContext(ctx).
		SetPathParam("collection", collection.String())
}

// Fetch implements [Gateway]. GET /api/collections/{collection}.
func (g *httpGateway) Fetch(ctx context.Context, collection models.Collection, userID string) ([]models.Record, error) {
	const op = "gateway.Fetch"

	resp, err := g.request(ctx, collection).Get(collectionPath)
	if err != nil {
		g.logger.Err(err).
			Str("func", "httpGateway.Fetch").
			Str("collection", collection.String()).
			Str("user_id", userID).
			Msg("fetch request failed")
		return nil, mapTransportError(op, err)
	}
	if err = mapHTTPError(op, resp, app.KindValidation); err != nil {
		return nil, err
	}

	records := []models.Record{}
	if err = json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, app.E(app.KindUnknown, op, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err))
	}
	return records, nil
}

// Insert implements [Gateway]. POST /api/collections/{collection}.
func (g *httpGateway) Insert(ctx context.Context, collection models.Collection, payload models.Record) (models.Record, error) {
	const op = "gateway.Insert"

	resp, err := g.request(ctx, collection).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(collectionPath)
	if err != nil {
		g.logger.Err(err).
			Str("func", "httpGateway.Insert").
			Str("collection", collection.String()).
			Msg("insert request failed")
		return nil, mapTransportError(op, err)
	}
	if err = mapHTTPError(op, resp, app.KindValidation); err != nil {
		return nil, err
	}

	return decodeRecord(op, resp)
}

// Update implements [Gateway]. PATCH /api/collections/{collection}/{id}. A
// missing target is reported as a conflict.
func (g *httpGateway) Update(ctx context.Context, collection models.Collection, id string, patch models.Record) (models.Record, error) {
	const op = "gateway.Update"

	body := patch.WithoutID()
	if body == nil {
		body = models.Record{}
	}

	resp, err := g.request(ctx, collection).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Patch(recordPath)
	if err != nil {
		g.logger.Err(err).
			Str("func", "httpGateway.Update").
			Str("collection", collection.String()).
			Str("id", id).
			Msg("update request failed")
		return nil, mapTransportError(op, err)
	}
	if err = mapHTTPError(op, resp, app.KindConflict); err != nil {
		return nil, err
	}

	return decodeRecord(op, resp)
}

// Delete implements [Gateway]. DELETE /api/collections/{collection}/{id}.
// A 404 means the record is already gone and counts as success.
func (g *httpGateway) Delete(ctx context.Context, collection models.Collection, id string) error {
	const op = "gateway.Delete"

	resp, err := g.request(ctx, collection).
		SetPathParam("id", id).
		Delete(recordPath)
	if err != nil {
		g.logger.Err(err).
			Str("func", "httpGateway.Delete").
			Str("collection", collection.String()).
			Str("id", id).
			Msg("delete request failed")
		return mapTransportError(op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}

	return mapHTTPError(op, resp, app.KindConflict)
}

// Ping implements [Gateway]. GET /api/ping.
func (g *httpGateway) Ping(ctx context.Context) error {
	const op = "gateway.Ping"

	resp, err := g.client.R().SetContext(ctx).Get(pingPath)
	if err != nil {
		return mapTransportError(op, err)
	}
	return mapHTTPError(op, resp, app.KindNetwork)
}

func decodeRecord(op string, resp *resty.Response) (models.Record, error) {
	var record models.Record
	if err := json.Unmarshal(resp.Body(), &record); err != nil {
		return nil, app.E(app.KindUnknown, op, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err))
	}
	if record.ID() == "" {
		return nil, app.E(app.KindUnknown, op, fmt.Errorf("%w: record without id", ErrUnexpectedResponse))
	}
	return record, nil
}
