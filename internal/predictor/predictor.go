// Package predictor calls the external prediction service that contributes
// per-hour anomaly flags and a predicted value vector for a point. The
// service is optional; every failure degrades to ErrExternalService so the
// batch pipeline can continue with the built-in methods.
package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aquatel/hydronet-go/internal/anomaly"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/httpclient"
	"github.com/aquatel/hydronet-go/internal/logging"
	"github.com/aquatel/hydronet-go/internal/series"
)

// NeighborFeature is one topology neighbor's hourly vector sent as model
// input. Missing hours are transmitted as nulls.
type NeighborFeature struct {
	Tag    string     `json:"tag"`
	Values []*float64 `json:"values"`
}

// Request is the payload sent to the prediction service.
type Request struct {
	PointID   uint              `json:"point_id"`
	Tag       string            `json:"tag"`
	Date      string            `json:"date"`
	Readings  []*float64        `json:"readings"`
	Neighbors []NeighborFeature `json:"neighbors"`
}

// Response is the service's answer: per-hour anomaly flags and an optional
// predicted vector.
type Response struct {
	Flags     []bool     `json:"flags"`
	Predicted []*float64 `json:"predicted"`
}

// Result is the decoded service output in engine types.
type Result struct {
	Flags     anomaly.Flags
	Predicted series.HourlySeries
}

// Client talks to the external prediction service with an explicit timeout.
type Client struct {
	settings conf.PredictorSettings
	http     *httpclient.Client
	logger   *slog.Logger
}

// New creates a predictor client. Returns nil when the service is disabled;
// callers treat a nil client as "no external method".
func New(settings conf.PredictorSettings, hc *httpclient.Client) *Client {
	if !settings.Enabled || settings.URL == "" {
		return nil
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 5 * time.Second
	}
	if hc == nil {
		hc = httpclient.New(nil)
	}
	return &Client{
		settings: settings,
		http:     hc,
		logger:   logging.ForService("predictor"),
	}
}

// Predict requests flags and a predicted vector for one point and date. Any
// transport, timeout or decode failure wraps ErrExternalService.
func (c *Client) Predict(ctx context.Context, req *Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	resp, err := c.http.PostJSON(ctx, c.settings.URL+"/v1/predict", req)
	if err != nil {
		return nil, c.serviceError(err, req)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, c.serviceError(fmt.Errorf("unexpected status %d", resp.StatusCode), req)
	}

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, c.serviceError(fmt.Errorf("decoding response: %w", err), req)
	}

	return decodeResult(&body), nil
}

func decodeResult(body *Response) *Result {
	res := &Result{Predicted: series.Empty()}
	for h := 0; h < series.HoursPerDay && h < len(body.Flags); h++ {
		res.Flags[h] = body.Flags[h]
	}
	for h := 0; h < series.HoursPerDay && h < len(body.Predicted); h++ {
		if body.Predicted[h] != nil {
			res.Predicted.Set(h, *body.Predicted[h])
		}
	}
	return res
}

func (c *Client) serviceError(err error, req *Request) error {
	c.logger.Warn("prediction service call failed",
		"point_id", req.PointID, "date", req.Date, "error", err)
	return errors.New(errors.Join(errors.ErrExternalService, err)).
		Component("predictor").
		Category(errors.CategoryNetwork).
		Context("point_id", req.PointID).
		Context("date", req.Date).
		Build()
}

// EncodeSeries converts an hourly series to the nullable wire form.
func EncodeSeries(s *series.HourlySeries) []*float64 {
	out := make([]*float64, series.HoursPerDay)
	for h := 0; h < series.HoursPerDay; h++ {
		if s.Has(h) {
			v := (*s)[h]
			out[h] = &v
		}
	}
	return out
}
