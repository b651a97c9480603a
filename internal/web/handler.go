// Package web serves the prediction form.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/microbiome-stage/internal/artifacts"
	"github.com/Skufu/microbiome-stage/internal/prediction"
)

const inputCountMessage = "Error: Expected 7 input features."

type Predictor interface {
	Predict(ctx context.Context, lookup prediction.Lookup) (prediction.Result, error)
}

type Handler struct {
	svc Predictor
	log *zap.Logger
}

func NewHandler(svc Predictor, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Form renders the empty input form.
func (h *Handler) Form(c *gin.Context) {
	c.HTML(http.StatusOK, indexTemplate, page{Values: blankValues()})
}

// Predict handles a form submission. Malformed input is answered with a
// bare 500.
func (h *Handler) Predict(c *gin.Context) {
	start := time.Now()
	res, err := h.svc.Predict(c.Request.Context(), c.GetPostForm)
	predictionDuration.Observe(time.Since(start).Seconds())

	values := submitted(c)
	switch {
	case errors.Is(err, prediction.ErrInputCount):
		predictionsTotal.WithLabelValues("input_count").Inc()
		c.HTML(http.StatusOK, indexTemplate, page{Values: values, Prediction: inputCountMessage})
		return
	case err != nil:
		predictionsTotal.WithLabelValues("error").Inc()
		h.log.Error("prediction failed", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	predictionsTotal.WithLabelValues("ok").Inc()
	h.log.Debug("prediction", zap.String("diagnosis", res.Diagnosis), zap.String("stage", res.Stage))
	c.HTML(http.StatusOK, indexTemplate, page{Values: values, Prediction: res.String()})
}

func blankValues() map[string]string {
	values := make(map[string]string, len(artifacts.InputFields))
	for _, field := range artifacts.InputFields {
		values[field] = ""
	}
	return values
}

func submitted(c *gin.Context) map[string]string {
	values := make(map[string]string, len(artifacts.InputFields))
	for _, field := range artifacts.InputFields {
		values[field] = c.PostForm(field)
	}
	return values
}
