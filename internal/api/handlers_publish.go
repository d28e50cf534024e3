// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/models"
	"github.com/tomtom215/herald/internal/validation"
)

// PublishedStatus is the success reply body.
const PublishedStatus = "Message sent"

// Publish accepts a notice and puts it on the ingest subject.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var notice models.Notice
	if err := json.Unmarshal(body, &notice); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if notice.XRequestID == models.NoRequestID {
		if id := r.Header.Get("X-Request-Id"); id != "" {
			notice.XRequestID = id
		}
	}
	now := h.now()
	if notice.ExpireAt.IsZero() {
		notice.ExpireAt = now.Add(h.cfg.DefaultExpiry).UTC()
	}

	if verr := validation.ValidateStruct(&notice); verr != nil {
		respondJSON(w, http.StatusBadRequest, verr.Response())
		return
	}

	payload, err := json.Marshal(&notice)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode notice")
		return
	}

	out := broker.Outbound{
		Subject: broker.LaneSubject(h.cfg.Subject, notice.Priority),
		Payload: payload,
		MsgID:   notice.NoticeID.String(),
		Headers: map[string]string{
			broker.HeaderPriority:  strconv.Itoa(notice.Priority),
			broker.HeaderRequestID: notice.XRequestID,
		},
	}
	if ttl := models.TTLSeconds(notice.ExpireAt, now); ttl > 0 {
		out.TTL = time.Duration(ttl) * time.Second
	}

	log := logging.Ctx(r.Context()).With().
		Str("notice_id", notice.NoticeID.String()).
		Str("transport", notice.Transport.String()).
		Int("recipients", len(notice.UsersID)).
		Logger()

	if err := h.publisher.Publish(r.Context(), out); err != nil {
		log.Error().Err(err).Msg("publish notice failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Msg("notice accepted")
	respondJSON(w, http.StatusOK, statusResponse{Status: PublishedStatus})
}
