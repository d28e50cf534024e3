// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/herald/internal/auth"
	"github.com/tomtom215/herald/internal/config"
)

// defaultTokenTTL is the lifetime of development tokens.
const defaultTokenTTL = 24 * time.Hour

var errTokenUsage = errors.New("usage: herald token <user-id>")

// runTokenCommand prints a websocket token for the given user id, signed with
// WEBSOCKET_JWT_SECRET. It is meant for local testing of the websocket role.
func runTokenCommand(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return errTokenUsage
	}

	mgr, err := auth.NewJWTManager(cfg.Websocket.JWTSecret, defaultTokenTTL)
	if err != nil {
		return fmt.Errorf("websocket jwt secret: %w", err)
	}

	token, err := mgr.GenerateToken(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
