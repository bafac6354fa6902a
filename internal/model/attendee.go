package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// User is a resolved attendee as exposed to the agenda pages and API.
type User struct {
	PegaID           string `json:"pegaId"`
	Email            string `json:"email"`
	BreakoutGroup    string `json:"breakoutGroup"`
	RegionalBreakout string `json:"regionalBreakout"`
	PreferredName    string `json:"preferredName"`
	LastName         string `json:"lastName"`
}

// UserPatch lists the fields of a User to change; nil fields are kept.
type UserPatch struct {
	PegaID           *string `json:"pegaId,omitempty"`
	Email            *string `json:"email,omitempty"`
	BreakoutGroup    *string `json:"breakoutGroup,omitempty"`
	RegionalBreakout *string `json:"regionalBreakout,omitempty"`
	PreferredName    *string `json:"preferredName,omitempty"`
	LastName         *string `json:"lastName,omitempty"`
}

// AttendeeRecord is the raw attendee document as exported from the
// registration sheet. Field names are kept bit-exact with that export.
type AttendeeRecord struct {
	PegaID           string         `json:"Pega ID"`
	Email            string         `json:"Email"`
	DeliveryCircle   DeliveryCircle `json:"Delivery Circle Breakout"`
	RegionalBreakout string         `json:"Regional Breakout"`
	PreferredName    string         `json:"Preferred Name"`
	LastName         string         `json:"Last Name"`
}

// DeliveryCircle is the raw "Delivery Circle Breakout" value. The export
// holds either a number (1, 2, 3) or a team name, so both JSON numbers and
// strings decode into its textual form.
type DeliveryCircle string

func (d *DeliveryCircle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DeliveryCircle(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("delivery circle: %w", err)
	}
	*d = DeliveryCircle(strings.TrimSuffix(n.String(), ".0"))
	return nil
}
