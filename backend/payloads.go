package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jrsteele09/motzkin-store/auth"
	"github.com/jrsteele09/motzkin-store/catalog"
	"github.com/jrsteele09/motzkin-store/internal/utils"
)

// Response schemas. Everything the backend sends is decoded into these types
// and converted into domain types here, so loosely typed fields never leak
// past the client.

type errorPayload struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// identityPayload accepts the spellings the backend has used for the user id.
type identityPayload struct {
	UserID   string
	Username string
}

func (p *identityPayload) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range []string{"userId", "userid", "user_id", "id"} {
		if v, ok := raw[k]; ok {
			s, err := rawString(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			p.UserID = s
			break
		}
	}
	if v, ok := raw["username"]; ok {
		s, err := rawString(v)
		if err != nil {
			return fmt.Errorf("username: %w", err)
		}
		p.Username = s
	}
	return nil
}

func (p identityPayload) toIdentity() (auth.Identity, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return auth.Identity{}, fmt.Errorf("missing user id")
	}
	return auth.Identity{UserID: p.UserID, Username: p.Username}, nil
}

type selectItemPayload struct {
	ID   json.RawMessage `json:"id"`
	Name string          `json:"name"`
}

func toSelectItems(in []selectItemPayload) ([]catalog.SelectItem, error) {
	out := make([]catalog.SelectItem, 0, len(in))
	for i, p := range in {
		id, err := utils.ParseID(p.ID)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, catalog.SelectItem{ID: id, Name: p.Name})
	}
	return out, nil
}

type equipmentLinePayload struct {
	ID       json.RawMessage `json:"id"`
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
}

// equipmentPayload is {items: [...]}; a bare array is accepted too.
type equipmentPayload struct {
	Items []equipmentLinePayload `json:"items"`
}

func (p *equipmentPayload) UnmarshalJSON(b []byte) error {
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '[' {
		return json.Unmarshal(t, &p.Items)
	}
	var wrapped struct {
		Items []equipmentLinePayload `json:"items"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	p.Items = wrapped.Items
	return nil
}

func (p equipmentPayload) toLines() ([]catalog.EquipmentLine, error) {
	out := make([]catalog.EquipmentLine, 0, len(p.Items))
	for i, l := range p.Items {
		id, err := utils.ParseID(l.ID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		qty := 0
		if len(l.Quantity) > 0 && string(l.Quantity) != "null" {
			if qty, err = utils.ParseID(l.Quantity); err != nil {
				return nil, fmt.Errorf("line %d quantity: %w", i, err)
			}
		}
		if qty < 0 {
			return nil, fmt.Errorf("line %d: negative quantity %d", i, qty)
		}
		out = append(out, catalog.EquipmentLine{ID: id, Name: l.Name, Quantity: qty})
	}
	return out, nil
}

func rawString(v json.RawMessage) (string, error) {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || string(t) == "null" {
		return "", nil
	}
	if t[0] == '"' {
		var s string
		err := json.Unmarshal(t, &s)
		return s, err
	}
	// Numeric ids are kept as their decimal text.
	var n json.Number
	if err := json.Unmarshal(t, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
