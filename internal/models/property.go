package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Property types
const (
	PropertyTitle       = "title"
	PropertyRichText    = "rich_text"
	PropertyNumber      = "number"
	PropertySelect      = "select"
	PropertyMultiSelect = "multi_select"
	PropertyDate        = "date"
	PropertyCheckbox    = "checkbox"
	PropertyURL         = "url"
	PropertyEmail       = "email"
	PropertyPhoneNumber = "phone_number"
	PropertyStatus      = "status"
	PropertyFiles       = "files"
)

// SelectOption is a select, status or multi-select option
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Property is a typed page property value. Only the field matching Type is
// populated. Database schema entries decode into the same struct with empty
// values, since their payloads are configuration objects.
type Property struct {
	ID          string
	Type        string
	Title       []RichText
	RichText    []RichText
	Number      json.Number
	Select      *SelectOption
	MultiSelect []SelectOption
	Date        *DateValue
	Checkbox    bool
	URL         string
	Email       string
	PhoneNumber string
	Status      *SelectOption
	Files       []FileObject

	raw json.RawMessage
}

func (p *Property) UnmarshalJSON(data []byte) error {
	var head struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	out := Property{ID: head.ID, Type: head.Type}
	value := fields[head.Type]
	if len(value) > 0 && string(value) != "null" {
		// Mismatched payloads (schema configs) are left empty on purpose.
		switch head.Type {
		case PropertyTitle:
			_ = json.Unmarshal(value, &out.Title)
		case PropertyRichText:
			_ = json.Unmarshal(value, &out.RichText)
		case PropertyNumber:
			_ = json.Unmarshal(value, &out.Number)
		case PropertySelect:
			_ = json.Unmarshal(value, &out.Select)
		case PropertyMultiSelect:
			_ = json.Unmarshal(value, &out.MultiSelect)
		case PropertyDate:
			_ = json.Unmarshal(value, &out.Date)
		case PropertyCheckbox:
			_ = json.Unmarshal(value, &out.Checkbox)
		case PropertyURL:
			_ = json.Unmarshal(value, &out.URL)
		case PropertyEmail:
			_ = json.Unmarshal(value, &out.Email)
		case PropertyPhoneNumber:
			_ = json.Unmarshal(value, &out.PhoneNumber)
		case PropertyStatus:
			_ = json.Unmarshal(value, &out.Status)
		case PropertyFiles:
			_ = json.Unmarshal(value, &out.Files)
		}
	}
	out.raw = append(json.RawMessage(nil), data...)

	*p = out
	return nil
}

func (p Property) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	out := map[string]interface{}{"type": p.Type}
	if p.ID != "" {
		out["id"] = p.ID
	}
	switch p.Type {
	case PropertyTitle:
		out[p.Type] = nonNil(p.Title)
	case PropertyRichText:
		out[p.Type] = nonNil(p.RichText)
	case PropertyNumber:
		if p.Number == "" {
			out[p.Type] = nil
		} else {
			out[p.Type] = p.Number
		}
	case PropertySelect:
		out[p.Type] = p.Select
	case PropertyMultiSelect:
		out[p.Type] = p.MultiSelect
	case PropertyDate:
		out[p.Type] = p.Date
	case PropertyCheckbox:
		out[p.Type] = p.Checkbox
	case PropertyURL:
		out[p.Type] = p.URL
	case PropertyEmail:
		out[p.Type] = p.Email
	case PropertyPhoneNumber:
		out[p.Type] = p.PhoneNumber
	case PropertyStatus:
		out[p.Type] = p.Status
	case PropertyFiles:
		out[p.Type] = p.Files
	}
	return json.Marshal(out)
}

// MarkEdited drops the source JSON kept for re-encoding, so changes made to
// the typed fields are written out
func (p *Property) MarkEdited() {
	p.raw = nil
}

func nonNil(spans []RichText) []RichText {
	if spans == nil {
		return []RichText{}
	}
	return spans
}

// NamedProperty pairs a property with its name
type NamedProperty struct {
	Name     string
	Property Property
}

// Properties is a property table that keeps the key order of the source JSON
type Properties []NamedProperty

// Get returns the property with the given name
func (ps Properties) Get(name string) (Property, bool) {
	for _, np := range ps {
		if np.Name == name {
			return np.Property, true
		}
	}
	return Property{}, false
}

func (ps *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*ps = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}

	var out Properties
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("properties: unexpected key %v", keyTok)
		}
		var prop Property
		if err := dec.Decode(&prop); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		out = append(out, NamedProperty{Name: name, Property: prop})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*ps = out
	return nil
}

func (ps Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, np := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(np.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(np.Property)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", np.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
