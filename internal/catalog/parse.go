package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// Parse decodes a catalog document, checks it with ValidateDocument and
// converts it into typed rules. Every top-level key except ReservedKey is an
// item code.
func Parse(raw []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("malformed document: %v", err)}
	}
	if dec.More() {
		return nil, &SchemaError{Reason: "trailing data after catalog document"}
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	fields := doc.(map[string]any)

	c := &Catalog{Items: make(map[string]pricing.ItemRules, len(entries)), Display: DefaultDisplay()}
	for code, body := range entries {
		if code == ReservedKey {
			display, err := parseDisplay(fields[code], body)
			if err != nil {
				return nil, err
			}
			c.Display = display
			continue
		}
		rules, err := parseItem(code, fields[code], body)
		if err != nil {
			return nil, err
		}
		c.Items[code] = rules
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func parseItem(code string, field any, body json.RawMessage) (pricing.ItemRules, error) {
	obj, ok := field.(map[string]any)
	if !ok {
		return pricing.ItemRules{}, &SchemaError{Path: code, Reason: "item rules must be an object"}
	}
	if price, ok := obj["full_price"]; !ok || price == nil {
		return pricing.ItemRules{}, &SchemaError{Path: code + ".full_price", Reason: "required"}
	}
	var rules pricing.ItemRules
	if err := json.Unmarshal(body, &rules); err != nil {
		return pricing.ItemRules{}, &SchemaError{Path: code + fieldSuffix(err), Reason: err.Error()}
	}
	return rules, nil
}

func parseDisplay(field any, body json.RawMessage) (DisplayOptions, error) {
	if _, ok := field.(map[string]any); !ok {
		return DisplayOptions{}, &SchemaError{Path: ReservedKey, Reason: "price metadata must be an object"}
	}
	var display DisplayOptions
	if err := json.Unmarshal(body, &display); err != nil {
		return DisplayOptions{}, &SchemaError{Path: ReservedKey + fieldSuffix(err), Reason: err.Error()}
	}
	return display.withDefaults(), nil
}

func fieldSuffix(err error) string {
	if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
		return "." + typeErr.Field
	}
	return ""
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}
