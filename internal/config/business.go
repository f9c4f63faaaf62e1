package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Business is the retailer copy injected into prompts and canned replies.
type Business struct {
	AssistantName  string   `yaml:"assistant_name"`
	StoreName      string   `yaml:"store_name"`
	Persona        string   `yaml:"persona"`
	Rules          []string `yaml:"rules"`
	ShippingPolicy string   `yaml:"shipping_policy"`
	Currency       string   `yaml:"currency"`
	FallbackReply  string   `yaml:"fallback_reply"`
	HandoverReply  string   `yaml:"handover_reply"`
}

// DefaultBusiness is used when no business file is present.
func DefaultBusiness() *Business {
	return &Business{
		AssistantName: "Ana Gabriela",
		StoreName:     "la tienda",
		Persona:       "Eres una asesora de ventas amable de una tienda de productos para mascotas.",
		Currency:      "COP",
		FallbackReply: "¡Ay! Me distraje un segundo. ¿Me repites? 🐾",
		HandoverReply: "¡Qué nota! Mira, te paso con mi equipo de ventas para que te ayuden con eso. 🐾",
	}
}

// LoadBusiness reads the YAML business file at path. A missing file yields
// DefaultBusiness; empty fields fall back to the defaults.
func LoadBusiness(path string) (*Business, error) {
	b := DefaultBusiness()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("read business config: %w", err)
	}

	var fromFile Business
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parse business config %s: %w", path, err)
	}

	merge(&b.AssistantName, fromFile.AssistantName)
	merge(&b.StoreName, fromFile.StoreName)
	merge(&b.Persona, fromFile.Persona)
	merge(&b.ShippingPolicy, fromFile.ShippingPolicy)
	merge(&b.Currency, fromFile.Currency)
	merge(&b.FallbackReply, fromFile.FallbackReply)
	merge(&b.HandoverReply, fromFile.HandoverReply)
	if len(fromFile.Rules) > 0 {
		b.Rules = fromFile.Rules
	}

	return b, nil
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
