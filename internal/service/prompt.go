package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/config"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

// BuildSystemInstruction renders the persona, the business rules and what
// is known about the customer.
func BuildSystemInstruction(b *config.Business, p *model.CustomerProfile, minimum float64) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(b.Persona))
	sb.WriteString("\n\n### REGLAS DEL NEGOCIO\n")
	for _, rule := range b.Rules {
		fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(rule))
	}
	fmt.Fprintf(&sb, "- Pedido mínimo: %s %s.\n", FormatAmount(minimum), b.Currency)
	if policy := strings.TrimSpace(b.ShippingPolicy); policy != "" {
		fmt.Fprintf(&sb, "- Envíos: %s\n", policy)
	}

	sb.WriteString("\n### CLIENTE\n")
	fmt.Fprintf(&sb, "- Nombre: %s\n", p.DisplayName)

	sb.WriteString("\n### MEMORIA (lo que ya sabemos)\n")
	if p.Memory.IsEmpty() {
		sb.WriteString("Aún no tenemos detalles registrados.\n")
	} else if data, err := json.Marshal(p.Memory.Normalize()); err == nil {
		sb.Write(data)
		sb.WriteString("\nNo preguntes lo que ya sabes; úsalo para personalizar.\n")
	}

	if p.Cart != nil && len(p.Cart.Items) > 0 {
		sb.WriteString("\n### CARRITO ACTUAL\n")
		for _, item := range p.Cart.Items {
			fmt.Fprintf(&sb, "- %d x %s (%s)\n", item.Quantity, item.Name, FormatAmount(item.UnitPrice))
		}
		fmt.Fprintf(&sb, "Total: %s\n", FormatAmount(p.Cart.Total))
	}

	return sb.String()
}

// FormatAmount renders an amount with dot thousand separators, e.g. 150.000.
func FormatAmount(v float64) string {
	n := int64(v + 0.5)
	if v < 0 {
		n = int64(v - 0.5)
	}
	neg := n < 0
	if neg {
		n = -n
	}

	digits := fmt.Sprintf("%d", n)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(d)
	}

	out := "$" + sb.String()
	if neg {
		out = "-" + out
	}
	return out
}
